package accounts

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"

	"pythgo/lib/pyth"
)

const GET_MULTIPLE_ACCOUNTS_CHUNK_SIZE = 99

var ErrAccountNotFound = errors.New("account not found")

func DecodePriceUpdate(buffer []byte) (*pyth.PriceUpdateV2, error) {
	var priceUpdate pyth.PriceUpdateV2
	if err := priceUpdate.UnmarshalBinary(buffer); err != nil {
		return nil, err
	}
	return &priceUpdate, nil
}

func FetchPriceUpdate(
	ctx context.Context,
	connection *rpc.Client,
	publicKey solana.PublicKey,
	commitment rpc.CommitmentType,
) (*DataAndSlot[*pyth.PriceUpdateV2], error) {
	out, err := connection.GetAccountInfoWithOpts(ctx, publicKey, &rpc.GetAccountInfoOpts{
		Commitment: commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (out == nil || out.Value == nil)) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, publicKey)
	}
	if err != nil {
		return nil, errors.WrapPrefix(err, "fetch price update "+publicKey.String(), 0)
	}
	priceUpdate, err := DecodePriceUpdate(out.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("decode price update %s: %w", publicKey, err)
	}
	return &DataAndSlot[*pyth.PriceUpdateV2]{
		Data:   priceUpdate,
		Slot:   out.Context.Slot,
		Pubkey: publicKey,
	}, nil
}

// FetchPriceUpdates loads many accounts in chunks. Results are in key order.
func FetchPriceUpdates(
	ctx context.Context,
	connection *rpc.Client,
	publicKeys []solana.PublicKey,
	commitment rpc.CommitmentType,
) ([]*FetchResult[*pyth.PriceUpdateV2], error) {
	results := make([]*FetchResult[*pyth.PriceUpdateV2], 0, len(publicKeys))
	for _, chunk := range chunks(publicKeys, GET_MULTIPLE_ACCOUNTS_CHUNK_SIZE) {
		out, err := connection.GetMultipleAccountsWithOpts(ctx, chunk, &rpc.GetMultipleAccountsOpts{
			Commitment: commitment,
		})
		if err != nil {
			return nil, errors.WrapPrefix(err, "fetch price updates", 0)
		}
		for idx, publicKey := range chunk {
			result := &FetchResult[*pyth.PriceUpdateV2]{
				DataAndSlot: DataAndSlot[*pyth.PriceUpdateV2]{
					Slot:   out.Context.Slot,
					Pubkey: publicKey,
				},
			}
			if idx >= len(out.Value) || out.Value[idx] == nil {
				result.Err = fmt.Errorf("%w: %s", ErrAccountNotFound, publicKey)
			} else {
				result.Data, result.Err = DecodePriceUpdate(out.Value[idx].Data.GetBinary())
			}
			results = append(results, result)
		}
	}
	return results, nil
}

func chunks[T any](array []T, size int) [][]T {
	var chunkArray [][]T
	for start := 0; start < len(array); start += size {
		end := min(start+size, len(array))
		chunkArray = append(chunkArray, array[start:end])
	}
	return chunkArray
}
