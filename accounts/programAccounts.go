package accounts

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"

	"pythgo"
	"pythgo/lib/pyth"
	solanalib "pythgo/lib/solana"
)

// FetchProgramPriceUpdates lists the fully verified price update accounts owned
// by owner. A non-nil feedId narrows the list to that feed.
func FetchProgramPriceUpdates(
	ctx context.Context,
	connection *rpc.Client,
	owner solana.PublicKey,
	commitment rpc.CommitmentType,
	feedId *pyth.FeedId,
) ([]*FetchResult[*pyth.PriceUpdateV2], error) {
	filters := []rpc.RPCFilter{
		{DataSize: pyth.PriceUpdateV2Len},
		pythgo.GetPriceUpdateFilter(),
		pythgo.GetFullyVerifiedFilter(),
	}
	if feedId != nil {
		filters = append(filters, pythgo.GetFeedFilter(*feedId))
	}
	out, err := solanalib.GetProgramAccountsWithContext(ctx, connection, owner, &rpc.GetProgramAccountsOpts{
		Commitment: commitment,
		Filters:    filters,
	})
	if err != nil {
		return nil, errors.WrapPrefix(err, "list price updates of "+owner.String(), 0)
	}
	results := make([]*FetchResult[*pyth.PriceUpdateV2], 0, len(out.Value))
	for _, keyed := range out.Value {
		if keyed == nil || keyed.Account == nil {
			continue
		}
		result := &FetchResult[*pyth.PriceUpdateV2]{
			DataAndSlot: DataAndSlot[*pyth.PriceUpdateV2]{
				Slot:   out.Context.Slot,
				Pubkey: keyed.Pubkey,
			},
		}
		result.Data, result.Err = DecodePriceUpdate(keyed.Account.Data.GetBinary())
		if result.Err != nil {
			result.Err = fmt.Errorf("decode price update %s: %w", keyed.Pubkey, result.Err)
		}
		results = append(results, result)
	}
	return results, nil
}
