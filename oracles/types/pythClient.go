package types

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"pythgo/accounts"
	"pythgo/addresses"
	"pythgo/lib/pyth"
)

// PythPullClient reads price update accounts written by the receiver program.
type PythPullClient struct {
	connection          *rpc.Client
	commitment          rpc.CommitmentType
	shardId             uint16
	pushOracleProgramId solana.PublicKey
}

func CreatePythPullClient(
	connection *rpc.Client,
	commitment rpc.CommitmentType,
	shardId uint16,
	pushOracleProgramId ...solana.PublicKey,
) *PythPullClient {
	programId := pyth.PushOracleProgramId
	if len(pushOracleProgramId) > 0 && !pushOracleProgramId[0].IsZero() {
		programId = pushOracleProgramId[0]
	}
	return &PythPullClient{
		connection:          connection,
		commitment:          commitment,
		shardId:             shardId,
		pushOracleProgramId: programId,
	}
}

// PriceUpdateAccount is the account read for info: the explicit one if set,
// otherwise the feed's push oracle account.
func (p *PythPullClient) PriceUpdateAccount(info OracleInfo) solana.PublicKey {
	if !info.PublicKey.IsZero() {
		return info.PublicKey
	}
	return addresses.GetPriceFeedAccountPublicKey(p.shardId, info.FeedId, p.pushOracleProgramId)
}

func (p *PythPullClient) GetPriceUpdate(ctx context.Context, info OracleInfo) (PriceUpdateRecord, error) {
	result, err := accounts.FetchPriceUpdate(ctx, p.connection, p.PriceUpdateAccount(info), p.commitment)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}
