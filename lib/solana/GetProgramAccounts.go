package solana

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type GetProgramAccountsContextResult struct {
	Context rpc.Context
	Value   []*rpc.KeyedAccount
}

// GetProgramAccountsWithContext is getProgramAccounts with withContext set, so
// the result carries the slot it was read at. rpc.Client has no such call.
func GetProgramAccountsWithContext(
	ctx context.Context,
	cl *rpc.Client,
	programId solana.PublicKey,
	opts *rpc.GetProgramAccountsOpts,
) (out GetProgramAccountsContextResult, err error) {
	obj := rpc.M{
		"encoding":    solana.EncodingBase64,
		"withContext": true,
	}
	if opts != nil {
		if opts.Commitment != "" {
			obj["commitment"] = opts.Commitment
		}
		if len(opts.Filters) != 0 {
			obj["filters"] = opts.Filters
		}
		if opts.DataSlice != nil {
			obj["dataSlice"] = rpc.M{
				"offset": opts.DataSlice.Offset,
				"length": opts.DataSlice.Length,
			}
		}
	}
	err = cl.RPCCallForInto(ctx, &out, "getProgramAccounts", []interface{}{programId, obj})
	return
}
