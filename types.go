package pythgo

import (
	"github.com/gagliardetto/solana-go/rpc"
)

type ConfirmOptions struct {
	rpc.TransactionOpts
	Commitment rpc.CommitmentType
}

var DefaultConfirmOptions = ConfirmOptions{
	TransactionOpts: rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	},
	Commitment: rpc.CommitmentConfirmed,
}

// BaseTxParams are the compute budget settings of a transaction.
type BaseTxParams struct {
	ComputeUnits      uint32
	ComputeUnitsPrice uint64
}
