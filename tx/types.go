package tx

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"pythgo"
)

type TxSigAndSlot struct {
	TxSig solana.Signature
	Slot  uint64
}

// SimulationResult is what a simulated transaction reported. Err is the
// on-chain error, nil when the transaction would have succeeded.
type SimulationResult struct {
	Logs          []string
	Err           interface{}
	UnitsConsumed uint64
	Slot          uint64
}

type ITxSender interface {
	GetTransaction(
		ixs []solana.Instruction,
		blockhash solana.Hash,
		sign bool,
	) (*solana.Transaction, error)

	BuildTransaction(
		ctx context.Context,
		ixs []solana.Instruction,
		txParams *pythgo.BaseTxParams,
	) (*solana.Transaction, error)

	Simulate(
		ctx context.Context,
		tx *solana.Transaction,
	) (*SimulationResult, error)

	Send(
		ctx context.Context,
		tx *solana.Transaction,
		opts *pythgo.ConfirmOptions,
		preSigned bool,
	) (*TxSigAndSlot, error)

	SendRawTransaction(
		ctx context.Context,
		rawTransaction []byte,
		opts *pythgo.ConfirmOptions,
	) (*TxSigAndSlot, error)
}

type TransactionProps struct {
	Instructions []solana.Instruction
	TxParams     pythgo.BaseTxParams
}

type ProcessingTxParams struct {
	UseSimulatedComputeUnits     bool
	ComputeUnitsBufferMultiplier float64
	GetCUPriceFromComputeUnits   func(computeUnits uint32) uint64
}
