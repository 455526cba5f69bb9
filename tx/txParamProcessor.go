package tx

import (
	"context"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"

	"pythgo"
	"pythgo/utils"
)

const COMPUTE_UNIT_BUFFER_FACTOR = 1.2

const MAX_COMPUTE_UNITS = uint32(1_400_000)

func GetComputeUnitsFromSim(
	txSim *rpc.SimulateTransactionResponse,
) *uint64 {
	if txSim != nil && txSim.Value != nil && txSim.Value.UnitsConsumed != nil {
		units := *txSim.Value.UnitsConsumed
		return &units
	}
	return nil
}

func GetTxSimComputeUnits(
	ctx context.Context,
	tx *solana.Transaction,
	connection *rpc.Client,
) (uint64, error) {
	simTxResult, err := connection.SimulateTransactionWithOpts(
		ctx,
		tx,
		&rpc.SimulateTransactionOpts{
			ReplaceRecentBlockhash: true,
		},
	)
	if err != nil {
		return 0, err
	}
	if simTxResult != nil && simTxResult.Value != nil && simTxResult.Value.Err != nil {
		return 0, errors.Errorf("simulation failed: %v", simTxResult.Value.Err)
	}
	computeUnits := GetComputeUnitsFromSim(simTxResult)
	if computeUnits == nil {
		return 0, errors.New("simulation did not report compute units")
	}
	return *computeUnits, nil
}

// ProcessTxParams sizes the compute unit limit from a simulation at the maximum
// limit, then prices it. A failed simulation keeps the given params.
func ProcessTxParams(
	ctx context.Context,
	txProps *TransactionProps,
	txBuilder func(*TransactionProps) (*solana.Transaction, error),
	processConfig *ProcessingTxParams,
	connection *rpc.Client,
) pythgo.BaseTxParams {
	if processConfig == nil || !processConfig.UseSimulatedComputeUnits {
		return txProps.TxParams
	}

	finalTxParams := txProps.TxParams
	txParams := txProps.TxParams
	txParams.ComputeUnits = MAX_COMPUTE_UNITS
	txToSim, err := txBuilder(&TransactionProps{
		Instructions: txProps.Instructions,
		TxParams:     txParams,
	})
	if err != nil {
		return finalTxParams
	}
	computeUnits, err := GetTxSimComputeUnits(ctx, txToSim, connection)
	if err != nil {
		return finalTxParams
	}
	multiplier := utils.TT(processConfig.ComputeUnitsBufferMultiplier > 0, processConfig.ComputeUnitsBufferMultiplier, COMPUTE_UNIT_BUFFER_FACTOR)
	bufferedComputeUnits := math.Ceil(float64(computeUnits) * multiplier)
	finalTxParams.ComputeUnits = uint32(min(bufferedComputeUnits, float64(MAX_COMPUTE_UNITS)))

	if processConfig.GetCUPriceFromComputeUnits != nil {
		finalTxParams.ComputeUnitsPrice = processConfig.GetCUPriceFromComputeUnits(finalTxParams.ComputeUnits)
	}
	return finalTxParams
}
