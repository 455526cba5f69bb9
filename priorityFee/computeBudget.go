package priorityFee

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// ComputeBudgetInstructions sets the unit limit and unit price of a transaction.
// Zero values are left out.
func ComputeBudgetInstructions(units uint32, microLamports uint64) []solana.Instruction {
	var ixs []solana.Instruction
	if units > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstruction(units).Build())
	}
	if microLamports > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build())
	}
	return ixs
}
