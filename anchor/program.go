package anchor

import (
	"github.com/gagliardetto/solana-go"

	"pythgo/anchor/types"
)

// Program is one deployment of an anchor program.
type Program struct {
	ProgramId solana.PublicKey
	Provider  types.IProvider
}

func CreateProgram(
	programId solana.PublicKey,
	provider types.IProvider,
) *Program {
	return &Program{
		ProgramId: programId,
		Provider:  provider,
	}
}

func (p *Program) GetProgramId() solana.PublicKey {
	return p.ProgramId
}

func (p *Program) GetProvider() types.IProvider {
	return p.Provider
}
