package types

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"pythgo"
)

type IProvider interface {
	GetConnection(...string) *rpc.Client
	GetOpts() *pythgo.ConfirmOptions
	GetWallet() pythgo.IWallet
}

type IProgram interface {
	GetProgramId() solana.PublicKey
	GetProvider() IProvider
}
