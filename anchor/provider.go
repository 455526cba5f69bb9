package anchor

import (
	"github.com/gagliardetto/solana-go/rpc"

	"pythgo"
	"pythgo/connection"
)

type AnchorProvider struct {
	Wallet            pythgo.IWallet
	Opts              pythgo.ConfirmOptions
	ConnectionManager *connection.Manager
}

func CreateAnchorProvider(
	wallet pythgo.IWallet,
	opts pythgo.ConfirmOptions,
	connectionManager *connection.Manager,
) *AnchorProvider {
	return &AnchorProvider{
		Wallet:            wallet,
		Opts:              opts,
		ConnectionManager: connectionManager,
	}
}

// GetWallet may return nil for read-only providers.
func (p *AnchorProvider) GetWallet() pythgo.IWallet {
	return p.Wallet
}

func (p *AnchorProvider) GetConnection(id ...string) *rpc.Client {
	return p.ConnectionManager.GetRpc(id...)
}

func (p *AnchorProvider) GetOpts() *pythgo.ConfirmOptions {
	return &p.Opts
}
