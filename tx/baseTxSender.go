package tx

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"

	"pythgo"
	"pythgo/priorityFee"
)

type BaseTxSender struct {
	connection      *rpc.Client
	wallet          pythgo.IWallet
	opts            pythgo.ConfirmOptions
	RecentSlot      uint64
	RecentBlockHash solana.Hash
	mxState         *sync.RWMutex
}

func CreateBaseTxSender(
	connection *rpc.Client,
	wallet pythgo.IWallet,
	opts *pythgo.ConfirmOptions,
) *BaseTxSender {
	if opts == nil {
		opts = &pythgo.DefaultConfirmOptions
	}
	return &BaseTxSender{
		connection: connection,
		wallet:     wallet,
		opts:       *opts,
		mxState:    new(sync.RWMutex),
	}
}

func (p *BaseTxSender) sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if p.wallet.GetPublicKey().Equals(key) {
			privateKey := p.wallet.GetPrivateKey()
			return &privateKey
		}
		return nil
	})
	return err
}

func (p *BaseTxSender) GetTransaction(
	ixs []solana.Instruction,
	blockhash solana.Hash,
	sign bool,
) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		ixs,
		blockhash,
		solana.TransactionPayer(p.wallet.GetPublicKey()),
	)
	if err != nil {
		return nil, err
	}
	if sign {
		if err = p.sign(tx); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// RefreshBlockhash fetches the latest blockhash and caches it.
func (p *BaseTxSender) RefreshBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := p.connection.GetLatestBlockhash(ctx, p.opts.Commitment)
	if err != nil {
		return solana.Hash{}, errors.WrapPrefix(err, "get latest blockhash", 0)
	}
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.RecentSlot = out.Context.Slot
	p.RecentBlockHash = out.Value.Blockhash
	return out.Value.Blockhash, nil
}

// BuildTransaction prepends compute budget instructions, fetches a fresh
// blockhash and signs with the sender's wallet.
func (p *BaseTxSender) BuildTransaction(
	ctx context.Context,
	ixs []solana.Instruction,
	txParams *pythgo.BaseTxParams,
) (*solana.Transaction, error) {
	var allIxs []solana.Instruction
	if txParams != nil {
		allIxs = append(allIxs, priorityFee.ComputeBudgetInstructions(txParams.ComputeUnits, txParams.ComputeUnitsPrice)...)
	}
	allIxs = append(allIxs, ixs...)
	blockhash, err := p.RefreshBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	return p.GetTransaction(allIxs, blockhash, true)
}

func (p *BaseTxSender) Simulate(
	ctx context.Context,
	tx *solana.Transaction,
) (*SimulationResult, error) {
	out, err := p.connection.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             p.opts.Commitment,
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		return nil, errors.WrapPrefix(err, "simulate transaction", 0)
	}
	if out == nil || out.Value == nil {
		return nil, errors.New("simulate transaction: empty response")
	}
	result := &SimulationResult{
		Logs: out.Value.Logs,
		Err:  out.Value.Err,
		Slot: out.Context.Slot,
	}
	if units := GetComputeUnitsFromSim(out); units != nil {
		result.UnitsConsumed = *units
	}
	return result, nil
}

func (p *BaseTxSender) Send(
	ctx context.Context,
	tx *solana.Transaction,
	opts *pythgo.ConfirmOptions,
	preSigned bool,
) (*TxSigAndSlot, error) {
	if opts == nil {
		opts = &p.opts
	}
	if !preSigned {
		if err := p.sign(tx); err != nil {
			return nil, err
		}
	}
	rawTx, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return p.SendRawTransaction(ctx, rawTx, opts)
}

func (p *BaseTxSender) SendRawTransaction(
	ctx context.Context,
	rawTransaction []byte,
	opts *pythgo.ConfirmOptions,
) (*TxSigAndSlot, error) {
	if opts == nil {
		opts = &p.opts
	}
	txSig, err := p.connection.SendRawTransactionWithOpts(ctx, rawTransaction, opts.TransactionOpts)
	if err != nil {
		return nil, errors.WrapPrefix(err, "send transaction", 0)
	}
	p.mxState.RLock()
	slot := p.RecentSlot
	p.mxState.RUnlock()
	return &TxSigAndSlot{
		TxSig: txSig,
		Slot:  slot,
	}, nil
}
