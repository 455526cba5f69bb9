package events

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
)

const (
	maxSignaturePages     = 20
	maxTransactionRetries = 3
)

// PollingLogProvider follows a program's transactions with getSignaturesForAddress
// and hands their logs to the subscriber, oldest first.
type PollingLogProvider struct {
	connection  *rpc.Client
	address     solana.PublicKey
	commitment  rpc.CommitmentType
	config      PollingLogProviderConfig
	callback    LogProviderCallback
	lastTxSig   *solana.Signature
	failedTxSig solana.Signature
	failures    int
	skipHistory bool
	cancel      func()
	log         logrus.FieldLogger
	mxState     *sync.Mutex
}

func CreatePollingLogProvider(
	connection *rpc.Client,
	address solana.PublicKey,
	commitment rpc.CommitmentType,
	config *PollingLogProviderConfig,
	untilTx *solana.Signature,
	log logrus.FieldLogger,
) *PollingLogProvider {
	if config == nil {
		config = DefaultEventSubscriptionOptions.LogProviderConfig
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PollingLogProvider{
		connection: connection,
		address:    address,
		commitment: commitment,
		config:     *config,
		lastTxSig:  untilTx,
		log:        log,
		mxState:    new(sync.Mutex),
	}
}

func (p *PollingLogProvider) IsSubscribed() bool {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	return p.cancel != nil
}

func (p *PollingLogProvider) Subscribe(callback LogProviderCallback, skipHistory ...bool) bool {
	p.mxState.Lock()
	if p.cancel != nil {
		p.mxState.Unlock()
		return true
	}
	p.callback = callback
	p.skipHistory = len(skipHistory) > 0 && skipHistory[0]
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mxState.Unlock()

	go func(ctx context.Context) {
		ticker := time.NewTicker(p.config.Frequency)
		defer ticker.Stop()
		p.Poll(ctx)
		for {
			select {
			case <-ticker.C:
				p.Poll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}(ctx)
	return true
}

func (p *PollingLogProvider) Unsubscribe(external ...bool) bool {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return true
}

// Poll hands over every transaction newer than the last one delivered, oldest
// first. Signatures are paged until the last delivered one is reached. A
// transaction that cannot be fetched stops the poll so the next one retries
// it; after maxTransactionRetries attempts it is skipped. The first poll
// delivers up to History recent transactions, or with skipHistory only
// records where to start.
func (p *PollingLogProvider) Poll(ctx context.Context) {
	p.mxState.Lock()
	until := p.lastTxSig
	skip := p.skipHistory && until == nil
	callback := p.callback
	p.mxState.Unlock()

	signatures, complete, err := p.fetchSignatures(ctx, until, skip)
	if err != nil {
		p.log.WithError(err).WithField("address", p.address.String()).Warn("Log provider: fetch signatures failed")
		return
	}
	if len(signatures) == 0 {
		return
	}
	if !complete {
		p.log.WithField("address", p.address.String()).
			Warnf("Log provider: more than %d pages of new transactions, older ones are dropped", maxSignaturePages)
	}
	if skip || callback == nil {
		p.setLastTxSig(signatures[0].Signature)
		return
	}

	maxVersion := uint64(0)
	for i := len(signatures) - 1; i >= 0; i-- {
		signature := signatures[i]
		tx, err := p.connection.GetTransaction(ctx, signature.Signature, &rpc.GetTransactionOpts{
			Commitment:                     p.commitment,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil || tx == nil || tx.Meta == nil {
			if p.retry(signature.Signature) {
				p.log.WithError(err).WithField("tx", signature.Signature.String()).Warn("Log provider: fetch transaction failed, retrying next poll")
				return
			}
			p.log.WithError(err).WithField("tx", signature.Signature.String()).Error("Log provider: giving up on transaction")
			p.setLastTxSig(signature.Signature)
			continue
		}
		var blockTime int64
		if signature.BlockTime != nil {
			blockTime = int64(*signature.BlockTime)
		}
		callback(signature.Signature, tx.Slot, tx.Meta.LogMessages, blockTime)
		p.setLastTxSig(signature.Signature)
	}
}

// fetchSignatures returns new signatures newest first. complete is false when
// paging stopped at maxSignaturePages before reaching until.
func (p *PollingLogProvider) fetchSignatures(
	ctx context.Context,
	until *solana.Signature,
	skip bool,
) ([]*rpc.TransactionSignature, bool, error) {
	limit := p.config.BatchSize
	if until == nil && !skip && p.config.History > 0 {
		limit = p.config.History
	}
	limit = max(limit, 1)
	var all []*rpc.TransactionSignature
	var before solana.Signature
	for page := 0; page < maxSignaturePages; page++ {
		opts := &rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: p.commitment,
			Before:     before,
		}
		if until != nil {
			opts.Until = *until
		}
		signatures, err := p.connection.GetSignaturesForAddressWithOpts(ctx, p.address, opts)
		if err != nil {
			return nil, false, err
		}
		all = append(all, signatures...)
		// without a lower bound only the newest page is wanted
		if until == nil || len(signatures) < limit {
			return all, true, nil
		}
		before = signatures[len(signatures)-1].Signature
	}
	return all, false, nil
}

func (p *PollingLogProvider) setLastTxSig(signature solana.Signature) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.lastTxSig = &signature
	p.failedTxSig = solana.Signature{}
	p.failures = 0
}

// retry counts a failed fetch of signature and reports whether it may be tried again.
func (p *PollingLogProvider) retry(signature solana.Signature) bool {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	if p.failedTxSig != signature {
		p.failedTxSig = signature
		p.failures = 0
	}
	p.failures++
	return p.failures < maxTransactionRetries
}
