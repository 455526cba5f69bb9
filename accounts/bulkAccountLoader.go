package accounts

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"pythgo/utils"
)

type AccountToLoad struct {
	PublicKey solana.PublicKey
	Callbacks map[string]func([]byte, uint64)
}

// BulkAccountLoader polls registered accounts with getMultipleAccounts and calls back
// only when an account's bytes change.
type BulkAccountLoader struct {
	connection       *rpc.Client
	commitment       rpc.CommitmentType
	pollingFrequency time.Duration
	accountsToLoad   map[string]*AccountToLoad
	bufferAndSlotMap map[string]*BufferAndSlot
	errorCallbacks   map[string]func(error)
	mostRecentSlot   uint64
	cancelPolling    func()
	log              logrus.FieldLogger
	mxState          *sync.RWMutex
}

func CreateBulkAccountLoader(
	connection *rpc.Client,
	commitment rpc.CommitmentType,
	pollingFrequency time.Duration,
	log logrus.FieldLogger,
) *BulkAccountLoader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BulkAccountLoader{
		connection:       connection,
		commitment:       commitment,
		pollingFrequency: pollingFrequency,
		accountsToLoad:   make(map[string]*AccountToLoad),
		bufferAndSlotMap: make(map[string]*BufferAndSlot),
		errorCallbacks:   make(map[string]func(error)),
		log:              log,
		mxState:          new(sync.RWMutex),
	}
}

func (p *BulkAccountLoader) AddAccount(
	publicKey solana.PublicKey,
	callback func([]byte, uint64),
) string {
	if publicKey.IsZero() {
		p.log.Warn("Caught adding blank publickey to bulkAccountLoader")
	}

	defer p.mxState.Unlock()
	p.mxState.Lock()

	callbackId := utils.GenerateIdentity()
	existingAccountToLoad, exists := p.accountsToLoad[publicKey.String()]
	if exists {
		existingAccountToLoad.Callbacks[callbackId] = callback
	} else {
		p.accountsToLoad[publicKey.String()] = &AccountToLoad{
			PublicKey: publicKey,
			Callbacks: map[string]func([]byte, uint64){
				callbackId: callback,
			},
		}
	}
	return callbackId
}

func (p *BulkAccountLoader) RemoveAccount(
	publicKey solana.PublicKey,
	callbackId string,
) {
	p.mxState.Lock()
	existingAccountToLoad, exists := p.accountsToLoad[publicKey.String()]
	if exists {
		delete(existingAccountToLoad.Callbacks, callbackId)
		if len(existingAccountToLoad.Callbacks) == 0 {
			delete(p.bufferAndSlotMap, publicKey.String())
			delete(p.accountsToLoad, publicKey.String())
		}
	}
	empty := len(p.accountsToLoad) == 0
	p.mxState.Unlock()

	if empty {
		p.StopPolling()
	}
}

func (p *BulkAccountLoader) AddErrorCallbacks(callback func(error)) string {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	callbackId := utils.GenerateIdentity()
	p.errorCallbacks[callbackId] = callback
	return callbackId
}

func (p *BulkAccountLoader) RemoveErrorCallbacks(callbackId string) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	delete(p.errorCallbacks, callbackId)
}

// Load polls every registered account once.
func (p *BulkAccountLoader) Load(ctx context.Context) {
	p.mxState.RLock()
	accountsToLoad := utils.MapValues(p.accountsToLoad)
	p.mxState.RUnlock()

	for _, chunk := range chunks(accountsToLoad, GET_MULTIPLE_ACCOUNTS_CHUNK_SIZE) {
		p.LoadChunk(ctx, chunk)
	}
}

func (p *BulkAccountLoader) LoadChunk(ctx context.Context, accountsToLoadChunk []*AccountToLoad) {
	if len(accountsToLoadChunk) == 0 {
		return
	}
	var keys []solana.PublicKey
	for _, accountToLoad := range accountsToLoadChunk {
		keys = append(keys, accountToLoad.PublicKey)
	}
	rpcResponse, err := p.connection.GetMultipleAccountsWithOpts(ctx, keys, &rpc.GetMultipleAccountsOpts{
		Commitment: p.commitment,
	})
	if err != nil {
		p.handleError(err)
		return
	}
	newSlot := rpcResponse.Context.Slot

	p.mxState.Lock()
	if newSlot > p.mostRecentSlot {
		p.mostRecentSlot = newSlot
	}
	type pending struct {
		accountToLoad *AccountToLoad
		buffer        []byte
	}
	var changed []pending
	utils.ForEach(accountsToLoadChunk, func(accountToLoad *AccountToLoad, j int) {
		if len(accountToLoad.Callbacks) == 0 {
			return
		}
		key := accountToLoad.PublicKey.String()
		oldRPCResponse := p.bufferAndSlotMap[key]
		if oldRPCResponse != nil && newSlot < oldRPCResponse.Slot {
			return
		}

		var newBuffer []byte
		if len(rpcResponse.Value) > j && rpcResponse.Value[j] != nil {
			newBuffer = rpcResponse.Value[j].Data.GetBinary()
		}
		if oldRPCResponse == nil || (newBuffer != nil && !bytes.Equal(newBuffer, oldRPCResponse.Buffer)) {
			p.bufferAndSlotMap[key] = &BufferAndSlot{
				Buffer: newBuffer,
				Slot:   newSlot,
			}
			changed = append(changed, pending{accountToLoad: accountToLoad, buffer: newBuffer})
		}
	})
	p.mxState.Unlock()

	for _, c := range changed {
		p.HandleAccountCallbacks(c.accountToLoad, c.buffer, newSlot)
	}
}

func (p *BulkAccountLoader) handleError(err error) {
	p.mxState.RLock()
	callbacks := utils.MapValues(p.errorCallbacks)
	p.mxState.RUnlock()
	if len(callbacks) == 0 {
		p.log.WithError(err).Warn("Bulk account load failed")
	}
	for _, callback := range callbacks {
		callback(err)
	}
}

func (p *BulkAccountLoader) HandleAccountCallbacks(
	accountToLoad *AccountToLoad,
	buffer []byte,
	slot uint64,
) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("account", accountToLoad.PublicKey.String()).
				Errorf("Bulk account load: error in account callback: %v", r)
		}
	}()
	p.mxState.RLock()
	callbacks := utils.MapValues(accountToLoad.Callbacks)
	p.mxState.RUnlock()
	for _, callback := range callbacks {
		callback(buffer, slot)
	}
}

func (p *BulkAccountLoader) GetBufferAndSlot(publickey solana.PublicKey) *BufferAndSlot {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.bufferAndSlotMap[publickey.String()]
}

func (p *BulkAccountLoader) GetSlot() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.mostRecentSlot
}

func (p *BulkAccountLoader) StartPolling() {
	p.mxState.Lock()
	if p.cancelPolling != nil || p.pollingFrequency <= 0 {
		p.mxState.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelPolling = cancel
	p.mxState.Unlock()

	ticker := time.NewTicker(p.pollingFrequency)
	go func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Load(ctx)
			case <-ctx.Done():
				return
			}
		}
	}(ctx)
}

func (p *BulkAccountLoader) StopPolling() {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	if p.cancelPolling != nil {
		p.cancelPolling()
		p.cancelPolling = nil
	}
}

func (p *BulkAccountLoader) UpdatePollingFrequency(pollingFrequency time.Duration) {
	p.StopPolling()
	p.mxState.Lock()
	p.pollingFrequency = pollingFrequency
	hasAccounts := len(p.accountsToLoad) > 0
	p.mxState.Unlock()
	if hasAccounts {
		p.StartPolling()
	}
}
