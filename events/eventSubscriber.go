package events

import (
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"pythgo/lib/event"
)

// EventSubscriber parses the logs of a consumer program's transactions and
// re-emits them: "newTransactionLogs", "newEvent" and "priceLog".
type EventSubscriber struct {
	address           solana.PublicKey
	logProvider       ILogProvider
	eventEmitter      *event.EventEmitter
	lastSeenSlot      uint64
	lastSeenBlockTime int64
	lastSeenTxSig     string
	eventTypes        []EventType
	mxState           *sync.RWMutex
}

func CreateEventSubscriber(
	connection *rpc.Client,
	address solana.PublicKey,
	eventEmitter *event.EventEmitter,
	options *EventSubscriptionOptions,
	log logrus.FieldLogger,
) *EventSubscriber {
	if options == nil {
		options = &DefaultEventSubscriptionOptions
	}
	if !options.Address.IsZero() {
		address = options.Address
	}
	commitment := rpc.CommitmentConfirmed
	if options.Commitment != nil {
		commitment = *options.Commitment
	}
	return CreateEventSubscriberWithProvider(
		address,
		eventEmitter,
		options.EventTypes,
		CreatePollingLogProvider(connection, address, commitment, options.LogProviderConfig, options.UntilTx, log),
	)
}

func CreateEventSubscriberWithProvider(
	address solana.PublicKey,
	eventEmitter *event.EventEmitter,
	eventTypes []EventType,
	logProvider ILogProvider,
) *EventSubscriber {
	if eventEmitter == nil {
		eventEmitter = event.CreateEventEmitter()
	}
	return &EventSubscriber{
		eventTypes:   eventTypes,
		address:      address,
		eventEmitter: eventEmitter,
		logProvider:  logProvider,
		mxState:      new(sync.RWMutex),
	}
}

func (p *EventSubscriber) EventEmitter() *event.EventEmitter {
	return p.eventEmitter
}

func (p *EventSubscriber) Subscribe(skipHistory ...bool) bool {
	if p.logProvider.IsSubscribed() {
		return true
	}
	return p.logProvider.Subscribe(func(txSig solana.Signature, slot uint64, logs []string, mostRecentBlockTime int64) {
		p.handleTxLogs(txSig, slot, logs, mostRecentBlockTime)
	}, skipHistory...)
}

func (p *EventSubscriber) handleTxLogs(txSig solana.Signature, slot uint64, logs []string, mostRecentBlockTime int64) {
	p.eventEmitter.Emit("newTransactionLogs", txSig, slot, logs)
	wrappedEvents := p.parseEventsFromLogs(txSig, slot, logs)
	if len(wrappedEvents) > 0 {
		p.eventEmitter.Emit("newEvent", wrappedEvents, txSig, logs)
	}
	if priceLog, ok := ParsePriceLog(logs, p.address.String()); ok {
		p.eventEmitter.Emit("priceLog", priceLog, txSig, slot)
	}

	defer p.mxState.Unlock()
	p.mxState.Lock()
	if p.lastSeenSlot == 0 || slot > p.lastSeenSlot {
		p.lastSeenSlot = slot
		p.lastSeenTxSig = txSig.String()
	}
	if p.lastSeenBlockTime == 0 || mostRecentBlockTime > p.lastSeenBlockTime {
		p.lastSeenBlockTime = mostRecentBlockTime
	}
}

func (p *EventSubscriber) LastSeen() (uint64, string) {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.lastSeenSlot, p.lastSeenTxSig
}

func (p *EventSubscriber) Unsubscribe() {
	p.logProvider.Unsubscribe()
}

func (p *EventSubscriber) parseEventsFromLogs(txSig solana.Signature, slot uint64, logs []string) []*WrappedEvent {
	var records []*WrappedEvent
	events := ParseLogs(logs, p.address.String())
	for _, event := range events {
		if len(p.eventTypes) == 0 || slices.Contains(p.eventTypes, event.EventType) {
			records = append(records, &WrappedEvent{
				Event: *event,
				TxSig: txSig,
				Slot:  slot,
			})
		}
	}
	return records
}
