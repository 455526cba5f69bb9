package events

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"pythgo/lib/pyth"
	"pythgo/utils"
)

type EventSubscriptionOptions struct {
	Address           solana.PublicKey
	EventTypes        []EventType
	Commitment        *rpc.CommitmentType
	LogProviderConfig *PollingLogProviderConfig
	// when the subscription starts, client might want to backtrack and fetch old tx's
	// this specifies how far to backtrack
	UntilTx *solana.Signature
}

var DefaultEventSubscriptionOptions = EventSubscriptionOptions{
	EventTypes: []EventType{
		EventTypePrice,
		EventTypeConfidence,
		EventTypeExponent,
		EventTypeFeedId,
		EventTypePublishTime,
	},
	Commitment: utils.NewPtr(rpc.CommitmentConfirmed),
	LogProviderConfig: &PollingLogProviderConfig{
		Frequency: 5 * time.Second,
		BatchSize: 25,
	},
	UntilTx: nil,
}

type Event struct {
	Data      interface{}
	EventType EventType
}

type WrappedEvent struct {
	Event
	TxSig solana.Signature
	Slot  uint64
}

type EventType string

const (
	EventTypePrice       EventType = "price"
	EventTypeConfidence  EventType = "confidence"
	EventTypeExponent    EventType = "exponent"
	EventTypeFeedId      EventType = "feed_id"
	EventTypePublishTime EventType = "publish_time"
	EventTypeRaw         EventType = "raw"
)

// PriceRecord is one "Price: ..." line. The single-line form carries all three
// numbers; the plain form only the price.
type PriceRecord struct {
	Price    *int64
	Conf     *uint64
	Exponent *int32
}

// PriceLog is what a consumer program reported for one read. Fields the program
// did not log stay nil.
type PriceLog struct {
	Price       *int64
	Conf        *uint64
	Exponent    *int32
	FeedId      *pyth.FeedId
	PublishTime *int64
}

// Value is the logged price scaled by the logged exponent.
func (p *PriceLog) Value() (decimal.Decimal, bool) {
	if p.Price == nil || p.Exponent == nil {
		return decimal.Zero, false
	}
	return decimal.New(*p.Price, *p.Exponent), true
}

func (p *PriceLog) String() string {
	s := "Price:"
	if p.Price != nil {
		s += fmt.Sprintf(" %d", *p.Price)
	}
	if p.Conf != nil {
		s += fmt.Sprintf(" ± %d", *p.Conf)
	}
	if p.Exponent != nil {
		s += fmt.Sprintf(" * 10^%d", *p.Exponent)
	}
	if p.FeedId != nil {
		s += " feed=" + p.FeedId.String()
	}
	if p.PublishTime != nil {
		s += fmt.Sprintf(" publish_time=%d", *p.PublishTime)
	}
	return s
}

type LogProviderCallback func(txSig solana.Signature, slot uint64, logs []string, mostRecentBlockTime int64)

type ILogProvider interface {
	IsSubscribed() bool
	Subscribe(callback LogProviderCallback, skipHistory ...bool) bool
	Unsubscribe(external ...bool) bool
}

type PollingLogProviderConfig struct {
	Frequency time.Duration
	BatchSize int
	// History is how many past transactions the first poll replays, BatchSize when 0.
	History int
}
