package types

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"pythgo/lib/pyth"
)

// PriceUpdateRecord is a price update owned by the oracle integration. Readers only
// look feeds up in it.
type PriceUpdateRecord interface {
	PriceMessageFor(feedId pyth.FeedId) (*pyth.PriceFeedMessage, pyth.VerificationLevel, bool)
}

// PricePoint is a price that passed the freshness check. Values are copied verbatim
// from the record.
type PricePoint struct {
	FeedId      pyth.FeedId `json:"feed_id"`
	Price       int64       `json:"price"`
	Conf        uint64      `json:"conf"`
	Exponent    int32       `json:"exponent"`
	PublishTime int64       `json:"publish_time"`
}

// Value is Price scaled by 10^Exponent.
func (p *PricePoint) Value() decimal.Decimal {
	return decimal.New(p.Price, p.Exponent)
}

// Confidence is Conf scaled by 10^Exponent.
func (p *PricePoint) Confidence() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(p.Conf), p.Exponent)
}

func (p *PricePoint) String() string {
	return fmt.Sprintf("(%d ± %d) * 10^%d", p.Price, p.Conf, p.Exponent)
}

type OracleSource string

const (
	OracleSourcePythPull OracleSource = "pyth_pull"
	OracleSourceHermes   OracleSource = "hermes"
)

type OracleInfo struct {
	FeedId    pyth.FeedId
	PublicKey solana.PublicKey // explicit price update account, zero to derive it
	Source    OracleSource
}

type IOracleClient interface {
	GetPriceUpdate(ctx context.Context, info OracleInfo) (PriceUpdateRecord, error)
}
