package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-errors/errors"
	"github.com/go-resty/resty/v2"

	"pythgo/lib/pyth"
)

const DefaultEndpoint = "https://hermes.pyth.network"

var ErrNoFeeds = errors.New("no feed ids requested")

// Client talks to the Hermes price service.
type Client struct {
	endpoint string
	client   *resty.Client
}

func CreateClient(endpoint ...string) *Client {
	base := DefaultEndpoint
	if len(endpoint) > 0 && endpoint[0] != "" {
		base = strings.TrimRight(endpoint[0], "/")
	}
	return &Client{
		endpoint: base,
		client:   resty.New().SetBaseURL(base).SetHeader("Accept", "application/json"),
	}
}

func (p *Client) Endpoint() string {
	return p.endpoint
}

// LatestPriceUpdates fetches the newest update for every feed in ids.
func (p *Client) LatestPriceUpdates(ctx context.Context, ids ...pyth.FeedId) (*PriceUpdates, error) {
	if len(ids) == 0 {
		return nil, ErrNoFeeds
	}
	query := url.Values{}
	for _, id := range ids {
		query.Add("ids[]", id.Hex())
	}
	query.Set("parsed", "true")

	var updates PriceUpdates
	if err := p.get(ctx, "/v2/updates/price/latest", query, &updates); err != nil {
		return nil, err
	}
	return &updates, nil
}

// PriceFeeds lists feed metadata. Empty arguments are not sent.
func (p *Client) PriceFeeds(ctx context.Context, query string, assetType string) ([]PriceFeed, error) {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if assetType != "" {
		params.Set("asset_type", assetType)
	}
	var feeds []PriceFeed
	if err := p.get(ctx, "/v2/price_feeds", params, &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

func (p *Client) PriceFeedById(ctx context.Context, id pyth.FeedId) (*PriceFeed, error) {
	feeds, err := p.PriceFeeds(ctx, "", "")
	if err != nil {
		return nil, err
	}
	for _, feed := range feeds {
		feedId, err := feed.FeedId()
		if err == nil && feedId == id {
			return &feed, nil
		}
	}
	return nil, fmt.Errorf("feed %s not listed by %s", id, p.endpoint)
}

func (p *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		return errors.WrapPrefix(err, "hermes "+path, 0)
	}
	if !resp.IsSuccess() {
		return errors.Errorf("hermes %s: status %d: %s", path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return errors.WrapPrefix(err, "hermes "+path+": decode", 0)
	}
	return nil
}
