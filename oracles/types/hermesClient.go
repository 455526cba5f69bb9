package types

import (
	"context"

	"pythgo/hermes"
)

type HermesClient struct {
	client *hermes.Client
}

func CreateHermesClient(client *hermes.Client) *HermesClient {
	return &HermesClient{client: client}
}

// GetPriceUpdate ignores info.PublicKey; Hermes is addressed by feed id only.
func (p *HermesClient) GetPriceUpdate(ctx context.Context, info OracleInfo) (PriceUpdateRecord, error) {
	return p.client.LatestPriceUpdates(ctx, info.FeedId)
}
