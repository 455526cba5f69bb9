package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythgo/lib/event"
	"pythgo/lib/pyth"
	"pythgo/lib/rpctest"
)

const (
	getPricesProgram = "Cqy4Tnv7htPwDAudDLTT5fXXgCr2Qn19Gr4dfpqFVmxt"
	sampleProgram    = "5hC6mtKFiK6YBZq2PMdju5rP2qGuuHsXnNS7Neqhtays"
)

var getPriceLogs = []string{
	"Program ComputeBudget111111111111111111111111111111 invoke [1]",
	"Program ComputeBudget111111111111111111111111111111 success",
	"Program " + getPricesProgram + " invoke [1]",
	"Program log: Instruction: GetPrice",
	"Program log: Price: (6512345678900 ± 2345678) * 10^-8",
	"Program log: Feed ID: [230, 45, 246, 200, 180, 168, 95, 225, 166, 125, 180, 77, 193, 45, 229, 219, 51, 15, 122, 198, 107, 114, 220, 101, 138, 254, 223, 15, 74, 65, 91, 67]",
	"Program log: Publish Time: 1700000000",
	"Program " + getPricesProgram + " consumed 14172 of 200000 compute units",
	"Program " + getPricesProgram + " success",
}

var sampleLogs = []string{
	"Program " + sampleProgram + " invoke [1]",
	"Program log: Instruction: Sample",
	"Program other111111111111111111111111111111111 invoke [2]",
	"Program log: Price: 1",
	"Program other111111111111111111111111111111111 success",
	"Program log: Price: 15000000000",
	"Program log: Confidence: 7500000",
	"Program log: Exponent: -8",
	"Program " + sampleProgram + " success",
}

// go test --run TestParsePriceLog

func TestParsePriceLog(t *testing.T) {
	priceLog, ok := ParsePriceLog(getPriceLogs, getPricesProgram)
	require.True(t, ok)
	assert.Equal(t, int64(6_512_345_678_900), *priceLog.Price)
	assert.Equal(t, uint64(2_345_678), *priceLog.Conf)
	assert.Equal(t, int32(-8), *priceLog.Exponent)
	assert.Equal(t, pyth.FeedBtcUsd, *priceLog.FeedId)
	assert.Equal(t, int64(1_700_000_000), *priceLog.PublishTime)
	value, ok := priceLog.Value()
	require.True(t, ok)
	assert.Equal(t, "65123.456789", value.String())

	priceLog, ok = ParsePriceLog(sampleLogs, sampleProgram)
	require.True(t, ok)
	assert.Equal(t, int64(15_000_000_000), *priceLog.Price, "lines from invoked programs are skipped")
	assert.Equal(t, uint64(7_500_000), *priceLog.Conf)
	assert.Equal(t, int32(-8), *priceLog.Exponent)
	assert.Nil(t, priceLog.FeedId)
	assert.Nil(t, priceLog.PublishTime)
}

func TestParseLogsOtherProgram(t *testing.T) {
	_, ok := ParsePriceLog(getPriceLogs, sampleProgram)
	assert.False(t, ok)

	events := ParseLogs(getPriceLogs, getPricesProgram)
	require.Len(t, events, 4)
	assert.Equal(t, EventTypeRaw, events[0].EventType)
	assert.Equal(t, "Instruction: GetPrice", events[0].Data)
}

func TestParseLogsFailedAndTruncated(t *testing.T) {
	logs := []string{
		"Program " + sampleProgram + " invoke [1]",
		"Program log: AnchorError occurred. Error Code: PriceTooOld.",
		"Program " + sampleProgram + " failed: custom program error: 0x1775",
		"Program log: Price: 5",
		"Log truncated",
	}
	_, ok := ParsePriceLog(logs, sampleProgram)
	assert.False(t, ok)
}

func TestEventSubscriberPolling(t *testing.T) {
	sig := solana.SignatureFromBytes(make([]byte, 64))
	server := rpctest.NewServer(t).
		Handle("getSignaturesForAddress", func(json.RawMessage) (interface{}, error) {
			return []interface{}{map[string]interface{}{
				"signature": sig.String(),
				"slot":      77,
				"err":       nil,
				"blockTime": 1_700_000_001,
			}}, nil
		}).
		Handle("getTransaction", func(json.RawMessage) (interface{}, error) {
			return map[string]interface{}{
				"slot": 77,
				"meta": map[string]interface{}{
					"err":         nil,
					"fee":         5000,
					"logMessages": sampleLogs,
				},
			}, nil
		})

	emitter := event.CreateEventEmitter()
	got := make(chan *PriceLog, 1)
	emitter.On("priceLog", func(object ...interface{}) {
		got <- object[0].(*PriceLog)
	})

	address := solana.MustPublicKeyFromBase58(sampleProgram)
	provider := CreatePollingLogProvider(server.Client(), address, rpc.CommitmentConfirmed, nil, nil, nil)
	subscriber := CreateEventSubscriberWithProvider(address, emitter, nil, provider)
	provider.callback = func(txSig solana.Signature, slot uint64, logs []string, blockTime int64) {
		subscriber.handleTxLogs(txSig, slot, logs, blockTime)
	}
	provider.Poll(context.Background())

	select {
	case priceLog := <-got:
		assert.Equal(t, int64(15_000_000_000), *priceLog.Price)
	case <-time.After(time.Second):
		t.Fatal("no price log emitted")
	}
	slot, lastSig := subscriber.LastSeen()
	assert.Equal(t, uint64(77), slot)
	assert.Equal(t, sig.String(), lastSig)

	// later polls pass the newest signature seen as the lower bound
	provider.Poll(context.Background())
	assert.Equal(t, 2, server.Calls("getSignaturesForAddress"))
}
