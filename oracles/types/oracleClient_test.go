package types

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythgo/addresses"
	"pythgo/clock"
	"pythgo/hermes"
	"pythgo/lib/pyth"
	"pythgo/lib/rpctest"
)

func TestPythPullClient(t *testing.T) {
	data, err := testRecord(pyth.VerificationFull, 2_000).MarshalBinary()
	require.NoError(t, err)

	var requested []string
	server := rpctest.NewServer(t).Handle("getAccountInfo", func(params json.RawMessage) (interface{}, error) {
		var args []interface{}
		_ = json.Unmarshal(params, &args)
		requested = append(requested, args[0].(string))
		return rpctest.WithContext(9, rpctest.Account(data, pyth.ReceiverProgramId.String())), nil
	})

	client := CreatePythPullClient(server.Client(), rpc.CommitmentConfirmed, 0)
	record, err := client.GetPriceUpdate(context.Background(), OracleInfo{FeedId: pyth.FeedBtcUsd})
	require.NoError(t, err)

	point, err := CreateReader(clock.FixedClock(2_010)).Read(context.Background(), record, 30, pyth.FeedBtcUsd)
	require.NoError(t, err)
	assert.Equal(t, int64(6_512_345_678_900), point.Price)

	explicit := solana.NewWallet().PublicKey()
	_, err = client.GetPriceUpdate(context.Background(), OracleInfo{FeedId: pyth.FeedBtcUsd, PublicKey: explicit})
	require.NoError(t, err)

	require.Len(t, requested, 2)
	assert.Equal(t, addresses.GetPriceFeedAccountPublicKey(0, pyth.FeedBtcUsd).String(), requested[0])
	assert.Equal(t, explicit.String(), requested[1])
}

func TestHermesClientAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"binary":{"encoding":"hex","data":[]},"parsed":[{
			"id":"ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
			"price":{"price":"300012345678","conf":"150000000","expo":-8,"publish_time":5000},
			"ema_price":{"price":"300000000000","conf":"160000000","expo":-8,"publish_time":5000},
			"metadata":{"slot":1,"proof_available_time":5001,"prev_publish_time":4999}}]}`))
	}))
	defer server.Close()

	cache := CreateOracleClientCache(OracleClientConfig{Hermes: hermes.CreateClient(server.URL)})
	client, err := cache.Get(OracleSourceHermes)
	require.NoError(t, err)
	again, err := cache.Get(OracleSourceHermes)
	require.NoError(t, err)
	assert.Same(t, client, again)

	record, err := client.GetPriceUpdate(context.Background(), OracleInfo{FeedId: pyth.FeedEthUsd})
	require.NoError(t, err)
	point, err := GetFreshPrice(record, 5_010, 30, pyth.FeedEthUsd)
	require.NoError(t, err)
	assert.Equal(t, "3000.12345678", point.Value().String())

	_, err = GetFreshPrice(record, 5_010, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrFeedMismatch)
}

func TestGetOracleClient(t *testing.T) {
	_, err := GetOracleClient(OracleSourcePythPull, OracleClientConfig{})
	assert.Error(t, err)

	_, err = GetOracleClient("switchboard", OracleClientConfig{})
	assert.Error(t, err)

	client, err := GetOracleClient("", OracleClientConfig{Connection: rpc.New("http://127.0.0.1:1")})
	require.NoError(t, err)
	assert.IsType(t, &PythPullClient{}, client)
}
