package accounts

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythgo/lib/pyth"
	"pythgo/lib/rpctest"
)

func TestBulkAccountLoaderLoad(t *testing.T) {
	owner := pyth.ReceiverProgramId.String()
	var mu sync.Mutex
	data := testPriceUpdateData(t, pyth.FeedBtcUsd, 100)
	slot := uint64(10)
	server := rpctest.NewServer(t).Handle("getMultipleAccounts", func(json.RawMessage) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		return rpctest.WithContext(slot, []interface{}{rpctest.Account(data, owner)}), nil
	})

	loader := CreateBulkAccountLoader(server.Client(), rpc.CommitmentConfirmed, 0, nil)
	key := solana.NewWallet().PublicKey()
	var seen []int64
	callbackId := loader.AddAccount(key, func(buffer []byte, _ uint64) {
		update, err := DecodePriceUpdate(buffer)
		require.NoError(t, err)
		seen = append(seen, update.PriceMessage.PublishTime)
	})

	loader.Load(context.Background())
	loader.Load(context.Background())
	assert.Equal(t, []int64{100}, seen, "unchanged bytes must not fire callbacks")

	mu.Lock()
	data = testPriceUpdateData(t, pyth.FeedBtcUsd, 101)
	slot = 11
	mu.Unlock()
	loader.Load(context.Background())
	assert.Equal(t, []int64{100, 101}, seen)
	assert.Equal(t, uint64(11), loader.GetSlot())
	assert.Equal(t, uint64(11), loader.GetBufferAndSlot(key).Slot)

	loader.RemoveAccount(key, callbackId)
	assert.Nil(t, loader.GetBufferAndSlot(key))
	loader.Load(context.Background())
	assert.Len(t, seen, 2)
}

func TestBulkAccountLoaderErrorCallbacks(t *testing.T) {
	server := rpctest.NewServer(t)
	loader := CreateBulkAccountLoader(server.Client(), rpc.CommitmentConfirmed, 0, nil)
	loader.AddAccount(solana.NewWallet().PublicKey(), func([]byte, uint64) {
		t.Fatal("callback must not fire on rpc error")
	})
	var errs []error
	loader.AddErrorCallbacks(func(err error) {
		errs = append(errs, err)
	})
	loader.Load(context.Background())
	assert.Len(t, errs, 1)
}

func TestBulkAccountLoaderPolling(t *testing.T) {
	owner := pyth.ReceiverProgramId.String()
	data := testPriceUpdateData(t, pyth.FeedEthUsd, 5)
	server := rpctest.NewServer(t).Handle("getMultipleAccounts", func(json.RawMessage) (interface{}, error) {
		return rpctest.WithContext(1, []interface{}{rpctest.Account(data, owner)}), nil
	})

	loader := CreateBulkAccountLoader(server.Client(), rpc.CommitmentConfirmed, 10*time.Millisecond, nil)
	fired := make(chan struct{}, 1)
	loader.AddAccount(solana.NewWallet().PublicKey(), func([]byte, uint64) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	loader.StartPolling()
	defer loader.StopPolling()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("polling never loaded the account")
	}
	assert.GreaterOrEqual(t, server.Calls("getMultipleAccounts"), 1)
}
