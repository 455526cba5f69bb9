package clock

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythgo/lib/rpctest"
)

func encodeSysvar(c SysvarClock) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, c)
	return buf.Bytes()
}

func TestRpcClock(t *testing.T) {
	want := SysvarClock{
		Slot:                312_000_000,
		EpochStartTimestamp: 1_699_900_000,
		Epoch:               720,
		LeaderScheduleEpoch: 721,
		UnixTimestamp:       1_700_000_029,
	}
	server := rpctest.NewServer(t).Handle("getAccountInfo", func(json.RawMessage) (interface{}, error) {
		return rpctest.WithContext(want.Slot, rpctest.Account(encodeSysvar(want), "Sysvar1111111111111111111111111111111111111")), nil
	})

	clock := CreateRpcClock(server.Client(), rpc.CommitmentConfirmed)
	sysvar, err := clock.GetSysvarClock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, *sysvar)

	now, err := clock.UnixTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_029), now)
}

func TestRpcClockUnavailable(t *testing.T) {
	server := rpctest.NewServer(t).Handle("getAccountInfo", func(json.RawMessage) (interface{}, error) {
		return nil, errors.New("node is behind")
	})
	_, err := CreateRpcClock(server.Client(), rpc.CommitmentConfirmed).UnixTimestamp(context.Background())
	assert.ErrorIs(t, err, ErrClockUnavailable)

	truncated := rpctest.NewServer(t).Handle("getAccountInfo", func(json.RawMessage) (interface{}, error) {
		return rpctest.WithContext(1, rpctest.Account([]byte{1, 2, 3}, "Sysvar1111111111111111111111111111111111111")), nil
	})
	_, err = CreateRpcClock(truncated.Client(), rpc.CommitmentConfirmed).UnixTimestamp(context.Background())
	assert.ErrorIs(t, err, ErrClockUnavailable)
}

func TestStaticClocks(t *testing.T) {
	now, err := FixedClock(42).UnixTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), now)

	failing := FuncClock(func(context.Context) (int64, error) { return 0, ErrClockUnavailable })
	_, err = failing.UnixTimestamp(context.Background())
	assert.ErrorIs(t, err, ErrClockUnavailable)

	now, err = SystemClock{}.UnixTimestamp(context.Background())
	require.NoError(t, err)
	assert.Greater(t, now, int64(1_600_000_000))
}
