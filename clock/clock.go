package clock

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrClockUnavailable is returned when the current network time cannot be read.
var ErrClockUnavailable = errors.New("clock unavailable")

// IClock supplies the current time in unix seconds.
type IClock interface {
	UnixTimestamp(ctx context.Context) (int64, error)
}

type SystemClock struct{}

func (SystemClock) UnixTimestamp(context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

// FixedClock always reports the same instant.
type FixedClock int64

func (c FixedClock) UnixTimestamp(context.Context) (int64, error) {
	return int64(c), nil
}

// FuncClock adapts a function.
type FuncClock func(ctx context.Context) (int64, error)

func (f FuncClock) UnixTimestamp(ctx context.Context) (int64, error) {
	return f(ctx)
}

// SysvarClock mirrors the Solana clock sysvar.
type SysvarClock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func (c *SysvarClock) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if c.Slot, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if c.EpochStartTimestamp, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	if c.Epoch, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if c.LeaderScheduleEpoch, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	c.UnixTimestamp, err = decoder.ReadInt64(binary.LittleEndian)
	return err
}

// RpcClock reads network time from the clock sysvar on every call.
type RpcClock struct {
	connection *rpc.Client
	commitment rpc.CommitmentType
}

func CreateRpcClock(connection *rpc.Client, commitment rpc.CommitmentType) *RpcClock {
	return &RpcClock{
		connection: connection,
		commitment: commitment,
	}
}

func (p *RpcClock) GetSysvarClock(ctx context.Context) (*SysvarClock, error) {
	out, err := p.connection.GetAccountInfoWithOpts(ctx, solana.SysVarClockPubkey, &rpc.GetAccountInfoOpts{
		Commitment: p.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("%w: clock sysvar not returned", ErrClockUnavailable)
	}
	var sysvar SysvarClock
	if err = bin.NewBorshDecoder(out.GetBinary()).Decode(&sysvar); err != nil {
		return nil, fmt.Errorf("%w: decode clock sysvar: %v", ErrClockUnavailable, err)
	}
	return &sysvar, nil
}

func (p *RpcClock) UnixTimestamp(ctx context.Context) (int64, error) {
	sysvar, err := p.GetSysvarClock(ctx)
	if err != nil {
		return 0, err
	}
	return sysvar.UnixTimestamp, nil
}
