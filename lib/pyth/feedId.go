package pyth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// FeedIdLen is the byte length of a price feed identifier.
const FeedIdLen = 32

// ErrInvalidFeedId is returned for malformed or wrongly sized feed ids.
var ErrInvalidFeedId = errors.New("invalid feed id")

// FeedId identifies a Pyth price feed.
type FeedId [FeedIdLen]byte

// DecodeFeedId parses a hex feed id, with or without a leading "0x".
func DecodeFeedId(s string) (FeedId, error) {
	var id FeedId
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if s == "" {
		return id, fmt.Errorf("%w: empty", ErrInvalidFeedId)
	}
	if len(s) != FeedIdLen*2 {
		return id, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidFeedId, FeedIdLen*2, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidFeedId, err)
	}
	return id, nil
}

// MustDecodeFeedId is DecodeFeedId for package-level constants.
func MustDecodeFeedId(s string) FeedId {
	id, err := DecodeFeedId(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (f FeedId) String() string {
	return "0x" + hex.EncodeToString(f[:])
}

// Hex returns the id without the "0x" prefix, as Hermes expects it.
func (f FeedId) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f FeedId) Bytes() []byte {
	return f[:]
}

func (f FeedId) IsZero() bool {
	return f == FeedId{}
}

func (f FeedId) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FeedId) UnmarshalText(text []byte) error {
	id, err := DecodeFeedId(string(text))
	if err != nil {
		return err
	}
	*f = id
	return nil
}

// Well known feeds.
var (
	FeedBtcUsd  = MustDecodeFeedId("0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43")
	FeedSolUsd  = MustDecodeFeedId("0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d")
	FeedEthUsd  = MustDecodeFeedId("0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace")
	FeedUsdcUsd = MustDecodeFeedId("0xeaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a")
)

// KnownFeeds maps display symbols to feed ids.
var KnownFeeds = map[string]FeedId{
	"BTC/USD":  FeedBtcUsd,
	"SOL/USD":  FeedSolUsd,
	"ETH/USD":  FeedEthUsd,
	"USDC/USD": FeedUsdcUsd,
}
