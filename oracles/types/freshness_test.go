package types

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythgo/clock"
	"pythgo/lib/pyth"
)

const btcHex = "0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43"

func testRecord(level pyth.VerificationLevel, publishTime int64) *pyth.PriceUpdateV2 {
	return &pyth.PriceUpdateV2{
		VerificationLevel: level,
		PriceMessage: pyth.PriceFeedMessage{
			FeedId:          pyth.FeedBtcUsd,
			Price:           6_512_345_678_900,
			Conf:            2_345_678,
			Exponent:        -8,
			PublishTime:     publishTime,
			PrevPublishTime: publishTime - 1,
			EmaPrice:        6_500_000_000_000,
			EmaConf:         3_000_000,
		},
		PostedSlot: 42,
	}
}

// go test --run TestGetFreshPriceScenario

func TestGetFreshPriceScenario(t *testing.T) {
	const T = int64(1_700_000_000)
	record := testRecord(pyth.VerificationFull, T)

	point, err := GetFreshPriceFromHex(record, T+29, 30, btcHex)
	require.NoError(t, err)
	assert.Equal(t, T, point.PublishTime)
	assert.Equal(t, pyth.FeedBtcUsd, point.FeedId)

	_, err = GetFreshPriceFromHex(record, T+31, 30, btcHex)
	assert.ErrorIs(t, err, ErrStalePrice)

	_, err = GetFreshPriceFromHex(record, T+29, 30, btcHex[:65])
	assert.ErrorIs(t, err, ErrInvalidFeedId)
}

func TestGetFreshPriceAgeBoundary(t *testing.T) {
	const T = int64(1_700_000_000)
	record := testRecord(pyth.VerificationFull, T)
	cases := []struct {
		name   string
		now    int64
		maxAge uint64
		stale  bool
	}{
		{"same second", T, 0, false},
		{"exactly max age", T + 60, 60, false},
		{"one past max age", T + 61, 60, true},
		{"zero max age one second later", T + 1, 0, true},
		{"within skew", T - DefaultMaxClockSkew, 60, false},
		{"beyond skew", T - DefaultMaxClockSkew - 1, 60, true},
		{"huge max age", T + 1_000_000, math.MaxUint64, false},
		{"epoch now", 0, math.MaxUint64, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			point, err := GetFreshPrice(record, c.now, c.maxAge, pyth.FeedBtcUsd)
			if c.stale {
				assert.ErrorIs(t, err, ErrStalePrice)
				assert.Nil(t, point)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &PricePoint{
				FeedId:      pyth.FeedBtcUsd,
				Price:       record.PriceMessage.Price,
				Conf:        record.PriceMessage.Conf,
				Exponent:    record.PriceMessage.Exponent,
				PublishTime: record.PriceMessage.PublishTime,
			}, point)
		})
	}
}

func TestGetFreshPriceExtremeTimes(t *testing.T) {
	record := testRecord(pyth.VerificationFull, math.MinInt64)
	_, err := GetFreshPrice(record, math.MaxInt64, math.MaxUint64, pyth.FeedBtcUsd)
	require.NoError(t, err)
	_, err = GetFreshPrice(record, math.MaxInt64, math.MaxInt64-1, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrStalePrice)

	future := testRecord(pyth.VerificationFull, math.MaxInt64)
	_, err = GetFreshPrice(future, math.MinInt64, math.MaxUint64, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrStalePrice)
}

func TestGetFreshPriceFeedMismatch(t *testing.T) {
	record := testRecord(pyth.VerificationFull, 100)
	_, err := GetFreshPrice(record, 100, 30, pyth.FeedEthUsd)
	assert.ErrorIs(t, err, ErrFeedMismatch)

	_, err = GetFreshPrice(nil, 100, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrFeedMismatch)

	var missing *pyth.PriceUpdateV2
	_, err = GetFreshPrice(missing, 100, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrFeedMismatch)
}

func TestGetFreshPriceVerification(t *testing.T) {
	record := testRecord(pyth.VerificationPartial(5), 100)
	_, err := GetFreshPrice(record, 100, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrInsufficientVerification)

	lenient := CreateReader(clock.FixedClock(100), WithMinVerification(pyth.VerificationPartial(3)))
	_, err = lenient.GetFreshPrice(record, 100, 30, pyth.FeedBtcUsd)
	assert.NoError(t, err)

	strict := CreateReader(clock.FixedClock(100), WithMinVerification(pyth.VerificationPartial(6)))
	_, err = strict.GetFreshPrice(record, 100, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrInsufficientVerification)
}

func TestGetFreshPriceIdempotent(t *testing.T) {
	record := testRecord(pyth.VerificationFull, 500)
	before := *record
	first, err1 := GetFreshPrice(record, 510, 30, pyth.FeedBtcUsd)
	second, err2 := GetFreshPrice(record, 510, 30, pyth.FeedBtcUsd)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, before, *record)
}

func TestReaderClock(t *testing.T) {
	record := testRecord(pyth.VerificationFull, 1_000)

	point, err := CreateReader(clock.FixedClock(1_020)).Read(context.Background(), record, 30, pyth.FeedBtcUsd)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), point.PublishTime)

	point, err = CreateReader(clock.FixedClock(1_020)).ReadHex(context.Background(), record, 30, btcHex)
	require.NoError(t, err)
	assert.Equal(t, pyth.FeedBtcUsd, point.FeedId)

	failing := clock.FuncClock(func(context.Context) (int64, error) {
		return 0, errors.New("sysvar fetch failed")
	})
	_, err = CreateReader(failing).Read(context.Background(), record, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrClockUnavailable)

	_, err = CreateReader(nil).Read(context.Background(), record, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrClockUnavailable)
}

func TestReaderSkewOption(t *testing.T) {
	record := testRecord(pyth.VerificationFull, 1_000)
	strict := CreateReader(clock.FixedClock(0), WithMaxClockSkew(0))
	_, err := strict.GetFreshPrice(record, 999, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrStalePrice)

	loose := CreateReader(clock.FixedClock(0), WithMaxClockSkew(120))
	_, err = loose.GetFreshPrice(record, 900, 30, pyth.FeedBtcUsd)
	assert.NoError(t, err)
}

func TestReaderLogsPrice(t *testing.T) {
	log, hook := test.NewNullLogger()
	reader := CreateReader(clock.FixedClock(1_005), WithLogger(log))
	point, err := reader.Read(context.Background(), testRecord(pyth.VerificationFull, 1_000), 30, pyth.FeedBtcUsd)
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Price: (6512345678900 ± 2345678) * 10^-8", entry.Message)
	assert.Equal(t, point.String(), entry.Message[len("Price: "):])
	assert.Equal(t, int64(5), entry.Data["age"])
	assert.Equal(t, btcHex, entry.Data["feed_id"])

	hook.Reset()
	_, err = reader.GetFreshPrice(testRecord(pyth.VerificationFull, 1_000), 2_000, 30, pyth.FeedBtcUsd)
	assert.ErrorIs(t, err, ErrStalePrice)
	assert.Empty(t, hook.AllEntries())
}

func TestPricePointDecimals(t *testing.T) {
	point := &PricePoint{Price: 6_512_345_678_900, Conf: 2_345_678, Exponent: -8}
	assert.Equal(t, "65123.456789", point.Value().String())
	assert.Equal(t, "0.02345678", point.Confidence().String())
}
