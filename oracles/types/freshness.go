package types

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"pythgo/clock"
	"pythgo/lib/pyth"
)

// DefaultMaxClockSkew is how far in the future a publish time may be before the
// price is rejected.
const DefaultMaxClockSkew = int64(10)

// Reader performs the "fresh price or fail" check.
type Reader struct {
	clock           clock.IClock
	maxClockSkew    int64
	minVerification pyth.VerificationLevel
	log             logrus.FieldLogger
}

type ReaderOption func(*Reader)

func WithMaxClockSkew(seconds int64) ReaderOption {
	return func(p *Reader) {
		p.maxClockSkew = max(0, seconds)
	}
}

// WithMinVerification lowers or raises the required verification level. The
// default is full verification.
func WithMinVerification(level pyth.VerificationLevel) ReaderOption {
	return func(p *Reader) {
		p.minVerification = level
	}
}

func WithLogger(log logrus.FieldLogger) ReaderOption {
	return func(p *Reader) {
		if log != nil {
			p.log = log
		}
	}
}

func CreateReader(clk clock.IClock, opts ...ReaderOption) *Reader {
	p := &Reader{
		clock:           clk,
		maxClockSkew:    DefaultMaxClockSkew,
		minVerification: pyth.VerificationFull,
		log:             discardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var defaultReader = CreateReader(clock.SystemClock{})

// GetFreshPrice returns the price of feedId in record if it is no older than
// maxAgeSeconds at currentTime.
func GetFreshPrice(
	record PriceUpdateRecord,
	currentTime int64,
	maxAgeSeconds uint64,
	feedId pyth.FeedId,
) (*PricePoint, error) {
	return defaultReader.GetFreshPrice(record, currentTime, maxAgeSeconds, feedId)
}

// GetFreshPriceFromHex is GetFreshPrice with a hex feed id.
func GetFreshPriceFromHex(
	record PriceUpdateRecord,
	currentTime int64,
	maxAgeSeconds uint64,
	feedIdHex string,
) (*PricePoint, error) {
	feedId, err := pyth.DecodeFeedId(feedIdHex)
	if err != nil {
		return nil, err
	}
	return defaultReader.GetFreshPrice(record, currentTime, maxAgeSeconds, feedId)
}

// Read takes the current time from the reader's clock.
func (p *Reader) Read(
	ctx context.Context,
	record PriceUpdateRecord,
	maxAgeSeconds uint64,
	feedId pyth.FeedId,
) (*PricePoint, error) {
	if p.clock == nil {
		return nil, fmt.Errorf("%w: no clock configured", ErrClockUnavailable)
	}
	now, err := p.clock.UnixTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	return p.GetFreshPrice(record, now, maxAgeSeconds, feedId)
}

func (p *Reader) ReadHex(
	ctx context.Context,
	record PriceUpdateRecord,
	maxAgeSeconds uint64,
	feedIdHex string,
) (*PricePoint, error) {
	feedId, err := pyth.DecodeFeedId(feedIdHex)
	if err != nil {
		return nil, err
	}
	return p.Read(ctx, record, maxAgeSeconds, feedId)
}

func (p *Reader) GetFreshPrice(
	record PriceUpdateRecord,
	currentTime int64,
	maxAgeSeconds uint64,
	feedId pyth.FeedId,
) (*PricePoint, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: no record for %s", ErrFeedMismatch, feedId)
	}
	message, level, ok := record.PriceMessageFor(feedId)
	if !ok || message == nil {
		return nil, fmt.Errorf("%w: %s", ErrFeedMismatch, feedId)
	}
	if !level.GreaterOrEqual(p.minVerification) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientVerification, level, p.minVerification)
	}

	age := saturatingSub(currentTime, message.PublishTime)
	if maxAgeSeconds <= math.MaxInt64 && age > int64(maxAgeSeconds) {
		return nil, fmt.Errorf("%w: %s published at %d is %ds old, max %ds",
			ErrStalePrice, feedId, message.PublishTime, age, maxAgeSeconds)
	}
	if age < -p.maxClockSkew {
		return nil, fmt.Errorf("%w: %s published at %d is %ds in the future",
			ErrStalePrice, feedId, message.PublishTime, -age)
	}

	point := &PricePoint{
		FeedId:      feedId,
		Price:       message.Price,
		Conf:        message.Conf,
		Exponent:    message.Exponent,
		PublishTime: message.PublishTime,
	}
	p.log.WithFields(logrus.Fields{
		"feed_id":      feedId.String(),
		"price":        point.Price,
		"conf":         point.Conf,
		"exponent":     point.Exponent,
		"publish_time": point.PublishTime,
		"age":          age,
	}).Infof("Price: %s", point)
	return point, nil
}

func saturatingSub(a, b int64) int64 {
	c := a - b
	if b > 0 && c > a {
		return math.MinInt64
	}
	if b < 0 && c < a {
		return math.MaxInt64
	}
	return c
}
