package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pythgo/accounts"
	"pythgo/addresses"
	"pythgo/clock"
	"pythgo/lib/event"
	"pythgo/lib/pyth"
	"pythgo/logger"
	pythmath "pythgo/math"
	"pythgo/metrics"
	oracles "pythgo/oracles/types"
)

const (
	EventPrice = "price"
	EventStale = "stale"
	EventError = "error"
)

var ErrNotLoaded = errors.New("price update not loaded")

var ErrConfidenceTooLarge = errors.New("confidence interval too large")

type WatchedFeed struct {
	Name    string
	FeedId  pyth.FeedId
	Account solana.PublicKey // explicit price update account, zero to derive it
}

type WatcherConfig struct {
	Schedule string
	Feeds    []WatchedFeed
	MaxAge   uint64
	Source   oracles.OracleSource
	// MaxConfidenceRatio rejects fresh prices whose conf / |price| is larger.
	// Zero disables the check.
	MaxConfidenceRatio decimal.Decimal
}

// Reading is the outcome of one feed in one tick. Exactly one of Point and Err
// is set.
type Reading struct {
	Feed  WatchedFeed
	Point *oracles.PricePoint
	Err   error
	Time  int64
}

// Watcher runs the freshness check over a set of feeds on a cron schedule and
// reports every outcome as an event and as metrics.
type Watcher struct {
	config     WatcherConfig
	clients    *oracles.OracleClientCache
	reader     *oracles.Reader
	clock      clock.IClock
	collector  *metrics.Collector
	emitter    *event.EventEmitter
	syncEvents bool
	log        logrus.FieldLogger

	loader     *accounts.BulkAccountLoader
	loaded     map[pyth.FeedId]*pyth.PriceUpdateV2
	shardId    uint16
	pushOracle solana.PublicKey

	cron    *cron.Cron
	mxState *sync.RWMutex
}

type WatcherOption func(*Watcher)

func WithCollector(collector *metrics.Collector) WatcherOption {
	return func(p *Watcher) {
		p.collector = collector
	}
}

func WithEventEmitter(emitter *event.EventEmitter) WatcherOption {
	return func(p *Watcher) {
		p.emitter = emitter
	}
}

// WithSyncEvents runs listeners on the ticking goroutine, in feed order,
// before Tick returns.
func WithSyncEvents() WatcherOption {
	return func(p *Watcher) {
		p.syncEvents = true
	}
}

func WithLogger(log logrus.FieldLogger) WatcherOption {
	return func(p *Watcher) {
		if log != nil {
			p.log = log
		}
	}
}

// WithAccountLoader reads push oracle accounts in batches through loader
// instead of one request per feed.
func WithAccountLoader(loader *accounts.BulkAccountLoader, shardId uint16, pushOracleProgramId solana.PublicKey) WatcherOption {
	return func(p *Watcher) {
		p.loader = loader
		p.shardId = shardId
		p.pushOracle = pushOracleProgramId
	}
}

func CreateWatcher(
	config WatcherConfig,
	clients *oracles.OracleClientCache,
	reader *oracles.Reader,
	clk clock.IClock,
	opts ...WatcherOption,
) *Watcher {
	p := &Watcher{
		config:  config,
		clients: clients,
		reader:  reader,
		clock:   clk,
		emitter: event.CreateEventEmitter(),
		log:     logrus.StandardLogger(),
		loaded:  make(map[pyth.FeedId]*pyth.PriceUpdateV2),
		mxState: new(sync.RWMutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loader != nil {
		p.registerAccounts()
	}
	return p
}

func (p *Watcher) EventEmitter() *event.EventEmitter {
	return p.emitter
}

func (p *Watcher) registerAccounts() {
	for _, feed := range p.config.Feeds {
		account := feed.Account
		if account.IsZero() {
			account = addresses.GetPriceFeedAccountPublicKey(p.shardId, feed.FeedId, p.pushOracle)
		}
		feedId := feed.FeedId
		p.loader.AddAccount(account, func(buffer []byte, slot uint64) {
			priceUpdate, err := accounts.DecodePriceUpdate(buffer)
			if err != nil {
				logger.WithFeed(p.log, feedId, "").WithError(err).Warn("Undecodable price update account")
				return
			}
			defer p.mxState.Unlock()
			p.mxState.Lock()
			p.loaded[feedId] = priceUpdate
		})
	}
}

func (p *Watcher) record(ctx context.Context, feed WatchedFeed) (oracles.PriceUpdateRecord, error) {
	if p.loader != nil {
		p.mxState.RLock()
		priceUpdate := p.loaded[feed.FeedId]
		p.mxState.RUnlock()
		if priceUpdate == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotLoaded, feed.Name)
		}
		return priceUpdate, nil
	}
	client, err := p.clients.Get(p.config.Source)
	if err != nil {
		return nil, err
	}
	return client.GetPriceUpdate(ctx, oracles.OracleInfo{
		FeedId:    feed.FeedId,
		PublicKey: feed.Account,
		Source:    p.config.Source,
	})
}

// Tick reads every feed once.
func (p *Watcher) Tick(ctx context.Context) []*Reading {
	if p.loader != nil {
		p.loader.Load(ctx)
	}
	now, err := p.now(ctx)
	readings := make([]*Reading, 0, len(p.config.Feeds))
	for _, feed := range p.config.Feeds {
		reading := &Reading{Feed: feed, Time: now}
		if err != nil {
			reading.Err = err
		} else {
			reading.Point, reading.Err = p.read(ctx, feed, now)
		}
		p.report(reading)
		readings = append(readings, reading)
	}
	return readings
}

func (p *Watcher) now(ctx context.Context) (int64, error) {
	if p.clock == nil {
		return 0, fmt.Errorf("%w: no clock configured", oracles.ErrClockUnavailable)
	}
	now, err := p.clock.UnixTimestamp(ctx)
	if err != nil && !errors.Is(err, oracles.ErrClockUnavailable) {
		err = fmt.Errorf("%w: %v", oracles.ErrClockUnavailable, err)
	}
	return now, err
}

func (p *Watcher) read(ctx context.Context, feed WatchedFeed, now int64) (*oracles.PricePoint, error) {
	record, err := p.record(ctx, feed)
	if err != nil {
		return nil, err
	}
	point, err := p.reader.GetFreshPrice(record, now, p.config.MaxAge, feed.FeedId)
	if err != nil {
		return nil, err
	}
	if p.config.MaxConfidenceRatio.IsPositive() && pythmath.IsConfidenceTooLarge(point, p.config.MaxConfidenceRatio) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrConfidenceTooLarge, feed.Name, point)
	}
	return point, nil
}

func (p *Watcher) report(reading *Reading) {
	log := logger.WithFeed(p.log, reading.Feed.FeedId, reading.Feed.Name)
	switch {
	case reading.Err == nil:
		if p.collector != nil {
			p.collector.RecordPrice(reading.Feed.Name, reading.Point, reading.Time)
		}
		p.emit(EventPrice, reading.Feed.Name, reading.Point)
	case errors.Is(reading.Err, oracles.ErrStalePrice):
		log.WithError(reading.Err).Warn("Stale price")
		if p.collector != nil {
			p.collector.RecordStale(reading.Feed.Name)
		}
		p.emit(EventStale, reading.Feed.Name, reading.Err)
	default:
		log.WithError(reading.Err).Error("Price read failed")
		if p.collector != nil {
			p.collector.RecordError(reading.Feed.Name)
		}
		p.emit(EventError, reading.Feed.Name, reading.Err)
	}
}

func (p *Watcher) emit(name string, object ...interface{}) {
	if p.syncEvents {
		p.emitter.EmitSync(name, object...)
		return
	}
	p.emitter.Emit(name, object...)
}

// Start schedules Tick. Each run gets a context bounded by timeout.
func (p *Watcher) Start(timeout time.Duration) error {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	if p.cron != nil {
		return nil
	}
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := scheduler.AddFunc(p.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", p.config.Schedule, err)
	}
	scheduler.Start()
	p.cron = scheduler
	return nil
}

// Stop waits for a running tick to finish.
func (p *Watcher) Stop() {
	p.mxState.Lock()
	scheduler := p.cron
	p.cron = nil
	p.mxState.Unlock()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if p.loader != nil {
		p.loader.StopPolling()
	}
}
