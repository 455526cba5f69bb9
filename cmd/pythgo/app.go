package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"pythgo"
	"pythgo/accounts"
	"pythgo/addresses"
	"pythgo/anchor"
	"pythgo/clock"
	"pythgo/config"
	"pythgo/connection"
	"pythgo/consumer"
	"pythgo/events"
	"pythgo/hermes"
	"pythgo/lib/pyth"
	"pythgo/logger"
	pythmath "pythgo/math"
	"pythgo/metrics"
	oracles "pythgo/oracles/types"
	"pythgo/priorityFee"
	"pythgo/tx"
	"pythgo/watcher"
)

type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	debug   bool
	stdout  io.Writer
	manager *connection.Manager
}

func newApp(configPath, envFile string, debug bool, stdout, stderr io.Writer) (*app, error) {
	if err := config.LoadEnvFiles(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	manager := connection.CreateManager()
	manager.AddConfig(cfg.Connection)
	return &app{
		cfg:     cfg,
		log:     logger.NewWithOutput(stderr, level, cfg.Logging.Json),
		debug:   debug,
		stdout:  stdout,
		manager: manager,
	}, nil
}

func (p *app) rpc() *rpc.Client {
	return p.manager.GetRpc()
}

func (p *app) dump(label string, value interface{}) {
	if p.debug {
		spew.Fdump(p.stdout, label, value)
	}
}

func (p *app) oracleClients() *oracles.OracleClientCache {
	return oracles.CreateOracleClientCache(oracles.OracleClientConfig{
		Connection:          p.rpc(),
		Commitment:          p.cfg.Commitment,
		ShardId:             p.cfg.ShardId,
		PushOracleProgramId: p.cfg.GetPushOracleProgramId(),
		Hermes:              hermes.CreateClient(p.cfg.HermesUrl),
	})
}

// clockFor picks network time for on-chain reads and wall time for Hermes. A
// non-zero at replays a fixed instant.
func (p *app) clockFor(source oracles.OracleSource, at int64) clock.IClock {
	switch {
	case at != 0:
		return clock.FixedClock(at)
	case source == oracles.OracleSourceHermes:
		return clock.SystemClock{}
	default:
		return clock.CreateRpcClock(p.rpc(), p.cfg.Commitment)
	}
}

func parsePublicKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("-%s: %w", name, err)
	}
	return key, nil
}

func (p *app) read(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	feed := fs.String("feed", "", "feed name or hex id, defaults to the program's fixed feed")
	program := fs.String("program", "", "configured deployment whose feed and max age apply")
	account := fs.String("account", "", "price update account, derived from the feed when empty")
	maxAge := fs.Uint64("max-age", p.cfg.MaxAge, "maximum age in seconds, defaults to the program's")
	source := fs.String("source", string(oracles.OracleSourcePythPull), "pyth_pull or hermes")
	skew := fs.Int64("skew", p.cfg.MaxClockSkew, "seconds a publish time may lie in the future")
	partial := fs.Bool("allow-partial", false, "accept partially verified updates")
	at := fs.Int64("at", 0, "evaluate at this unix time instead of the current one")
	asJson := fs.Bool("json", false, "print the price point as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	feedArg, age := *feed, *maxAge
	if *program != "" {
		deployment, err := p.cfg.Deployment(*program)
		if err != nil {
			return err
		}
		if !isFlagSet(fs, "max-age") {
			age = deployment.GetMaxAge()
		}
		if fixed, ok, err := deployment.GetFeedId(); err != nil {
			return err
		} else if ok && feedArg == "" {
			feedArg = fixed.String()
		}
	}
	feedId, err := p.cfg.ResolveFeed(feedArg)
	if err != nil {
		return err
	}
	accountKey, err := parsePublicKey("account", *account)
	if err != nil {
		return err
	}

	oracleSource := oracles.OracleSource(*source)
	client, err := p.oracleClients().Get(oracleSource)
	if err != nil {
		return err
	}
	record, err := client.GetPriceUpdate(ctx, oracles.OracleInfo{
		FeedId:    feedId,
		PublicKey: accountKey,
		Source:    oracleSource,
	})
	if err != nil {
		return err
	}
	p.dump("record", record)

	opts := []oracles.ReaderOption{
		oracles.WithMaxClockSkew(*skew),
		oracles.WithLogger(logger.WithFeed(p.log, feedId, p.cfg.FeedName(feedId))),
	}
	if *partial {
		opts = append(opts, oracles.WithMinVerification(pyth.VerificationPartial(0)))
	}
	point, err := oracles.CreateReader(p.clockFor(oracleSource, *at), opts...).Read(ctx, record, age, feedId)
	if err != nil {
		return err
	}
	if *asJson {
		encoder := json.NewEncoder(p.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(point)
	}
	fmt.Fprintf(p.stdout, "Price: %s\n", point)
	fmt.Fprintf(p.stdout, "Value: %s ± %s\n", point.Value(), point.Confidence())
	if ratio, err := pythmath.ConfidenceRatio(point); err == nil {
		fmt.Fprintf(p.stdout, "Confidence ratio: %s\n", ratio.StringFixed(6))
	}
	fmt.Fprintf(p.stdout, "Feed ID: %s\n", point.FeedId)
	fmt.Fprintf(p.stdout, "Publish Time: %d\n", point.PublishTime)
	return nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func (p *app) address(args []string) error {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	feed := fs.String("feed", "", "feed name or hex id")
	shard := fs.Uint("shard", uint(p.cfg.ShardId), "push oracle shard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *shard > 0xffff {
		return fmt.Errorf("-shard %d does not fit in 16 bits", *shard)
	}
	feedId, err := p.cfg.ResolveFeed(*feed)
	if err != nil {
		return err
	}
	address, bump := addresses.GetPriceFeedAccountPublicKeyAndNonce(uint16(*shard), feedId, p.cfg.GetPushOracleProgramId())
	fmt.Fprintln(p.stdout, address)
	p.log.WithFields(logrus.Fields{"feed_id": feedId.String(), "shard": *shard, "bump": bump}).Debug("Derived price feed account")
	return nil
}

type invokeOptions struct {
	keypair      string
	priorityFees bool
	cuLimit      uint32
	check        bool
}

func (p *app) consumerClient(ctx context.Context, name string, options invokeOptions) (*consumer.ConsumerClient, func(), error) {
	deployment, err := p.cfg.Deployment(name)
	if err != nil {
		return nil, nil, err
	}
	programId, err := deployment.GetProgramId()
	if err != nil {
		return nil, nil, err
	}
	if options.keypair == "" {
		return nil, nil, fmt.Errorf("no keypair: pass -keypair or set %s", config.EnvKeypair)
	}
	wallet, err := pythgo.LoadWallet(options.keypair)
	if err != nil {
		return nil, nil, err
	}
	opts := pythgo.DefaultConfirmOptions
	opts.Commitment = p.cfg.Commitment
	provider := anchor.CreateAnchorProvider(wallet, opts, p.manager)
	program := anchor.CreateProgram(programId, provider)

	clientOpts := []consumer.ConsumerClientOption{
		consumer.WithShard(p.cfg.ShardId, p.cfg.GetPushOracleProgramId()),
		consumer.WithLogger(p.log),
	}
	if options.cuLimit == 0 {
		clientOpts = append(clientOpts, consumer.WithSimulatedComputeUnits(&tx.ProcessingTxParams{
			UseSimulatedComputeUnits:     true,
			ComputeUnitsBufferMultiplier: tx.COMPUTE_UNIT_BUFFER_FACTOR,
		}))
	}
	if options.check {
		reader := oracles.CreateReader(
			clock.CreateRpcClock(p.rpc(), p.cfg.Commitment),
			oracles.WithMaxClockSkew(p.cfg.MaxClockSkew),
			oracles.WithLogger(p.log),
		)
		clientOpts = append(clientOpts, consumer.WithFreshnessCheck(reader, p.cfg.Commitment))
	}
	release := func() {}
	if options.priorityFees {
		subscriber := priorityFee.CreatePriorityFeeSubscriber(priorityFee.PriorityFeeSubscriberConfig{
			Connection: p.rpc(),
			Addresses:  []solana.PublicKey{programId},
		})
		if err = subscriber.Subscribe(ctx); err != nil {
			return nil, nil, err
		}
		release = subscriber.Unsubscribe
		clientOpts = append(clientOpts, consumer.WithPriorityFee(subscriber, options.cuLimit))
	}
	client := consumer.CreateConsumerClient(program, *deployment, tx.CreateBaseTxSender(p.rpc(), wallet, &opts), clientOpts...)
	return client, release, nil
}

func (p *app) invoke(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("invoke", flag.ContinueOnError)
	program := fs.String("program", "get_prices_onchain", "configured deployment name")
	feed := fs.String("feed", "", "feed name or hex id, defaults to the program's fixed feed")
	account := fs.String("account", "", "price update account, derived from the feed when empty")
	keypair := fs.String("keypair", p.cfg.Keypair, "payer keypair file")
	send := fs.Bool("send", false, "land the transaction instead of simulating it")
	cuPrice := fs.Uint64("cu-price", 0, "compute unit price in micro lamports")
	cuLimit := fs.Uint("cu-limit", 0, "compute unit limit, sized from a simulation when 0")
	priorityFees := fs.Bool("priority-fee", false, "price compute units from recent prioritization fees")
	check := fs.Bool("check", true, "check the price update against the program's max age before invoking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cuLimit > uint(tx.MAX_COMPUTE_UNITS) {
		return fmt.Errorf("-cu-limit %d exceeds %d", *cuLimit, tx.MAX_COMPUTE_UNITS)
	}
	client, release, err := p.consumerClient(ctx, *program, invokeOptions{
		keypair:      *keypair,
		priorityFees: *priorityFees,
		cuLimit:      uint32(*cuLimit),
		check:        *check,
	})
	if err != nil {
		return err
	}
	defer release()
	params := &consumer.InvokeParams{}
	if *feed != "" {
		feedId, err := p.cfg.ResolveFeed(*feed)
		if err != nil {
			return err
		}
		params.FeedId = &feedId
	}
	if params.PriceUpdate, err = parsePublicKey("account", *account); err != nil {
		return err
	}
	if *cuPrice > 0 {
		params.TxParams = &pythgo.BaseTxParams{ComputeUnits: uint32(*cuLimit), ComputeUnitsPrice: *cuPrice}
	}

	var result *consumer.InvokeResult
	if *send {
		result, err = client.Send(ctx, params)
	} else {
		result, err = client.Simulate(ctx, params)
	}
	if result != nil {
		p.dump("result", result)
		for _, line := range result.Logs {
			fmt.Fprintln(p.stdout, line)
		}
		if result.Checked != nil {
			fmt.Fprintf(p.stdout, "Checked: %s published at %d\n", result.Checked, result.Checked.PublishTime)
		}
		if result.PriceLog != nil {
			fmt.Fprintln(p.stdout, result.PriceLog)
		}
		if !result.Simulated {
			fmt.Fprintf(p.stdout, "Transaction: %s\n", result.TxSig)
		}
	}
	return err
}

func (p *app) feeds(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("feeds", flag.ContinueOnError)
	query := fs.String("query", "", "symbol filter")
	assetType := fs.String("asset-type", "", "crypto, fx, equity, metal, rates")
	onchain := fs.Bool("onchain", false, "list posted price update accounts instead of the Hermes catalog")
	feed := fs.String("feed", "", "with -onchain, only accounts of this feed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *onchain {
		var feedId *pyth.FeedId
		if *feed != "" {
			id, err := p.cfg.ResolveFeed(*feed)
			if err != nil {
				return err
			}
			feedId = &id
		}
		results, err := accounts.FetchProgramPriceUpdates(ctx, p.rpc(), p.cfg.GetReceiverProgramId(), p.cfg.Commitment, feedId)
		if err != nil {
			return err
		}
		for _, result := range results {
			if result.Err != nil {
				p.log.WithError(result.Err).Warn("Skipping account")
				continue
			}
			message := result.Data.PriceMessage
			fmt.Fprintf(p.stdout, "%s\t%s\t%s\t%d\n", result.Pubkey, p.cfg.FeedName(message.FeedId), message.GetPrice(), message.PublishTime)
		}
		return nil
	}
	priceFeeds, err := hermes.CreateClient(p.cfg.HermesUrl).PriceFeeds(ctx, *query, *assetType)
	if err != nil {
		return err
	}
	for _, priceFeed := range priceFeeds {
		fmt.Fprintf(p.stdout, "%s\t%s\n", priceFeed.Attributes.Symbol, priceFeed.Id)
	}
	return nil
}

func (p *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	schedule := fs.String("schedule", p.cfg.Watch.Schedule, "cron schedule")
	feedList := fs.String("feeds", strings.Join(p.cfg.Watch.Feeds, ","), "comma separated feed names or hex ids")
	maxAge := fs.Uint64("max-age", p.cfg.Watch.MaxAge, "maximum age in seconds")
	source := fs.String("source", p.cfg.Watch.Source, "pyth_pull or hermes")
	metricsAddr := fs.String("metrics", p.cfg.Watch.MetricsAddr, "metrics listen address, empty to disable")
	batched := fs.Bool("batch", true, "with pyth_pull, load all accounts in one request per tick")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var feeds []watcher.WatchedFeed
	for _, name := range strings.Split(*feedList, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		feedId, err := p.cfg.ResolveFeed(name)
		if err != nil {
			return err
		}
		feeds = append(feeds, watcher.WatchedFeed{Name: p.cfg.FeedName(feedId), FeedId: feedId})
	}
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds to watch")
	}

	oracleSource := oracles.OracleSource(*source)
	collector := metrics.CreateCollector()
	opts := []watcher.WatcherOption{
		watcher.WithCollector(collector),
		watcher.WithEventEmitter(pythgo.EventEmitter()),
		watcher.WithSyncEvents(),
		watcher.WithLogger(p.log),
	}
	if *batched && oracleSource == oracles.OracleSourcePythPull {
		loader := accounts.CreateBulkAccountLoader(p.rpc(), p.cfg.Commitment, 0, p.log)
		opts = append(opts, watcher.WithAccountLoader(loader, p.cfg.ShardId, p.cfg.GetPushOracleProgramId()))
	}
	w := watcher.CreateWatcher(
		watcher.WatcherConfig{
			Schedule: *schedule,
			Feeds:    feeds,
			MaxAge:   *maxAge,
			Source:   oracleSource,
		},
		p.oracleClients(),
		oracles.CreateReader(nil, oracles.WithMaxClockSkew(p.cfg.MaxClockSkew)),
		p.clockFor(oracleSource, 0),
		opts...,
	)
	w.EventEmitter().On(watcher.EventPrice, func(object ...interface{}) {
		fmt.Fprintf(p.stdout, "%s\t%s\n", object[0], object[1])
	})

	if *metricsAddr != "" {
		server := &http.Server{Addr: *metricsAddr, Handler: collector.Handler()}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				p.log.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer server.Close()
		p.log.WithField("addr", *metricsAddr).Info("Serving metrics")
	}

	w.Tick(ctx)
	if err := w.Start(30 * time.Second); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

func (p *app) events(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	program := fs.String("program", "get_prices_onchain", "configured deployment name")
	frequency := fs.Duration("frequency", events.DefaultEventSubscriptionOptions.LogProviderConfig.Frequency, "polling interval")
	history := fs.Int("history", 0, "replay up to n recent transactions before following")
	if err := fs.Parse(args); err != nil {
		return err
	}
	deployment, err := p.cfg.Deployment(*program)
	if err != nil {
		return err
	}
	programId, err := deployment.GetProgramId()
	if err != nil {
		return err
	}
	options := events.DefaultEventSubscriptionOptions
	options.Commitment = &p.cfg.Commitment
	options.LogProviderConfig = &events.PollingLogProviderConfig{
		Frequency: *frequency,
		BatchSize: events.DefaultEventSubscriptionOptions.LogProviderConfig.BatchSize,
		History:   *history,
	}
	subscriber := events.CreateEventSubscriber(p.rpc(), programId, pythgo.EventEmitter(), &options, p.log)
	subscriber.EventEmitter().On("priceLog", func(object ...interface{}) {
		priceLog := object[0].(*events.PriceLog)
		fmt.Fprintf(p.stdout, "%s\t%d\t%s\n", object[1], object[2], priceLog)
	})
	if !subscriber.Subscribe(*history <= 0) {
		return fmt.Errorf("could not subscribe to %s", programId)
	}
	<-ctx.Done()
	subscriber.Unsubscribe()
	return nil
}
