package consumer

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"pythgo"
	"pythgo/accounts"
	"pythgo/addresses"
	"pythgo/anchor/types"
	"pythgo/clock"
	"pythgo/config"
	"pythgo/events"
	"pythgo/lib/consumer"
	"pythgo/lib/pyth"
	oracles "pythgo/oracles/types"
	"pythgo/priorityFee"
	"pythgo/tx"
)

var (
	ErrNoWallet      = errors.New("provider has no wallet")
	ErrNoFeed        = errors.New("no feed id given and the program has no fixed feed")
	ErrFixedFeed     = errors.New("program reads a fixed feed")
	ErrProgramFailed = errors.New("program failed")
)

// InvokeParams selects what the consumer program reads. Zero values fall back
// to the deployment's feed, the push oracle account of that feed and the
// client's priority fee.
type InvokeParams struct {
	FeedId      *pyth.FeedId
	PriceUpdate solana.PublicKey
	TxParams    *pythgo.BaseTxParams
}

type InvokeResult struct {
	TxSig         solana.Signature
	Slot          uint64
	Simulated     bool
	Logs          []string
	Err           interface{}
	UnitsConsumed uint64
	PriceLog      *events.PriceLog
	// Checked is the price the local freshness check saw, nil without one.
	Checked *oracles.PricePoint
}

// ConsumerClient drives one deployed consumer program.
type ConsumerClient struct {
	program               types.IProgram
	deployment            config.Deployment
	txSender              tx.ITxSender
	shardId               uint16
	pushOracleProgramId   solana.PublicKey
	priorityFeeSubscriber *priorityFee.PriorityFeeSubscriber
	computeUnits          uint32
	processConfig         *tx.ProcessingTxParams
	reader                *oracles.Reader
	commitment            rpc.CommitmentType
	log                   logrus.FieldLogger
}

type ConsumerClientOption func(*ConsumerClient)

func WithShard(shardId uint16, pushOracleProgramId solana.PublicKey) ConsumerClientOption {
	return func(p *ConsumerClient) {
		p.shardId = shardId
		p.pushOracleProgramId = pushOracleProgramId
	}
}

// WithPriorityFee prices transactions with the subscriber's custom strategy
// result and caps them at computeUnits.
func WithPriorityFee(subscriber *priorityFee.PriorityFeeSubscriber, computeUnits uint32) ConsumerClientOption {
	return func(p *ConsumerClient) {
		p.priorityFeeSubscriber = subscriber
		p.computeUnits = computeUnits
	}
}

// WithSimulatedComputeUnits sizes the compute unit limit of every transaction
// from a simulation of it.
func WithSimulatedComputeUnits(processConfig *tx.ProcessingTxParams) ConsumerClientOption {
	return func(p *ConsumerClient) {
		p.processConfig = processConfig
	}
}

// WithFreshnessCheck reads the price update account before a transaction is
// built and fails locally when it is older than the deployment's max age.
func WithFreshnessCheck(reader *oracles.Reader, commitment rpc.CommitmentType) ConsumerClientOption {
	return func(p *ConsumerClient) {
		p.reader = reader
		p.commitment = commitment
	}
}

func WithLogger(log logrus.FieldLogger) ConsumerClientOption {
	return func(p *ConsumerClient) {
		if log != nil {
			p.log = log
		}
	}
}

func CreateConsumerClient(
	program types.IProgram,
	deployment config.Deployment,
	txSender tx.ITxSender,
	opts ...ConsumerClientOption,
) *ConsumerClient {
	p := &ConsumerClient{
		program:             program,
		deployment:          deployment,
		txSender:            txSender,
		pushOracleProgramId: pyth.PushOracleProgramId,
		log:                 logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ConsumerClient) GetDeployment() config.Deployment {
	return p.deployment
}

func (p *ConsumerClient) GetProgram() types.IProgram {
	return p.program
}

// ResolveFeed picks the feed the program will read. A program with a fixed
// feed rejects any other.
func (p *ConsumerClient) ResolveFeed(feedId *pyth.FeedId) (pyth.FeedId, error) {
	fixed, hasFixed, err := p.deployment.GetFeedId()
	if err != nil {
		return pyth.FeedId{}, err
	}
	switch {
	case feedId != nil && hasFixed && *feedId != fixed:
		return pyth.FeedId{}, fmt.Errorf("%w: %s reads %s, not %s", ErrFixedFeed, p.deployment.Name, fixed, feedId)
	case feedId != nil:
		return *feedId, nil
	case hasFixed:
		return fixed, nil
	default:
		return pyth.FeedId{}, ErrNoFeed
	}
}

func (p *ConsumerClient) GetPriceUpdateAccount(feedId pyth.FeedId, priceUpdate solana.PublicKey) solana.PublicKey {
	if !priceUpdate.IsZero() {
		return priceUpdate
	}
	return addresses.GetPriceFeedAccountPublicKey(p.shardId, feedId, p.pushOracleProgramId)
}

func (p *ConsumerClient) payer() (solana.PublicKey, error) {
	wallet := p.program.GetProvider().GetWallet()
	if wallet == nil {
		return solana.PublicKey{}, ErrNoWallet
	}
	return wallet.GetPublicKey(), nil
}

type invocation struct {
	feedId      pyth.FeedId
	payer       solana.PublicKey
	priceUpdate solana.PublicKey
}

func (p *ConsumerClient) resolve(params *InvokeParams) (*invocation, error) {
	feedId, err := p.ResolveFeed(params.FeedId)
	if err != nil {
		return nil, err
	}
	payer, err := p.payer()
	if err != nil {
		return nil, err
	}
	return &invocation{
		feedId:      feedId,
		payer:       payer,
		priceUpdate: p.GetPriceUpdateAccount(feedId, params.PriceUpdate),
	}, nil
}

func (p *ConsumerClient) GetInstruction(params *InvokeParams) (solana.Instruction, error) {
	if params == nil {
		params = &InvokeParams{}
	}
	inv, err := p.resolve(params)
	if err != nil {
		return nil, err
	}
	return p.instruction(inv)
}

func (p *ConsumerClient) instruction(inv *invocation) (solana.Instruction, error) {
	programId := p.program.GetProgramId()
	switch p.deployment.Instruction {
	case config.InstructionGetPrice:
		return consumer.NewGetPriceInstruction(programId, inv.payer, inv.priceUpdate).ValidateAndBuild()
	case config.InstructionSample:
		return consumer.NewSampleInstruction(inv.feedId.String(), programId, inv.payer, inv.priceUpdate).ValidateAndBuild()
	default:
		return nil, fmt.Errorf("unknown instruction %q", p.deployment.Instruction)
	}
}

// CheckFreshness loads the price update account and applies the deployment's
// max age to it, the way the program will.
func (p *ConsumerClient) CheckFreshness(
	ctx context.Context,
	feedId pyth.FeedId,
	priceUpdate solana.PublicKey,
) (*oracles.PricePoint, error) {
	connection := p.program.GetProvider().GetConnection()
	reader := p.reader
	if reader == nil {
		reader = oracles.CreateReader(clock.CreateRpcClock(connection, p.commitment))
	}
	fetched, err := accounts.FetchPriceUpdate(ctx, connection, priceUpdate, p.commitment)
	if err != nil {
		return nil, err
	}
	return reader.Read(ctx, fetched.Data, p.deployment.GetMaxAge(), feedId)
}

func (p *ConsumerClient) txParams(ctx context.Context, params *InvokeParams, inv *invocation) *pythgo.BaseTxParams {
	if params.TxParams != nil {
		txParams := *params.TxParams
		return &txParams
	}
	if p.priorityFeeSubscriber == nil {
		return nil
	}
	p.priorityFeeSubscriber.UpdateAddresses([]solana.PublicKey{inv.payer, inv.priceUpdate})
	if err := p.priorityFeeSubscriber.Load(ctx); err != nil {
		p.log.WithError(err).Warn("Priority fee refresh failed, using the last sample")
	}
	latest, slot := p.priorityFeeSubscriber.GetLatest()
	p.log.WithFields(logrus.Fields{
		"latest": latest,
		"slot":   slot,
		"raw":    p.priorityFeeSubscriber.GetRawCustomStrategyResult(),
	}).Debug("Priority fee")
	return &pythgo.BaseTxParams{
		ComputeUnits:      p.computeUnits,
		ComputeUnitsPrice: p.priorityFeeSubscriber.GetCustomStrategyResult(),
	}
}

func (p *ConsumerClient) buildTransaction(ctx context.Context, params *InvokeParams) (*solana.Transaction, *oracles.PricePoint, error) {
	if params == nil {
		params = &InvokeParams{}
	}
	inv, err := p.resolve(params)
	if err != nil {
		return nil, nil, err
	}
	var checked *oracles.PricePoint
	if p.reader != nil {
		if checked, err = p.CheckFreshness(ctx, inv.feedId, inv.priceUpdate); err != nil {
			return nil, nil, err
		}
	}
	ix, err := p.instruction(inv)
	if err != nil {
		return nil, nil, err
	}
	ixs := []solana.Instruction{ix}
	txParams := p.txParams(ctx, params, inv)
	if p.processConfig != nil {
		props := &tx.TransactionProps{Instructions: ixs}
		if txParams != nil {
			props.TxParams = *txParams
		}
		processed := tx.ProcessTxParams(ctx, props, func(props *tx.TransactionProps) (*solana.Transaction, error) {
			return p.txSender.BuildTransaction(ctx, props.Instructions, &props.TxParams)
		}, p.processConfig, p.program.GetProvider().GetConnection())
		txParams = &processed
	}
	transaction, err := p.txSender.BuildTransaction(ctx, ixs, txParams)
	if err != nil {
		return nil, nil, err
	}
	return transaction, checked, nil
}

// Simulate runs the program without landing a transaction. A program error is
// returned along with the result so its logs stay readable.
func (p *ConsumerClient) Simulate(ctx context.Context, params *InvokeParams) (*InvokeResult, error) {
	transaction, checked, err := p.buildTransaction(ctx, params)
	if err != nil {
		return nil, err
	}
	result, err := p.simulate(ctx, transaction)
	if result != nil {
		result.Checked = checked
	}
	return result, err
}

func (p *ConsumerClient) simulate(ctx context.Context, transaction *solana.Transaction) (*InvokeResult, error) {
	simulation, err := p.txSender.Simulate(ctx, transaction)
	if err != nil {
		return nil, err
	}
	result := &InvokeResult{
		Slot:          simulation.Slot,
		Simulated:     true,
		Logs:          simulation.Logs,
		Err:           simulation.Err,
		UnitsConsumed: simulation.UnitsConsumed,
	}
	if priceLog, ok := events.ParsePriceLog(simulation.Logs, p.program.GetProgramId().String()); ok {
		result.PriceLog = priceLog
		p.log.WithFields(logrus.Fields{
			"program": p.deployment.Name,
			"slot":    result.Slot,
		}).Info(priceLog.String())
	}
	if simulation.Err != nil {
		return result, fmt.Errorf("%w: %s: %v", ErrProgramFailed, p.deployment.Name, simulation.Err)
	}
	return result, nil
}

// Send simulates first and only lands the transaction when the program
// succeeds.
func (p *ConsumerClient) Send(ctx context.Context, params *InvokeParams) (*InvokeResult, error) {
	transaction, checked, err := p.buildTransaction(ctx, params)
	if err != nil {
		return nil, err
	}
	result, err := p.simulate(ctx, transaction)
	if result != nil {
		result.Checked = checked
	}
	if err != nil {
		return result, err
	}
	sent, err := p.txSender.Send(ctx, transaction, p.program.GetProvider().GetOpts(), true)
	if err != nil {
		return result, err
	}
	result.TxSig = sent.TxSig
	result.Slot = sent.Slot
	result.Simulated = false
	p.log.WithFields(logrus.Fields{
		"program": p.deployment.Name,
		"tx":      sent.TxSig.String(),
	}).Info("Sent consumer transaction")
	return result, nil
}
