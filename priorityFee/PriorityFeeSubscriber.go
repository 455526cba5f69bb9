package priorityFee

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"pythgo/utils"
)

type PriorityFeeSubscriber struct {
	connection            *rpc.Client
	frequencyMs           int64
	addresses             solana.PublicKeySlice
	customStrategy        IPriorityFeeStrategy
	averageStrategy       *AverageStrategy
	maxStrategy           *MaxStrategy
	lookbackDistance      uint64
	maxFeeMicroLamports   uint64
	priorityFeeMultiplier float64

	latestPriorityFee        uint64
	lastCustomStrategyResult uint64
	lastAvgStrategyResult    uint64
	lastMaxStrategyResult    uint64
	lastSlotSeen             uint64
	cancel                   func()
	percentile               uint
	callback                 func(*PriorityFeeSubscriber)
	mxState                  *sync.RWMutex
}

func CreatePriorityFeeSubscriber(config PriorityFeeSubscriberConfig) *PriorityFeeSubscriber {
	var customStrategy IPriorityFeeStrategy
	if config.CustomStrategy != nil {
		customStrategy = config.CustomStrategy
	} else {
		customStrategy = &AverageStrategy{}
	}
	if config.Connection == nil {
		panic("connection must be provided to use SOLANA priority fee API")
	}
	return &PriorityFeeSubscriber{
		connection:            config.Connection,
		frequencyMs:           utils.TT(config.FrequencyMs > 0, config.FrequencyMs, DEFAULT_PRIORITY_FEE_FREQUENCY_MS),
		addresses:             config.Addresses,
		customStrategy:        customStrategy,
		averageStrategy:       &AverageStrategy{},
		maxStrategy:           &MaxStrategy{},
		lookbackDistance:      utils.TT(config.SlotsToCheck > 0, config.SlotsToCheck, DEFAULT_SLOTS_TO_CHECK),
		priorityFeeMultiplier: utils.TT(config.PriorityFeeMultiplier > 0.0, config.PriorityFeeMultiplier, 1.0),
		maxFeeMicroLamports:   config.MaxFeeMicroLamports,
		percentile:            config.Percentile,
		callback:              config.Callback,
		mxState:               new(sync.RWMutex),
	}
}

func (p *PriorityFeeSubscriber) Subscribe(ctx context.Context) error {
	if err := p.Load(ctx); err != nil {
		return err
	}
	p.mxState.Lock()
	if p.cancel != nil {
		p.mxState.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mxState.Unlock()

	go func(ctx context.Context) {
		ticker := time.NewTicker(time.Millisecond * time.Duration(p.frequencyMs))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = p.Load(ctx)
			}
		}
	}(ctx)
	return nil
}

func (p *PriorityFeeSubscriber) Unsubscribe() {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Load fetches fresh samples once and recomputes every strategy.
func (p *PriorityFeeSubscriber) Load(ctx context.Context) error {
	p.mxState.RLock()
	addresses := p.addresses
	p.mxState.RUnlock()

	samples, err := FetchSolanaPriorityFee(
		ctx,
		p.connection,
		p.lookbackDistance,
		addresses,
		p.percentile,
	)
	if err != nil {
		return err
	}
	if len(samples) > 0 {
		p.mxState.Lock()
		p.latestPriorityFee = samples[0].PrioritizationFee
		p.lastSlotSeen = samples[0].Slot

		p.lastAvgStrategyResult = p.averageStrategy.Calculate(samples)
		p.lastMaxStrategyResult = p.maxStrategy.Calculate(samples)
		if p.customStrategy != nil {
			p.lastCustomStrategyResult = p.customStrategy.Calculate(samples)
		}
		p.mxState.Unlock()
	}

	if p.callback != nil {
		(p.callback)(p)
	}
	return nil
}

func (p *PriorityFeeSubscriber) GetMaxPriorityFee() uint64 {
	return p.maxFeeMicroLamports
}

func (p *PriorityFeeSubscriber) GetCustomStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	result := uint64(float64(p.lastCustomStrategyResult) * p.priorityFeeMultiplier)
	if p.maxFeeMicroLamports > 0 && result > p.maxFeeMicroLamports {
		return p.maxFeeMicroLamports
	}
	return result
}

func (p *PriorityFeeSubscriber) GetRawCustomStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.lastCustomStrategyResult
}

func (p *PriorityFeeSubscriber) GetAvgStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	if p.maxFeeMicroLamports > 0 && p.lastAvgStrategyResult > p.maxFeeMicroLamports {
		return p.maxFeeMicroLamports
	}
	return p.lastAvgStrategyResult
}

func (p *PriorityFeeSubscriber) GetMaxStrategyResult() uint64 {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	if p.maxFeeMicroLamports > 0 && p.lastMaxStrategyResult > p.maxFeeMicroLamports {
		return p.maxFeeMicroLamports
	}
	return p.lastMaxStrategyResult
}

func (p *PriorityFeeSubscriber) UpdateAddresses(addresses []solana.PublicKey) {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	p.addresses = addresses
}

func (p *PriorityFeeSubscriber) GetLatest() (uint64, uint64) {
	defer p.mxState.RUnlock()
	p.mxState.RLock()
	return p.latestPriorityFee, p.lastSlotSeen
}
