package priorityFee

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const DEFAULT_PRIORITY_FEE_FREQUENCY_MS = int64(10_000)

const DEFAULT_SLOTS_TO_CHECK = uint64(50)

type IPriorityFeeStrategy interface {
	Calculate(samples []SolanaPriorityFeeResponse) uint64
}

type PriorityFeeSubscriberConfig struct {
	Connection *rpc.Client
	/// frequency to make RPC calls to update priority fee samples, in milliseconds
	FrequencyMs int64
	/// addresses you plan to write lock, used to determine priority fees
	Addresses []solana.PublicKey
	/// custom strategy to calculate priority fees, defaults to AVERAGE
	CustomStrategy IPriorityFeeStrategy
	/// lookback window to determine priority fees, in slots.
	SlotsToCheck uint64
	/// clamp any returned priority fee value to this value.
	MaxFeeMicroLamports uint64
	/// multiplier applied to priority fee before maxFeeMicroLamports, defaults to 1.0
	PriorityFeeMultiplier float64

	Percentile uint

	Callback func(*PriorityFeeSubscriber)
}
