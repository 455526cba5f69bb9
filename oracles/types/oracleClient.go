package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"pythgo/hermes"
)

// OracleClientConfig carries what any oracle client may need.
type OracleClientConfig struct {
	Connection          *rpc.Client
	Commitment          rpc.CommitmentType
	ShardId             uint16
	PushOracleProgramId solana.PublicKey
	Hermes              *hermes.Client
}

func GetOracleClient(
	oracleSource OracleSource,
	config OracleClientConfig,
) (IOracleClient, error) {
	switch oracleSource {
	case OracleSourcePythPull, "":
		if config.Connection == nil {
			return nil, fmt.Errorf("oracle source %s needs an rpc connection", OracleSourcePythPull)
		}
		return CreatePythPullClient(config.Connection, config.Commitment, config.ShardId, config.PushOracleProgramId), nil
	case OracleSourceHermes:
		client := config.Hermes
		if client == nil {
			client = hermes.CreateClient()
		}
		return CreateHermesClient(client), nil
	}
	return nil, fmt.Errorf("unknown oracle source %q", oracleSource)
}
