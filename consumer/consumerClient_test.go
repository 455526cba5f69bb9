package consumer

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythgo"
	"pythgo/addresses"
	"pythgo/anchor"
	"pythgo/clock"
	"pythgo/config"
	"pythgo/connection"
	"pythgo/lib/consumer"
	"pythgo/lib/pyth"
	"pythgo/lib/rpctest"
	oracles "pythgo/oracles/types"
	"pythgo/priorityFee"
	"pythgo/tx"
)

const getPricesOnchain = "Cqy4Tnv7htPwDAudDLTT5fXXgCr2Qn19Gr4dfpqFVmxt"
const pythOracle1 = "5hC6mtKFiK6YBZq2PMdju5rP2qGuuHsXnNS7Neqhtays"

var btcFeedLog = "Program log: Feed ID: [230, 45, 246, 200, 180, 168, 95, 225, 166, 125, 180, 77, 193, 45, 229, 219, 51, 15, 122, 198, 107, 114, 220, 101, 138, 254, 223, 15, 74, 65, 91, 67]"

func getPriceLogs() []string {
	return []string{
		"Program " + getPricesOnchain + " invoke [1]",
		"Program log: Instruction: GetPrice",
		"Program log: Price: (6512345678900 ± 2345678) * 10^-8",
		btcFeedLog,
		"Program log: Publish Time: 1700000000",
		"Program " + getPricesOnchain + " consumed 21402 of 200000 compute units",
		"Program " + getPricesOnchain + " success",
	}
}

func testServer(t *testing.T, logs []string, simErr interface{}) *rpctest.Server {
	return rpctest.NewServer(t).
		Handle("getLatestBlockhash", func(json.RawMessage) (interface{}, error) {
			return rpctest.WithContext(900, map[string]interface{}{
				"blockhash":            solana.Hash{3}.String(),
				"lastValidBlockHeight": 1000,
			}), nil
		}).
		Handle("simulateTransaction", func(json.RawMessage) (interface{}, error) {
			return rpctest.WithContext(901, map[string]interface{}{
				"err":           simErr,
				"logs":          logs,
				"accounts":      nil,
				"unitsConsumed": 21_402,
			}), nil
		}).
		Handle("sendTransaction", func(json.RawMessage) (interface{}, error) {
			return solana.SignatureFromBytes(make([]byte, 64)).String(), nil
		})
}

func testClient(t *testing.T, server *rpctest.Server, name string, wallet pythgo.IWallet, opts ...ConsumerClientOption) *ConsumerClient {
	deployment, err := config.DefaultConfig(config.EnvDevnet).Deployment(name)
	require.NoError(t, err)
	programId, err := deployment.GetProgramId()
	require.NoError(t, err)

	manager := connection.CreateManager()
	manager.AddConfig(connection.Config{Host: strings.TrimPrefix(server.URL, "http://")})
	provider := anchor.CreateAnchorProvider(wallet, pythgo.DefaultConfirmOptions, manager)
	program := anchor.CreateProgram(programId, provider)
	return CreateConsumerClient(program, *deployment, tx.CreateBaseTxSender(server.Client(), wallet, nil), opts...)
}

// go test --run TestConsumerClient

func TestConsumerClientGetPriceSimulate(t *testing.T) {
	server := testServer(t, getPriceLogs(), nil)
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)
	client := testClient(t, server, "get_prices_onchain", wallet)

	result, err := client.Simulate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Simulated)
	assert.Equal(t, uint64(901), result.Slot)
	assert.Equal(t, uint64(21_402), result.UnitsConsumed)
	require.NotNil(t, result.PriceLog)
	assert.Equal(t, int64(6512345678900), *result.PriceLog.Price)
	assert.Equal(t, uint64(2345678), *result.PriceLog.Conf)
	assert.Equal(t, int32(-8), *result.PriceLog.Exponent)
	assert.Equal(t, pyth.FeedBtcUsd, *result.PriceLog.FeedId)
	assert.Equal(t, int64(1700000000), *result.PriceLog.PublishTime)
	assert.Equal(t, 0, server.Calls("sendTransaction"))
}

func TestConsumerClientInstruction(t *testing.T) {
	server := testServer(t, nil, nil)
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)

	getPrice := testClient(t, server, "get_prices_onchain", wallet)
	ix, err := getPrice.GetInstruction(nil)
	require.NoError(t, err)
	assert.Equal(t, solana.MustPublicKeyFromBase58(getPricesOnchain), ix.ProgramID())
	accounts := ix.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, wallet.GetPublicKey(), accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, addresses.GetPriceFeedAccountPublicKey(0, pyth.FeedBtcUsd), accounts[1].PublicKey)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, consumer.GetPriceDiscriminator[:], data)

	_, err = getPrice.GetInstruction(&InvokeParams{FeedId: &pyth.FeedSolUsd})
	assert.ErrorIs(t, err, ErrFixedFeed)

	sample := testClient(t, server, "pyth_oracle_1", wallet)
	_, err = sample.GetInstruction(nil)
	assert.ErrorIs(t, err, ErrNoFeed)

	explicit := solana.NewWallet().PublicKey()
	ix, err = sample.GetInstruction(&InvokeParams{FeedId: &pyth.FeedSolUsd, PriceUpdate: explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, ix.Accounts()[1].PublicKey)
	data, err = ix.Data()
	require.NoError(t, err)
	assert.Equal(t, consumer.SampleDiscriminator[:], data[:8])
	assert.Equal(t, []byte{66, 0, 0, 0}, data[8:12])
	assert.Equal(t, pyth.FeedSolUsd.String(), string(data[12:]))

	noWallet := testClient(t, server, "pyth_oracle_1", nil)
	_, err = noWallet.GetInstruction(&InvokeParams{FeedId: &pyth.FeedSolUsd})
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestConsumerClientSampleSend(t *testing.T) {
	logs := []string{
		"Program " + pythOracle1 + " invoke [1]",
		"Program log: Instruction: Sample",
		"Program log: Price: 15012345678",
		"Program log: Confidence: 7512345",
		"Program log: Exponent: -8",
		"Program " + pythOracle1 + " success",
	}
	server := testServer(t, logs, nil)
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)
	client := testClient(t, server, "pyth_oracle_1", wallet)

	result, err := client.Send(context.Background(), &InvokeParams{
		FeedId:   &pyth.FeedSolUsd,
		TxParams: &pythgo.BaseTxParams{ComputeUnits: 50_000, ComputeUnitsPrice: 10},
	})
	require.NoError(t, err)
	assert.False(t, result.Simulated)
	assert.Equal(t, uint64(900), result.Slot)
	assert.Equal(t, solana.SignatureFromBytes(make([]byte, 64)), result.TxSig)
	require.NotNil(t, result.PriceLog)
	value, ok := result.PriceLog.Value()
	assert.True(t, ok)
	assert.Equal(t, "150.12345678", value.String())
	assert.Nil(t, result.PriceLog.FeedId)
	assert.Equal(t, 1, server.Calls("sendTransaction"))
}

func TestConsumerClientProgramError(t *testing.T) {
	logs := []string{
		"Program " + pythOracle1 + " invoke [1]",
		"Program log: AnchorError occurred. Error Code: PriceTooOld. Error Number: 10000. Error Message: This price feed update's age exceeds the requested maximum age.",
		"Program " + pythOracle1 + " failed: custom program error: 0x2710",
	}
	simErr := map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 10000}}}
	server := testServer(t, logs, simErr)
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)
	client := testClient(t, server, "pyth_oracle_1", wallet)

	result, err := client.Send(context.Background(), &InvokeParams{FeedId: &pyth.FeedBtcUsd})
	assert.ErrorIs(t, err, ErrProgramFailed)
	require.NotNil(t, result)
	assert.Equal(t, logs, result.Logs)
	assert.Nil(t, result.PriceLog)
	assert.Equal(t, 0, server.Calls("sendTransaction"))
}

func btcPriceUpdate(t *testing.T, publishTime int64) []byte {
	data, err := (&pyth.PriceUpdateV2{
		WriteAuthority:    solana.NewWallet().PublicKey(),
		VerificationLevel: pyth.VerificationFull,
		PriceMessage: pyth.PriceFeedMessage{
			FeedId:      pyth.FeedBtcUsd,
			Price:       6_512_345_678_900,
			Conf:        2_345_678,
			Exponent:    -8,
			PublishTime: publishTime,
		},
		PostedSlot: 880,
	}).MarshalBinary()
	require.NoError(t, err)
	return data
}

func TestConsumerClientFreshnessCheck(t *testing.T) {
	server := testServer(t, getPriceLogs(), nil).
		Handle("getAccountInfo", func(json.RawMessage) (interface{}, error) {
			return rpctest.WithContext(899, rpctest.Account(btcPriceUpdate(t, 1_700_000_000), pyth.ReceiverProgramId.String())), nil
		})
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)

	fresh := testClient(t, server, "get_prices_onchain", wallet,
		WithFreshnessCheck(oracles.CreateReader(clock.FixedClock(1_700_000_030)), rpc.CommitmentConfirmed))
	result, err := fresh.Simulate(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Checked)
	assert.Equal(t, int64(1_700_000_000), result.Checked.PublishTime)
	assert.Equal(t, 1, server.Calls("simulateTransaction"))

	stale := testClient(t, server, "get_prices_onchain", wallet,
		WithFreshnessCheck(oracles.CreateReader(clock.FixedClock(1_700_000_031)), rpc.CommitmentConfirmed))
	result, err = stale.Send(context.Background(), nil)
	assert.ErrorIs(t, err, oracles.ErrStalePrice)
	assert.Nil(t, result)
	assert.Equal(t, 1, server.Calls("simulateTransaction"), "a stale account never reaches the program")
	assert.Equal(t, 0, server.Calls("sendTransaction"))
}

func TestConsumerClientFreshnessCheckUsesDeploymentMaxAge(t *testing.T) {
	server := testServer(t, getPriceLogs(), nil).
		Handle("getAccountInfo", func(json.RawMessage) (interface{}, error) {
			return rpctest.WithContext(899, rpctest.Account(btcPriceUpdate(t, 1_700_000_000), pyth.ReceiverProgramId.String())), nil
		})
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)
	account := addresses.GetPriceFeedAccountPublicKey(0, pyth.FeedBtcUsd)

	client := testClient(t, server, "get_prices_onchain", wallet,
		WithFreshnessCheck(oracles.CreateReader(clock.FixedClock(1_700_000_059)), rpc.CommitmentConfirmed))
	_, err := client.CheckFreshness(context.Background(), pyth.FeedBtcUsd, account)
	assert.ErrorIs(t, err, oracles.ErrStalePrice, "30 seconds by default")

	client.deployment.MaxAge = 60
	point, err := client.CheckFreshness(context.Background(), pyth.FeedBtcUsd, account)
	require.NoError(t, err)
	assert.Equal(t, int64(6_512_345_678_900), point.Price)

	client.reader = oracles.CreateReader(clock.FixedClock(1_700_000_061))
	_, err = client.CheckFreshness(context.Background(), pyth.FeedBtcUsd, account)
	assert.ErrorIs(t, err, oracles.ErrStalePrice)
}

func sentTransaction(t *testing.T, params json.RawMessage) *solana.Transaction {
	var args []json.RawMessage
	require.NoError(t, json.Unmarshal(params, &args))
	var encoded string
	require.NoError(t, json.Unmarshal(args[0], &encoded))
	data, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	transaction, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	require.NoError(t, err)
	return transaction
}

func TestConsumerClientSimulatedComputeUnits(t *testing.T) {
	var sent *solana.Transaction
	server := testServer(t, getPriceLogs(), nil).
		Handle("sendTransaction", func(params json.RawMessage) (interface{}, error) {
			sent = sentTransaction(t, params)
			return solana.SignatureFromBytes(make([]byte, 64)).String(), nil
		})
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)
	client := testClient(t, server, "get_prices_onchain", wallet,
		WithSimulatedComputeUnits(&tx.ProcessingTxParams{UseSimulatedComputeUnits: true}))

	_, err := client.Send(context.Background(), &InvokeParams{TxParams: &pythgo.BaseTxParams{ComputeUnitsPrice: 1_000}})
	require.NoError(t, err)
	assert.Equal(t, 2, server.Calls("simulateTransaction"), "one to size, one to check")
	require.NotNil(t, sent)
	require.Len(t, sent.Message.Instructions, 3)

	programId, err := sent.Message.Program(sent.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, computebudget.ProgramID, programId)
	limit := sent.Message.Instructions[0].Data
	require.Len(t, limit, 5)
	assert.Equal(t, byte(2), limit[0], "SetComputeUnitLimit")
	assert.Equal(t, uint32(25_683), binary.LittleEndian.Uint32(limit[1:]), "21402 units plus 20%")
}

func TestConsumerClientPriorityFeeRefresh(t *testing.T) {
	var feeAddresses []string
	server := testServer(t, getPriceLogs(), nil).
		Handle("getRecentPrioritizationFees", func(params json.RawMessage) (interface{}, error) {
			var args [][]string
			require.NoError(t, json.Unmarshal(params, &args))
			feeAddresses = args[0]
			return []map[string]interface{}{
				{"slot": 170, "prioritizationFee": 4_000},
				{"slot": 169, "prioritizationFee": 2_000},
			}, nil
		})
	wallet := pythgo.CreateWallet(solana.NewWallet().PrivateKey)
	subscriber := priorityFee.CreatePriorityFeeSubscriber(priorityFee.PriorityFeeSubscriberConfig{
		Connection: server.Client(),
	})
	client := testClient(t, server, "get_prices_onchain", wallet, WithPriorityFee(subscriber, 100_000))

	_, err := client.Simulate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, server.Calls("getRecentPrioritizationFees"))
	assert.ElementsMatch(t, []string{
		wallet.GetPublicKey().String(),
		addresses.GetPriceFeedAccountPublicKey(0, pyth.FeedBtcUsd).String(),
	}, feeAddresses)
	latest, slot := subscriber.GetLatest()
	assert.Equal(t, uint64(170), slot)
	assert.Equal(t, uint64(4_000), latest)
	assert.Equal(t, uint64(3_000), subscriber.GetCustomStrategyResult())
}
