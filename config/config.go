package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pythgo/connection"
	"pythgo/lib/pyth"
)

type Env string

const (
	EnvDevnet      Env = "devnet"
	EnvMainnetBeta Env = "mainnet-beta"
)

type InstructionKind string

const (
	InstructionGetPrice InstructionKind = "get_price"
	InstructionSample   InstructionKind = "sample"
)

const (
	EnvRpcUrl    = "PYTHGO_RPC_URL"
	EnvKeypair   = "PYTHGO_KEYPAIR"
	EnvHermesUrl = "PYTHGO_HERMES_URL"
)

// Deployment is one consumer program. FeedId is empty for programs that take
// the feed id per call.
type Deployment struct {
	Name        string          `yaml:"name"`
	ProgramId   string          `yaml:"programId"`
	Instruction InstructionKind `yaml:"instruction"`
	FeedId      string          `yaml:"feedId"`
	MaxAge      uint64          `yaml:"maxAge"`
}

func (p *Deployment) GetProgramId() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(p.ProgramId)
}

// GetFeedId returns the fixed feed of the deployment, false when it has none.
func (p *Deployment) GetFeedId() (pyth.FeedId, bool, error) {
	if p.FeedId == "" {
		return pyth.FeedId{}, false, nil
	}
	feedId, err := pyth.DecodeFeedId(p.FeedId)
	return feedId, err == nil, err
}

// GetMaxAge is the age in seconds past which the program's price is stale.
func (p *Deployment) GetMaxAge() uint64 {
	if p.MaxAge == 0 {
		return DefaultMaxAge
	}
	return p.MaxAge
}

type WatchConfig struct {
	Schedule    string   `yaml:"schedule"`
	Feeds       []string `yaml:"feeds"`
	MaxAge      uint64   `yaml:"maxAge"`
	Source      string   `yaml:"source"`
	MetricsAddr string   `yaml:"metricsAddr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Json  bool   `yaml:"json"`
}

type Config struct {
	Env                 Env                `yaml:"env"`
	Connection          connection.Config  `yaml:"connection"`
	Commitment          rpc.CommitmentType `yaml:"commitment"`
	HermesUrl           string             `yaml:"hermesUrl"`
	Keypair             string             `yaml:"keypair"`
	ReceiverProgramId   string             `yaml:"receiverProgramId"`
	PushOracleProgramId string             `yaml:"pushOracleProgramId"`
	ShardId             uint16             `yaml:"shardId"`
	MaxClockSkew        int64              `yaml:"maxClockSkew"`
	MaxAge              uint64             `yaml:"maxAge"`
	Programs            []Deployment       `yaml:"programs"`
	Feeds               map[string]string  `yaml:"feeds"`
	Watch               WatchConfig        `yaml:"watch"`
	Logging             LoggingConfig      `yaml:"logging"`
}

const DefaultMaxAge = uint64(30)

var rpcHosts = map[Env]string{
	EnvDevnet:      "api.devnet.solana.com",
	EnvMainnetBeta: "api.mainnet-beta.solana.com",
}

func DefaultConfig(env Env) *Config {
	if _, ok := rpcHosts[env]; !ok {
		env = EnvDevnet
	}
	feeds := make(map[string]string, len(pyth.KnownFeeds))
	for name, feedId := range pyth.KnownFeeds {
		feeds[name] = feedId.String()
	}
	return &Config{
		Env: env,
		Connection: connection.Config{
			Host:     rpcHosts[env],
			IsSecure: true,
		},
		Commitment:          rpc.CommitmentConfirmed,
		HermesUrl:           "https://hermes.pyth.network",
		ReceiverProgramId:   pyth.ReceiverProgramId.String(),
		PushOracleProgramId: pyth.PushOracleProgramId.String(),
		ShardId:             0,
		MaxClockSkew:        10,
		MaxAge:              DefaultMaxAge,
		Programs: []Deployment{
			{
				Name:        "get_prices_onchain",
				ProgramId:   "Cqy4Tnv7htPwDAudDLTT5fXXgCr2Qn19Gr4dfpqFVmxt",
				Instruction: InstructionGetPrice,
				FeedId:      pyth.FeedBtcUsd.String(),
				MaxAge:      DefaultMaxAge,
			},
			{
				Name:        "pyth_oracle_1",
				ProgramId:   "5hC6mtKFiK6YBZq2PMdju5rP2qGuuHsXnNS7Neqhtays",
				Instruction: InstructionSample,
				MaxAge:      DefaultMaxAge,
			},
		},
		Feeds: feeds,
		Watch: WatchConfig{
			Schedule:    "@every 30s",
			Feeds:       []string{"BTC/USD", "SOL/USD"},
			MaxAge:      60,
			Source:      "pyth_pull",
			MetricsAddr: ":9464",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults of the env it names, then applies
// environment overrides. An empty path yields the devnet defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig(EnvDevnet)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var head struct {
			Env Env `yaml:"env"`
		}
		if err = yaml.Unmarshal(data, &head); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg = DefaultConfig(head.Env)
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	overrideWithEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadEnvFiles loads KEY=VALUE files into the process environment. Variables
// already set win.
func LoadEnvFiles(files ...string) error {
	var existing []string
	for _, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			return err
		}
		existing = append(existing, file)
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func overrideWithEnv(cfg *Config) {
	if rpcUrl := os.Getenv(EnvRpcUrl); rpcUrl != "" {
		cfg.Connection = ParseRpcUrl(rpcUrl)
	}
	if keypair := os.Getenv(EnvKeypair); keypair != "" {
		cfg.Keypair = keypair
	}
	if hermesUrl := os.Getenv(EnvHermesUrl); hermesUrl != "" {
		cfg.HermesUrl = hermesUrl
	}
}

// ParseRpcUrl splits an rpc url into a connection config. The path becomes
// the token.
func ParseRpcUrl(rpcUrl string) connection.Config {
	config := connection.Config{}
	switch {
	case strings.HasPrefix(rpcUrl, "https://"):
		config.IsSecure = true
		rpcUrl = strings.TrimPrefix(rpcUrl, "https://")
	case strings.HasPrefix(rpcUrl, "http://"):
		rpcUrl = strings.TrimPrefix(rpcUrl, "http://")
	}
	host, token, _ := strings.Cut(strings.TrimRight(rpcUrl, "/"), "/")
	config.Host = host
	config.Token = token
	return config
}

func (c *Config) Validate() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("connection host is required")
	}
	if _, err := solana.PublicKeyFromBase58(c.ReceiverProgramId); err != nil {
		return fmt.Errorf("receiverProgramId: %w", err)
	}
	if _, err := solana.PublicKeyFromBase58(c.PushOracleProgramId); err != nil {
		return fmt.Errorf("pushOracleProgramId: %w", err)
	}
	if c.MaxClockSkew < 0 {
		return fmt.Errorf("maxClockSkew must not be negative")
	}
	names := make(map[string]bool)
	for _, deployment := range c.Programs {
		if deployment.Name == "" {
			return fmt.Errorf("program without a name")
		}
		if names[deployment.Name] {
			return fmt.Errorf("program %s defined twice", deployment.Name)
		}
		names[deployment.Name] = true
		if _, err := deployment.GetProgramId(); err != nil {
			return fmt.Errorf("program %s: programId: %w", deployment.Name, err)
		}
		switch deployment.Instruction {
		case InstructionGetPrice:
			if deployment.FeedId == "" {
				return fmt.Errorf("program %s: %s needs a feedId", deployment.Name, deployment.Instruction)
			}
		case InstructionSample:
		default:
			return fmt.Errorf("program %s: unknown instruction %q", deployment.Name, deployment.Instruction)
		}
		if _, _, err := deployment.GetFeedId(); err != nil {
			return fmt.Errorf("program %s: %w", deployment.Name, err)
		}
	}
	for name, feedId := range c.Feeds {
		if _, err := pyth.DecodeFeedId(feedId); err != nil {
			return fmt.Errorf("feed %s: %w", name, err)
		}
	}
	for _, feed := range c.Watch.Feeds {
		if _, err := c.ResolveFeed(feed); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
	}
	return nil
}

// ResolveFeed accepts a feed name from the feeds table or a hex feed id.
func (c *Config) ResolveFeed(nameOrHex string) (pyth.FeedId, error) {
	nameOrHex = strings.TrimSpace(nameOrHex)
	if hexId, ok := c.Feeds[nameOrHex]; ok {
		return pyth.DecodeFeedId(hexId)
	}
	if hexId, ok := c.Feeds[strings.ToUpper(nameOrHex)]; ok {
		return pyth.DecodeFeedId(hexId)
	}
	return pyth.DecodeFeedId(nameOrHex)
}

// FeedName is the table name of feedId, or its hex form.
func (c *Config) FeedName(feedId pyth.FeedId) string {
	for name, hexId := range c.Feeds {
		if id, err := pyth.DecodeFeedId(hexId); err == nil && id == feedId {
			return name
		}
	}
	return feedId.String()
}

func (c *Config) Deployment(name string) (*Deployment, error) {
	for i := range c.Programs {
		if c.Programs[i].Name == name {
			return &c.Programs[i], nil
		}
	}
	return nil, fmt.Errorf("unknown program %q", name)
}

func (c *Config) GetReceiverProgramId() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ReceiverProgramId)
}

func (c *Config) GetPushOracleProgramId() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.PushOracleProgramId)
}
