package connection

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"pythgo/utils"
)

type Config struct {
	Host        string `yaml:"host"`
	Token       string `yaml:"token"`
	IsSecure    bool   `yaml:"isSecure"`
	MaxReferrer int    `yaml:"maxReferrer"`
	// Headers are sent with every request, e.g. provider api keys.
	Headers map[string]string `yaml:"headers"`
}

func (p *Config) Hash() string {
	t := fmt.Sprintf("%s://%s/%s", utils.TT(p.IsSecure, "https", "http"), p.Host, p.Token)
	sum := md5.Sum([]byte(t))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (p *Config) GetRpcEndpoint() string {
	return fmt.Sprintf("%s://%s",
		utils.TT(p.IsSecure, "https", "http"),
		p.Host+(utils.TT(p.Token == "", "", "/"+p.Token)),
	)
}

// Manager hands out rpc clients per configured endpoint. Up to MaxReferrer
// clients are created per endpoint and reused at random after that.
type Manager struct {
	configs        map[string]*Config
	rpcConnections map[string][]*rpc.Client
	mxState        *sync.Mutex
}

func CreateManager() *Manager {
	return &Manager{
		configs:        make(map[string]*Config),
		rpcConnections: make(map[string][]*rpc.Client),
		mxState:        new(sync.Mutex),
	}
}

func (p *Manager) AddConfig(config Config, id ...string) string {
	connectionId := config.Hash()
	if len(id) > 0 && len(id[0]) > 0 {
		connectionId = id[0]
	}
	defer p.mxState.Unlock()
	p.mxState.Lock()
	_, exists := p.configs[connectionId]
	if !exists {
		p.configs[connectionId] = &config
	}
	return connectionId
}

func (p *Manager) getConnectionId(id ...string) (string, bool) {
	var connectionId string
	if len(id) > 0 && len(id[0]) > 0 {
		connectionId = id[0]
	}
	_, exists := p.configs[connectionId]
	if !exists {
		if len(p.configs) == 0 {
			return "", false
		}
		connectionIds := utils.MapKeys(p.configs)
		connectionId = utils.RandomElement(connectionIds)
	}
	return connectionId, true
}

// GetRpc returns a client for the connection id, or for any configured
// connection when id is unknown. It returns nil when nothing is configured.
func (p *Manager) GetRpc(id ...string) *rpc.Client {
	defer p.mxState.Unlock()
	p.mxState.Lock()
	connectionId, ok := p.getConnectionId(id...)
	if !ok {
		return nil
	}
	config := p.configs[connectionId]
	connectionLength := len(p.rpcConnections[connectionId])
	var connection *rpc.Client
	if connectionLength == 0 || config.MaxReferrer <= 0 || connectionLength < config.MaxReferrer {
		connection = p.CreateRpc(config)
		p.rpcConnections[connectionId] = append(p.rpcConnections[connectionId], connection)
	} else {
		connection = utils.RandomElement(p.rpcConnections[connectionId])
	}
	return connection
}

func (p *Manager) CreateRpc(config *Config) *rpc.Client {
	if len(config.Headers) == 0 {
		return rpc.New(config.GetRpcEndpoint())
	}
	return rpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(config.GetRpcEndpoint(), &jsonrpc.RPCClientOpts{
		HTTPClient:    http.DefaultClient,
		CustomHeaders: config.Headers,
	}))
}
