package types

import (
	"sync"
)

type OracleClientCache struct {
	config  OracleClientConfig
	cache   map[OracleSource]IOracleClient
	mxCache *sync.Mutex
}

func CreateOracleClientCache(config OracleClientConfig) *OracleClientCache {
	return &OracleClientCache{
		config:  config,
		cache:   make(map[OracleSource]IOracleClient),
		mxCache: new(sync.Mutex),
	}
}

func (p *OracleClientCache) Get(oracleSource OracleSource) (IOracleClient, error) {
	defer p.mxCache.Unlock()
	p.mxCache.Lock()
	if oracleSource == "" {
		oracleSource = OracleSourcePythPull
	}
	value, exists := p.cache[oracleSource]
	if exists {
		return value, nil
	}
	client, err := GetOracleClient(oracleSource, p.config)
	if err != nil {
		return nil, err
	}
	p.cache[oracleSource] = client
	return client, nil
}
