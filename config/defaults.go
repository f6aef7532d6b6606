package config

import "time"

// DefaultMainnet returns the default client configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Indexer: IndexerConfig{
			URL:       "http://127.0.0.1:9053/rpc",
			Timeout:   30 * time.Second,
			RateLimit: 10,
		},
		Prices: PriceConfig{
			PoolsURL: DefaultPoolsURL,
			FiatURL:  DefaultFiatURL,
		},
		Fee: FeeConfig{
			DevScript:     DevFeeScript,
			UIImplementor: DefaultUIImplementor,
			Miner:         MinerFee,
		},
		Box: BoxConfig{
			MinValue: MinBoxValue,
		},
		Wallet: WalletConfig{
			Name: "default",
		},
		RPC: RPCConfig{
			Addr:       "127.0.0.1:9060",
			AllowedIPs: []string{"127.0.0.1", "::1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default client configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Indexer.URL = "http://127.0.0.1:9052/rpc"
	return cfg
}

// Default returns the default client configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
