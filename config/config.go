// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol constants: compiled in, shared by every party of a loan
//   - Client settings: runtime configuration, can vary per user
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds client runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Indexer the client reads boxes from and submits transactions to.
	Indexer IndexerConfig

	// Price feeds used for ratios and TVL.
	Prices PriceConfig

	// Fees
	Fee FeeConfig

	// Box rules
	Box BoxConfig

	// Wallet
	Wallet WalletConfig

	// Local loan API
	RPC RPCConfig

	// Logging
	Log LogConfig
}

// IndexerConfig holds indexer connection settings.
type IndexerConfig struct {
	URL       string        `conf:"indexer.url"`
	Timeout   time.Duration `conf:"indexer.timeout"`
	RateLimit int           `conf:"indexer.rps"` // Requests per second, 0 = unlimited
}

// PriceConfig holds the price feed endpoints.
type PriceConfig struct {
	PoolsURL string `conf:"prices.pools"` // AMM pool summaries
	FiatURL  string `conf:"prices.fiat"`  // Native coin fiat price
}

// FeeConfig holds fee recipients and the miner fee.
type FeeConfig struct {
	DevScript     string `conf:"fee.dev"`   // Protocol fee script hex
	UIImplementor string `conf:"fee.ui"`    // UI fee recipient (address or key hex)
	Miner         uint64 `conf:"fee.miner"` // Miner fee per transaction
}

// BoxConfig holds ledger box rules the client must respect.
type BoxConfig struct {
	MinValue uint64 `conf:"box.min"`
}

// WalletConfig holds wallet settings.
type WalletConfig struct {
	Name string `conf:"wallet.name"`
}

// RPCConfig holds settings of the local read-only loan API.
type RPCConfig struct {
	Addr        string   `conf:"rpc.addr"`
	AllowedIPs  []string `conf:"rpc.allowedips"` // Empty = allow all
	CORSOrigins []string `conf:"rpc.cors"`       // Empty = no CORS headers
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klinglend
//	macOS:   ~/Library/Application Support/KlingLend
//	Windows: %APPDATA%\KlingLend
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klinglend"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingLend")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingLend")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingLend")
	default:
		return filepath.Join(home, ".klinglend")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// CacheDir returns the metadata cache directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.NetworkDataDir(), "cache")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klinglend.conf")
}
