package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/url"

	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Validate checks runtime client config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}

	u, err := url.Parse(cfg.Indexer.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("indexer.url must be an http(s) URL, got %q", cfg.Indexer.URL)
	}
	if cfg.Indexer.Timeout <= 0 {
		return fmt.Errorf("indexer.timeout must be positive")
	}
	if cfg.Indexer.RateLimit < 0 {
		return fmt.Errorf("indexer.rps must not be negative")
	}
	for key, raw := range map[string]string{"prices.pools": cfg.Prices.PoolsURL, "prices.fiat": cfg.Prices.FiatURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Host == "" {
			return fmt.Errorf("%s must be a URL, got %q", key, raw)
		}
	}

	if _, err := cfg.DevFee(); err != nil {
		return err
	}
	if _, err := cfg.UIImplementorKey(); err != nil {
		return err
	}
	if cfg.Box.MinValue == 0 {
		return fmt.Errorf("box.min must be positive")
	}
	if cfg.Fee.Miner == 0 {
		return fmt.Errorf("fee.miner must be positive")
	}
	if _, _, err := net.SplitHostPort(cfg.RPC.Addr); err != nil {
		return fmt.Errorf("rpc.addr must be host:port, got %q", cfg.RPC.Addr)
	}
	if cfg.Wallet.Name == "" {
		return fmt.Errorf("wallet.name must not be empty")
	}
	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error", cfg.Log.Level)
	}
	return nil
}

// DevFee returns the decoded protocol fee script.
func (c *Config) DevFee() (types.Script, error) {
	b, err := hex.DecodeString(c.Fee.DevScript)
	if err != nil || len(b) == 0 {
		return nil, fmt.Errorf("fee.dev must be a non-empty script hex")
	}
	if len(b) > MaxScriptData {
		return nil, fmt.Errorf("fee.dev is %d bytes, max %d", len(b), MaxScriptData)
	}
	return types.Script(b), nil
}

// UIImplementorKey returns the key receiving the UI fee.
func (c *Config) UIImplementorKey() (types.PublicKey, error) {
	addr, err := types.ParseAddress(c.Fee.UIImplementor)
	if err != nil {
		return types.PublicKey{}, fmt.Errorf("fee.ui: %w", err)
	}
	return addr.PublicKey(), nil
}

// MinerFeeScript returns the decoded miner fee contract.
func MinerFeeScript() types.Script {
	b, err := hex.DecodeString(FeeScript)
	if err != nil {
		panic("config: corrupt miner fee script")
	}
	return b
}
