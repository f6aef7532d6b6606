package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads client configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a client config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Indexer
	case "indexer.url", "indexer":
		cfg.Indexer.URL = value
	case "indexer.timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Indexer.Timeout = d
	case "indexer.rps":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Indexer.RateLimit = n

	// Prices
	case "prices.pools":
		cfg.Prices.PoolsURL = value
	case "prices.fiat":
		cfg.Prices.FiatURL = value

	// Fees
	case "fee.dev":
		cfg.Fee.DevScript = value
	case "fee.ui":
		cfg.Fee.UIImplementor = value
	case "fee.miner":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Fee.Miner = n

	// Boxes
	case "box.min":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Box.MinValue = n

	// Wallet
	case "wallet.name", "wallet":
		cfg.Wallet.Name = value

	// Loan API
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.allowedips":
		cfg.RPC.AllowedIPs = splitList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = splitList(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// splitList parses a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseDuration accepts Go durations ("45s") or plain seconds ("45").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// WriteDefaultConfig writes a default client configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# KlingLend Client Configuration
#
# Protocol constants (contract scripts, fee rates) are compiled in and
# cannot be changed here.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.klinglend)
# datadir = ~/.klinglend

# ============================================================================
# Indexer
# ============================================================================

indexer.url = ` + cfg.Indexer.URL + `
indexer.timeout = 30s
# Max indexer requests per second (0 = unlimited)
indexer.rps = 10

# ============================================================================
# Prices
# ============================================================================

# prices.pools = ` + DefaultPoolsURL + `
# prices.fiat = ` + DefaultFiatURL + `

# ============================================================================
# Fees
# ============================================================================

# Protocol fee script (hex). Must match the script baked into order contracts.
# fee.dev = ` + DevFeeScript + `

# UI implementor receiving the UI fee when you fund an order (address or key hex)
# fee.ui = ` + DefaultUIImplementor + `

# Miner fee per transaction in base units
fee.miner = ` + strconv.FormatUint(MinerFee, 10) + `

# Ledger minimum box value in base units
# box.min = ` + strconv.FormatUint(MinBoxValue, 10) + `

# ============================================================================
# Wallet
# ============================================================================

wallet.name = default

# ============================================================================
# Loan API (klinglend serve)
# ============================================================================

rpc.addr = ` + cfg.RPC.Addr + `
# Comma-separated IPs or CIDRs allowed to connect (empty = all)
rpc.allowedips = ` + strings.Join(cfg.RPC.AllowedIPs, ",") + `
# Comma-separated CORS origins, or * (empty = no CORS headers)
# rpc.cors =

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
