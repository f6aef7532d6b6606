package config

import "time"

// =============================================================================
// Protocol constants (shared by every party; changing them breaks loans
// already on the ledger)
// =============================================================================

// Denomination constants for the native currency.
const (
	Decimals = 9
	Coin     = 1_000_000_000 // 10^9 base units per coin
)

// MinBoxValue is the ledger's minimum native value for any box.
const MinBoxValue uint64 = 1_000_000

// MinerFee is the default fee paid to the block producer per transaction.
const MinerFee uint64 = 2 * 1_100_000

// BlockInterval is the average block time used to turn block counts into
// durations.
const BlockInterval = 2 * time.Minute

// Scripts and keys baked into the protocol.
const (
	// DevFeeScript receives the protocol fee when an order is funded.
	DevFeeScript = "0008cd03a11d3028b9bc57b6ac724485e99960b89c278db6bab5d2b961b01aee29405a02"

	// DefaultUIImplementor receives the UI fee unless configured otherwise.
	DefaultUIImplementor = "03a11d3028b9bc57b6ac724485e99960b89c278db6bab5d2b961b01aee29405a02"

	// FeeScript is the miner fee contract.
	FeeScript = "1005040004000e36100204a00b08cd0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798ea02d192a39a8cc7a701730073011001020402d19683030193a38cc7b2a57300000193c2b2a57301007473027303830108cdeeac93b1a57304"
)

// Transaction size limits enforced before submission.
const (
	MaxTxInputs   = 2500
	MaxTxOutputs  = 2500
	MaxScriptData = 4096
	MaxTokens     = 122 // tokens per box
)

// Default price feeds.
const (
	DefaultPoolsURL = "https://api.spectrum.fi/v1/amm/pools/summary"
	DefaultFiatURL  = "https://api.coingecko.com/api/v3/simple/price?ids=ergo&vs_currencies=usd"
)
