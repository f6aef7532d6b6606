package rpc

import (
	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/shopspring/decimal"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// LoanFilterParam narrows lend_orders and lend_bonds. Keys are hex-encoded
// compressed public keys. Lender only applies to bonds.
type LoanFilterParam struct {
	Borrower string `json:"borrower,omitempty"`
	Lender   string `json:"lender,omitempty"`
	Owned    bool   `json:"owned,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// HeightResult is returned by lend_height.
type HeightResult struct {
	Height uint32 `json:"height"`
}

// ScriptsResult is returned by lend_scripts.
type ScriptsResult struct {
	Orders []string `json:"orders"`
	Bonds  []string `json:"bonds"`
}

// TVLResult is returned by lend_tvl. Complete is false when some locked
// asset had no rate and was left out of the total.
type TVLResult struct {
	TVL      decimal.Decimal `json:"tvl"`
	Complete bool            `json:"complete"`
}

// RatesResult is returned by lend_rates.
type RatesResult struct {
	Rates asset.Rates `json:"rates"`
}
