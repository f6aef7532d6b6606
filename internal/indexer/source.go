// Package indexer reads boxes, token metadata and balances from a box
// indexer and submits signed transactions to it.
package indexer

import (
	"context"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Page sizes used when streaming from a Source.
const (
	BoxPageSize   = 50
	MetadataChunk = 20
)

// BoxQuery selects boxes by script and register values.
type BoxQuery struct {
	Scripts   []types.Script     `json:"scripts,omitempty"`
	Registers register.Registers `json:"registers,omitempty"` // exact serialized values
	Spent     bool               `json:"spent"`
	Skip      int                `json:"skip"`
	Take      int                `json:"take"`
}

// TokenInfo is a token as reported by the indexer, with the registers of
// its issuance box.
type TokenInfo struct {
	ID        types.TokenID      `json:"tokenId"`
	Name      string             `json:"name"`
	Decimals  uint8              `json:"decimals"`
	Registers register.Registers `json:"registers,omitempty"`
}

// Source is the indexer the client depends on.
type Source interface {
	// Height returns the current ledger height.
	Height(ctx context.Context) (uint32, error)
	// UnspentBoxes returns the spendable boxes guarded by script.
	UnspentBoxes(ctx context.Context, script types.Script) ([]tx.Box, error)
	// Boxes returns one page of boxes matching q.
	Boxes(ctx context.Context, q BoxQuery) ([]tx.Box, error)
	// Tokens returns metadata for the given token ids. Unknown ids are
	// omitted.
	Tokens(ctx context.Context, ids []types.TokenID) ([]TokenInfo, error)
	// Balances returns the unspent value held under each script.
	Balances(ctx context.Context, scripts []types.Script) ([]asset.Balance, error)
	// Submit broadcasts a signed transaction and returns its id.
	Submit(ctx context.Context, t *tx.Transaction) (types.Hash, error)
}
