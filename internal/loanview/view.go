// Package loanview decodes order and bond boxes into display-oriented loan
// records enriched with token metadata and price rates.
package loanview

import (
	"slices"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

// Operation names carried by missing-register errors.
const (
	OpParseOrder = "parse order"
	OpParseBond  = "parse bond"
)

// Context is the off-ledger data a box is enriched with.
type Context struct {
	Metadata    asset.MetadataSet
	Rates       asset.Rates
	Owned       []string // addresses controlled by the local party
	MinBoxValue uint64   // native value above which it counts as collateral
}

func (c *Context) owns(addr string) bool {
	return addr != "" && slices.Contains(c.Owned, addr)
}

// Asset is an amount of one token in whole units.
type Asset struct {
	ID       types.TokenID   `json:"tokenId"`
	Amount   decimal.Decimal `json:"amount"`
	Metadata asset.Metadata  `json:"metadata"`
	Known    bool            `json:"known"` // metadata was available
}

// Interest is the loan's interest and its rates in percent.
type Interest struct {
	Asset
	Percent decimal.Decimal `json:"percent"`
	APR     decimal.Decimal `json:"apr"`
}

// Loan is the part shared by orders and bonds.
type Loan struct {
	Box        tx.Box           `json:"box"`
	Principal  Asset            `json:"principal"`
	Collateral []Asset          `json:"collateral"`
	Interest   *Interest        `json:"interest,omitempty"`
	Ratio      *decimal.Decimal `json:"ratio,omitempty"` // nil when the principal has no rate
	Term       Term             `json:"term"`
	Borrower   string           `json:"borrower"`
}

// Order is an open loan request.
type Order struct {
	Loan
	Cancellable bool `json:"cancellable"`
}

// Side is the local party's role in a bond.
type Side string

const (
	Lend  Side = "lend"
	Debit Side = "debit"
)

// Bond is a funded loan.
type Bond struct {
	Loan
	Lender     string `json:"lender"`
	Side       Side   `json:"side"`
	BlocksLeft int64  `json:"blocksLeft"`
	Liquidable bool   `json:"liquidable"`
	Repayable  bool   `json:"repayable"`
}
