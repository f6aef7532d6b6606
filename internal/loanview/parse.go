package loanview

import (
	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

var (
	hundred      = decimal.NewFromInt(100)
	daysPerYear  = decimal.NewFromInt(365)
	minutesInDay = decimal.NewFromInt(24 * 60)
)

// ParseOrder decodes an order box.
func ParseOrder(box tx.Box, ctx Context) (*Order, error) {
	regs := box.Registers
	borrower, err := regs.SigmaProp(register.R4, OpParseOrder)
	if err != nil {
		return nil, err
	}
	principal, err := regs.Long(register.R5, OpParseOrder)
	if err != nil {
		return nil, err
	}
	repayment, err := regs.Long(register.R6, OpParseOrder)
	if err != nil {
		return nil, err
	}
	term, err := regs.Int(register.R7, OpParseOrder)
	if err != nil {
		return nil, err
	}

	denom := contract.TokenIDFromOrderScript(box.Script)
	interest := interestOf(principal, repayment, term, denom, ctx)

	o := &Order{Loan: Loan{
		Box:        box,
		Principal:  ctx.asset(denom, principal),
		Collateral: ctx.collateral(box),
		Interest:   interest,
		Term:       NewTerm(int64(term)),
		Borrower:   borrower.Address().String(),
	}}
	o.Cancellable = ctx.owns(o.Borrower)
	o.Ratio = ratio(&o.Loan, ctx.Rates)
	return o, nil
}

// ParseBond decodes a bond box at the given ledger height. The principal
// shown is the repayment owed.
func ParseBond(box tx.Box, ctx Context, height uint32) (*Bond, error) {
	regs := box.Registers
	borrower, err := regs.SigmaProp(register.R5, OpParseBond)
	if err != nil {
		return nil, err
	}
	repayment, err := regs.Long(register.R6, OpParseBond)
	if err != nil {
		return nil, err
	}
	maturity, err := regs.Int(register.R7, OpParseBond)
	if err != nil {
		return nil, err
	}
	lender, err := regs.SigmaProp(register.R8, OpParseBond)
	if err != nil {
		return nil, err
	}

	denom := contract.TokenIDFromBondScript(box.Script)
	blocksLeft := int64(maturity) - int64(height)

	b := &Bond{
		Loan: Loan{
			Box:        box,
			Principal:  ctx.asset(denom, repayment),
			Collateral: ctx.collateral(box),
			Term:       NewTerm(blocksLeft),
			Borrower:   borrower.Address().String(),
		},
		Lender:     lender.Address().String(),
		BlocksLeft: blocksLeft,
	}
	lenderOwned := ctx.owns(b.Lender)
	b.Side = Debit
	if lenderOwned {
		b.Side = Lend
	}
	b.Liquidable = blocksLeft <= 0 && lenderOwned
	b.Repayable = blocksLeft > 0 && ctx.owns(b.Borrower)
	b.Ratio = ratio(&b.Loan, ctx.Rates)
	return b, nil
}

func (c *Context) asset(id types.TokenID, amount uint64) Asset {
	meta, known := c.Metadata.Get(id)
	return Asset{ID: id, Amount: asset.Decimalize(amount, meta.Decimals), Metadata: meta, Known: known}
}

// collateral lists the box tokens, preceded by the native value when it is
// above the minimum box value.
func (c *Context) collateral(box tx.Box) []Asset {
	minBox := c.MinBoxValue
	if minBox == 0 {
		minBox = config.MinBoxValue
	}

	out := make([]Asset, 0, len(box.Tokens)+1)
	if box.Value > minBox {
		meta, known := c.Metadata.Get(types.NativeToken)
		out = append(out, Asset{
			ID:       types.NativeToken,
			Amount:   asset.Decimalize(box.Value, config.Decimals),
			Metadata: meta,
			Known:    known,
		})
	}
	for _, t := range box.Tokens {
		out = append(out, c.asset(t.ID, t.Amount))
	}
	return out
}

// interestOf computes the interest amount, its percent of the principal
// and the annualized rate, each percent rounded to 3 places. A block is
// taken as config.BlockInterval.
func interestOf(principal, repayment uint64, term int32, denom types.TokenID, ctx Context) *Interest {
	p := asset.Decimalize(principal, 0)
	base := asset.Decimalize(repayment, 0).Sub(p)

	meta, known := ctx.Metadata.Get(denom)
	in := &Interest{Asset: Asset{
		ID:       denom,
		Amount:   base.Shift(-int32(meta.Decimals)),
		Metadata: meta,
		Known:    known,
	}}

	if principal > 0 {
		in.Percent = base.Div(p).Mul(hundred).Round(3)
	}
	if term > 0 {
		minutes := decimal.NewFromInt(int64(term)).Mul(decimal.NewFromFloat(config.BlockInterval.Minutes()))
		days := minutes.Div(minutesInDay)
		in.APR = in.Percent.Div(days).Mul(daysPerYear).Round(3)
	}
	return in
}

// ratio returns (collateral fiat - interest fiat) / principal fiat in
// percent. Collateral without metadata or rate counts as zero. The result
// is nil when the principal has no rate or is worth nothing.
func ratio(l *Loan, rates asset.Rates) *decimal.Decimal {
	if !rates.Has(l.Principal.ID) {
		return nil
	}
	principal := l.Principal.Amount.Mul(rates.Fiat(l.Principal.ID))
	if principal.IsZero() {
		return nil
	}

	collateral := decimal.Zero
	for _, c := range l.Collateral {
		if c.Known {
			collateral = collateral.Add(c.Amount.Mul(rates.Fiat(c.ID)))
		}
	}
	interest := decimal.Zero
	if l.Interest != nil {
		interest = l.Interest.Amount.Mul(rates.Fiat(l.Interest.ID))
	}

	r := collateral.Sub(interest).Div(principal).Mul(hundred)
	return &r
}
