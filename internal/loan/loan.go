// Package loan builds the transitions of the loan lifecycle:
//
//	Open -> Order -> Cancel (refund)
//	              -> Close  -> Bond -> Repay
//	                                -> Liquidate
//
// Every operation is a pure function of the boxes and parameters it is
// given. It never performs I/O and never returns a partial transition.
package loan

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/fee"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Operation names carried by missing-register errors.
const (
	OpOpen      = "open"
	OpCancel    = "cancel"
	OpClose     = "close"
	OpRepay     = "repay"
	OpLiquidate = "liquidate"
)

// Lifecycle errors.
var (
	ErrZeroPrincipal           = errors.New("principal must be positive")
	ErrRepaymentBelowPrincipal = errors.New("repayment is below principal")
	ErrInvalidTerm             = errors.New("term must be a positive number of blocks")
	ErrNoCollateral            = errors.New("collateral is empty")
	ErrInvalidCollateral       = errors.New("invalid collateral")
	ErrBelowMinBoxValue        = errors.New("value below minimum box value")
	ErrNoDestination           = errors.New("destination script is empty")
	ErrNoDevFeeScript          = errors.New("protocol fee script is empty")
	ErrMaturityOverflow        = errors.New("maturity height overflows")
)

// Collateral is the value and tokens locked in an order.
type Collateral struct {
	Value  uint64
	Tokens []types.TokenAmount
}

// OpenParams describes a new loan request.
type OpenParams struct {
	Type         contract.LoanType
	Borrower     types.PublicKey
	Denomination types.TokenID // types.NativeToken for native loans
	Principal    uint64
	Repayment    uint64
	Term         int32 // blocks
	Collateral   Collateral
	MinBoxValue  uint64
}

func (p *OpenParams) validate() error {
	if p.Principal == 0 {
		return ErrZeroPrincipal
	}
	if p.Repayment < p.Principal {
		return fmt.Errorf("%w: %d < %d", ErrRepaymentBelowPrincipal, p.Repayment, p.Principal)
	}
	if p.Term <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTerm, p.Term)
	}
	if p.Collateral.Value == 0 && len(p.Collateral.Tokens) == 0 {
		return ErrNoCollateral
	}
	if p.Collateral.Value > 0 && p.Collateral.Value < p.MinBoxValue {
		return fmt.Errorf("%w: collateral %d < %d", ErrBelowMinBoxValue, p.Collateral.Value, p.MinBoxValue)
	}
	if p.Denomination.IsNative() {
		if ui := fee.UI(p.Principal); ui < p.MinBoxValue {
			return fmt.Errorf("%w: ui fee %d of principal %d < %d", ErrBelowMinBoxValue, ui, p.Principal, p.MinBoxValue)
		}
	}
	for _, t := range p.Collateral.Tokens {
		if t.Amount == 0 {
			return fmt.Errorf("%w: token %s has zero amount", ErrInvalidCollateral, t.ID)
		}
	}
	return nil
}

// Open builds the order box for a new loan request. Token-only collateral
// rides in a box holding the minimum box value.
func Open(p OpenParams) (*tx.Transition, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	script, err := contract.OrderScript(p.Denomination, p.Type)
	if err != nil {
		return nil, err
	}

	value := p.Collateral.Value
	if value == 0 {
		value = p.MinBoxValue
	}

	order := tx.Output{
		Value:  value,
		Script: script,
		Tokens: types.CloneTokens(p.Collateral.Tokens),
		Registers: register.Registers{
			register.R4: register.EncodeSigmaProp(p.Borrower),
			register.R5: register.EncodeLong(p.Principal),
			register.R6: register.EncodeLong(p.Repayment),
			register.R7: register.EncodeInt(p.Term),
		},
	}

	log.Loan.Debug().
		Str("op", OpOpen).
		Str("denom", p.Denomination.String()).
		Uint64("principal", p.Principal).
		Uint64("repayment", p.Repayment).
		Int32("term", p.Term).
		Msg("built order")

	return &tx.Transition{Outputs: []tx.Output{order}, OutputIndex: tx.AppendOutputs}, nil
}

// Cancel refunds an order box's full value and tokens to destination.
// Whether destination may spend the order is decided by the order script.
func Cancel(order tx.Box, destination types.Script) (*tx.Transition, error) {
	if len(destination) == 0 {
		return nil, ErrNoDestination
	}

	refund := tx.Output{
		Value:  order.Value,
		Script: destination,
		Tokens: types.CloneTokens(order.Tokens),
	}

	log.Loan.Debug().Str("op", OpCancel).Str("order", order.ID.String()).Msg("built refund")

	return &tx.Transition{
		Inputs:      []tx.Input{tx.NewInput(order)},
		Outputs:     []tx.Output{refund},
		OutputIndex: tx.AppendOutputs,
	}, nil
}

// payout returns an output paying amount of denom to script. Token amounts
// ride in a box holding minBox native value.
func payout(amount uint64, denom types.TokenID, minBox uint64, script types.Script) tx.Output {
	if denom.IsNative() {
		return tx.Output{Value: amount, Script: script}
	}
	return tx.Output{
		Value:  minBox,
		Script: script,
		Tokens: []types.TokenAmount{{ID: denom, Amount: amount}},
	}
}
