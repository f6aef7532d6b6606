package loan

import (
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/fee"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// UIImplementorVar is the context variable of the order input that names
// the UI fee recipient.
const UIImplementorVar uint8 = 0

// CloseParams are the lender-side inputs for funding an order.
type CloseParams struct {
	Lender        types.PublicKey
	Height        uint32 // current ledger height
	UIImplementor types.PublicKey
	DevFee        types.Script // protocol fee recipient
	MinBoxValue   uint64
}

// order holds the decoded registers of an order box.
type order struct {
	borrower     types.PublicKey
	borrowerRaw  string
	principal    uint64
	repayment    uint64
	repaymentRaw string
	term         int32
}

func decodeOrder(box tx.Box, op string) (*order, error) {
	regs := box.Registers
	o := &order{}
	var err error

	if o.borrowerRaw, err = regs.Raw(register.R4, op); err != nil {
		return nil, err
	}
	if o.borrower, err = regs.SigmaProp(register.R4, op); err != nil {
		return nil, err
	}
	if o.principal, err = regs.Long(register.R5, op); err != nil {
		return nil, err
	}
	if o.repaymentRaw, err = regs.Raw(register.R6, op); err != nil {
		return nil, err
	}
	if o.repayment, err = regs.Long(register.R6, op); err != nil {
		return nil, err
	}
	if o.term, err = regs.Int(register.R7, op); err != nil {
		return nil, err
	}
	return o, nil
}

// Close funds an order. It consumes the order box and produces, at output
// index 0:
//
//	0: bond (order value/tokens, R4 order id, R5 borrower, R6 repayment,
//	   R7 maturity height, R8 lender)
//	1: principal to the borrower
//	2: protocol fee
//	3: UI fee (always emitted, possibly empty for token loans)
//
// The order input carries the UI implementor key as context variable 0.
func Close(orderBox tx.Box, p CloseParams) (*tx.Transition, error) {
	o, err := decodeOrder(orderBox, OpClose)
	if err != nil {
		return nil, err
	}
	if o.principal == 0 {
		return nil, ErrZeroPrincipal
	}
	if o.repayment < o.principal {
		return nil, fmt.Errorf("%w: %d < %d", ErrRepaymentBelowPrincipal, o.repayment, o.principal)
	}
	if o.term <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTerm, o.term)
	}
	maturity := int64(p.Height) + int64(o.term)
	if maturity > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d + %d", ErrMaturityOverflow, p.Height, o.term)
	}
	if len(p.DevFee) == 0 {
		return nil, ErrNoDevFeeScript
	}

	denom := contract.TokenIDFromOrderScript(orderBox.Script)

	bond := tx.Output{
		Value:  orderBox.Value,
		Script: contract.BondScript(denom),
		Tokens: types.CloneTokens(orderBox.Tokens),
		Registers: register.Registers{
			register.R4: register.EncodeBytes(orderBox.ID[:]),
			register.R5: o.borrowerRaw,
			register.R6: o.repaymentRaw,
			register.R7: register.EncodeInt(int32(maturity)),
			register.R8: register.EncodeSigmaProp(p.Lender),
		},
	}
	borrower := payout(o.principal, denom, p.MinBoxValue, contract.P2PK(o.borrower))

	protocolFee, uiFee := fee.Split(o.principal, denom, p.MinBoxValue)
	devOut := tx.Output{Value: protocolFee.Value, Script: p.DevFee, Tokens: protocolFee.Tokens}
	uiOut := tx.Output{Value: uiFee.Value, Script: contract.P2PK(p.UIImplementor), Tokens: uiFee.Tokens}
	for i, out := range []tx.Output{borrower, devOut, uiOut} {
		if out.Value < p.MinBoxValue {
			return nil, fmt.Errorf("%w: output %d value %d < %d", ErrBelowMinBoxValue, i+1, out.Value, p.MinBoxValue)
		}
	}

	in := tx.Input{
		Box:       orderBox,
		Extension: map[uint8]string{UIImplementorVar: register.EncodeSigmaProp(p.UIImplementor)},
	}

	log.Loan.Debug().
		Str("op", OpClose).
		Str("order", orderBox.ID.String()).
		Str("denom", denom.String()).
		Uint64("principal", o.principal).
		Int64("maturity", maturity).
		Msg("built bond")

	return &tx.Transition{
		Inputs:      []tx.Input{in},
		Outputs:     []tx.Output{bond, borrower, devOut, uiOut},
		OutputIndex: 0,
	}, nil
}
