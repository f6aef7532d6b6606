package loan

import (
	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// receipt tags a settlement payout with the id of the bond it settles.
func receipt(bond tx.Box) register.Registers {
	return register.Registers{register.R4: register.EncodeBytes(bond.ID[:])}
}

// Repay settles a bond before maturity. It produces, at output index 0:
//
//	0: repayment to the lender, tagged with the bond id
//	1: the bond's full value and tokens back to the borrower
func Repay(bond tx.Box, minBox uint64) (*tx.Transition, error) {
	regs := bond.Registers
	borrower, err := regs.SigmaProp(register.R5, OpRepay)
	if err != nil {
		return nil, err
	}
	repayment, err := regs.Long(register.R6, OpRepay)
	if err != nil {
		return nil, err
	}
	lender, err := regs.SigmaProp(register.R8, OpRepay)
	if err != nil {
		return nil, err
	}

	denom := contract.TokenIDFromBondScript(bond.Script)

	toLender := payout(repayment, denom, minBox, contract.P2PK(lender))
	toLender.Registers = receipt(bond)

	toBorrower := tx.Output{
		Value:  bond.Value,
		Script: contract.P2PK(borrower),
		Tokens: types.CloneTokens(bond.Tokens),
	}

	log.Loan.Debug().
		Str("op", OpRepay).
		Str("bond", bond.ID.String()).
		Uint64("repayment", repayment).
		Msg("built repayment")

	return &tx.Transition{
		Inputs:      []tx.Input{tx.NewInput(bond)},
		Outputs:     []tx.Output{toLender, toBorrower},
		OutputIndex: 0,
	}, nil
}

// Liquidate claims a matured bond's full value and tokens for recipient.
// Maturity and the lender's right to claim are enforced by the bond script.
func Liquidate(bond tx.Box, recipient types.Script) (*tx.Transition, error) {
	if len(recipient) == 0 {
		return nil, ErrNoDestination
	}

	claim := tx.Output{
		Value:     bond.Value,
		Script:    recipient,
		Tokens:    types.CloneTokens(bond.Tokens),
		Registers: receipt(bond),
	}

	log.Loan.Debug().Str("op", OpLiquidate).Str("bond", bond.ID.String()).Msg("built liquidation")

	return &tx.Transition{
		Inputs:      []tx.Input{tx.NewInput(bond)},
		Outputs:     []tx.Output{claim},
		OutputIndex: 0,
	}, nil
}
