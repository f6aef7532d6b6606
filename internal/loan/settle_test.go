package loan

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// bondBox closes a fresh order and returns the resulting bond as a box.
func bondBox(t *testing.T, p OpenParams, cp CloseParams) tx.Box {
	t.Helper()
	tr, err := Close(orderBox(t, p), cp)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	out := tr.Outputs[0]
	return tx.Box{
		ID:        types.Hash{0xb0, 0x0d},
		Value:     out.Value,
		Script:    out.Script,
		Tokens:    out.Tokens,
		Registers: out.Registers,
	}
}

func assertReceipt(t *testing.T, out tx.Output, bond tx.Box) {
	t.Helper()
	id, err := out.Registers.Bytes(register.R4, "test")
	if err != nil {
		t.Fatalf("receipt R4: %v", err)
	}
	if types.Hash(id) != bond.ID {
		t.Errorf("receipt R4 = %x, want bond id %s", id, bond.ID)
	}
}

func TestRepay_Native(t *testing.T) {
	p := nativeOpen(newKey(t))
	cp := closeParams(t)
	bond := bondBox(t, p, cp)

	tr, err := Repay(bond, minBox)
	if err != nil {
		t.Fatalf("Repay: %v", err)
	}
	if len(tr.Inputs) != 1 || tr.Inputs[0].ID != bond.ID || tr.OutputIndex != 0 {
		t.Fatalf("transition = %+v", tr)
	}
	if len(tr.Outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(tr.Outputs))
	}

	lender := tr.Outputs[0]
	if lender.Value != p.Repayment || !lender.Script.Equal(contract.P2PK(cp.Lender)) {
		t.Errorf("lender payout = %+v", lender)
	}
	assertReceipt(t, lender, bond)

	borrower := tr.Outputs[1]
	if borrower.Value != bond.Value || !borrower.Script.Equal(contract.P2PK(p.Borrower)) {
		t.Errorf("borrower refund = %+v", borrower)
	}
}

func TestRepay_Token(t *testing.T) {
	p := nativeOpen(newKey(t))
	p.Denomination = sigUSD
	p.Principal, p.Repayment = 10_000, 10_500
	p.Collateral.Tokens = []types.TokenAmount{{ID: types.TokenID{0xcc}, Amount: 3}}
	bond := bondBox(t, p, closeParams(t))

	tr, err := Repay(bond, minBox)
	if err != nil {
		t.Fatalf("Repay: %v", err)
	}
	lender := tr.Outputs[0]
	if lender.Value != minBox || len(lender.Tokens) != 1 || lender.Tokens[0].ID != sigUSD || lender.Tokens[0].Amount != 10_500 {
		t.Errorf("lender payout = %+v", lender)
	}
	borrower := tr.Outputs[1]
	if len(borrower.Tokens) != 1 || borrower.Tokens[0].ID != (types.TokenID{0xcc}) {
		t.Errorf("collateral tokens should return to the borrower, got %+v", borrower.Tokens)
	}
}

func TestRepay_MissingLender(t *testing.T) {
	bond := bondBox(t, nativeOpen(newKey(t)), closeParams(t))
	delete(bond.Registers, register.R8)

	_, err := Repay(bond, minBox)
	var missing *register.MissingError
	if !errors.As(err, &missing) || missing.Register != register.R8 || missing.Operation != OpRepay {
		t.Errorf("error = %v, want missing R8 for repay", err)
	}
}

func TestLiquidate(t *testing.T) {
	p := nativeOpen(newKey(t))
	cp := closeParams(t)
	bond := bondBox(t, p, cp)
	recipient := contract.P2PK(cp.Lender)

	tr, err := Liquidate(bond, recipient)
	if err != nil {
		t.Fatalf("Liquidate: %v", err)
	}
	if len(tr.Inputs) != 1 || len(tr.Outputs) != 1 || tr.OutputIndex != 0 {
		t.Fatalf("Liquidate should be 1-in/1-out at index 0, got %+v", tr)
	}
	claim := tr.Outputs[0]
	if claim.Value != bond.Value || !claim.Script.Equal(recipient) {
		t.Errorf("claim = %+v", claim)
	}
	assertReceipt(t, claim, bond)
}

func TestLiquidate_IgnoresRegisters(t *testing.T) {
	bond := tx.Box{ID: types.Hash{9}, Value: 5 * minBox, Script: types.Script{0x10}}
	if _, err := Liquidate(bond, contract.P2PK(types.PublicKey{2})); err != nil {
		t.Errorf("Liquidate should not read bond registers: %v", err)
	}
	if _, err := Liquidate(bond, nil); !errors.Is(err, ErrNoDestination) {
		t.Errorf("empty recipient: %v", err)
	}
}
