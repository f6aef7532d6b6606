package loan

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

const minBox = 1_000_000

var sigUSD = types.TokenID{0x03, 0xfa, 0xf2, 0xcb}

func newKey(t *testing.T) types.PublicKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key.PublicKey()
}

func nativeOpen(borrower types.PublicKey) OpenParams {
	return OpenParams{
		Type:         contract.OnClose,
		Borrower:     borrower,
		Denomination: types.NativeToken,
		Principal:    1_000_000_000,
		Repayment:    1_050_000_000,
		Term:         720,
		Collateral:   Collateral{Value: 10_000_000_000},
		MinBoxValue:  minBox,
	}
}

// orderBox turns the output of Open into an on-ledger box.
func orderBox(t *testing.T, p OpenParams) tx.Box {
	t.Helper()
	tr, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := tr.Outputs[0]
	return tx.Box{
		ID:        types.Hash{0x0d, 0x01},
		Value:     out.Value,
		Script:    out.Script,
		Tokens:    out.Tokens,
		Registers: out.Registers,
	}
}

func TestOpen_RegistersRoundtrip(t *testing.T) {
	borrower := newKey(t)
	p := nativeOpen(borrower)

	tr, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(tr.Inputs) != 0 || len(tr.Outputs) != 1 || tr.OutputIndex != tx.AppendOutputs {
		t.Fatalf("transition = %+v", tr)
	}

	out := tr.Outputs[0]
	regs := out.Registers
	gotBorrower, err := regs.SigmaProp(register.R4, "test")
	if err != nil || gotBorrower != borrower {
		t.Errorf("R4 = %s, %v", gotBorrower, err)
	}
	if v, err := regs.Long(register.R5, "test"); err != nil || v != p.Principal {
		t.Errorf("R5 = %d, %v", v, err)
	}
	if v, err := regs.Long(register.R6, "test"); err != nil || v != p.Repayment {
		t.Errorf("R6 = %d, %v", v, err)
	}
	if v, err := regs.Int(register.R7, "test"); err != nil || v != p.Term {
		t.Errorf("R7 = %d, %v", v, err)
	}

	want, _ := contract.OrderScript(types.NativeToken, contract.OnClose)
	if !out.Script.Equal(want) {
		t.Error("native order should use the on-close native script")
	}
	if out.Value != p.Collateral.Value {
		t.Errorf("value = %d, want collateral", out.Value)
	}
}

func TestOpen_TokenOnlyCollateralUsesMinBox(t *testing.T) {
	p := nativeOpen(newKey(t))
	p.Denomination = sigUSD
	p.Type = contract.FixedHeight
	p.Collateral = Collateral{Tokens: []types.TokenAmount{{ID: types.TokenID{0xaa}, Amount: 500}}}

	tr, err := Open(p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := tr.Outputs[0]
	if out.Value != minBox {
		t.Errorf("value = %d, want min box value", out.Value)
	}
	if len(out.Tokens) != 1 || out.Tokens[0].Amount != 500 {
		t.Errorf("tokens = %+v", out.Tokens)
	}
	if contract.TokenIDFromOrderScript(out.Script) != sigUSD {
		t.Error("order script should carry the denomination")
	}

	// Token orders resolve to the on-close template even when fixed-height
	// is requested.
	onClose, _ := contract.OrderScript(sigUSD, contract.OnClose)
	if !out.Script.Equal(onClose) {
		t.Error("token order should use the on-close template")
	}

	p.Collateral.Tokens[0].Amount = 1
	if out.Tokens[0].Amount != 500 {
		t.Error("order tokens should not alias the caller's slice")
	}
}

func TestOpen_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OpenParams)
		want   error
	}{
		{"zero principal", func(p *OpenParams) { p.Principal = 0 }, ErrZeroPrincipal},
		{"repayment below principal", func(p *OpenParams) { p.Repayment = p.Principal - 1 }, ErrRepaymentBelowPrincipal},
		{"zero term", func(p *OpenParams) { p.Term = 0 }, ErrInvalidTerm},
		{"negative term", func(p *OpenParams) { p.Term = -5 }, ErrInvalidTerm},
		{"no collateral", func(p *OpenParams) { p.Collateral = Collateral{} }, ErrNoCollateral},
		{"dust collateral", func(p *OpenParams) { p.Collateral.Value = 10 }, ErrBelowMinBoxValue},
		{"ui fee below min box", func(p *OpenParams) {
			p.Principal, p.Repayment = 249_999_999, 260_000_000
		}, ErrBelowMinBoxValue},
		{"zero token", func(p *OpenParams) {
			p.Collateral.Tokens = []types.TokenAmount{{ID: types.TokenID{1}}}
		}, ErrInvalidCollateral},
		{"bad type", func(p *OpenParams) { p.Type = "daily" }, contract.ErrUnknownLoanType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := nativeOpen(types.PublicKey{2})
			tt.mutate(&p)
			if _, err := Open(p); !errors.Is(err, tt.want) {
				t.Errorf("Open() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen_InterestFreeAllowed(t *testing.T) {
	p := nativeOpen(types.PublicKey{2})
	p.Repayment = p.Principal
	if _, err := Open(p); err != nil {
		t.Errorf("repayment equal to principal should be allowed: %v", err)
	}
}

func TestCancel(t *testing.T) {
	p := nativeOpen(newKey(t))
	p.Collateral.Tokens = []types.TokenAmount{{ID: types.TokenID{5}, Amount: 9}}
	box := orderBox(t, p)
	dest := contract.P2PK(p.Borrower)

	tr, err := Cancel(box, dest)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(tr.Inputs) != 1 || tr.Inputs[0].ID != box.ID {
		t.Fatalf("inputs = %+v", tr.Inputs)
	}
	if len(tr.Outputs) != 1 {
		t.Fatalf("outputs = %d, want 1", len(tr.Outputs))
	}
	out := tr.Outputs[0]
	if out.Value != box.Value || !out.Script.Equal(dest) || len(out.Registers) != 0 {
		t.Errorf("refund = %+v", out)
	}
	if len(out.Tokens) != 1 || out.Tokens[0].Amount != 9 {
		t.Errorf("refund tokens = %+v", out.Tokens)
	}

	if _, err := Cancel(box, nil); !errors.Is(err, ErrNoDestination) {
		t.Errorf("empty destination: %v", err)
	}
}
