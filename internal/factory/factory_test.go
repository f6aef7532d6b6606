package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/indexer"
	"github.com/Klingon-tech/klingnet-lend/internal/loan"
	"github.com/Klingon-tech/klingnet-lend/internal/wallet"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// fakeSource serves wallet boxes and records submissions.
type fakeSource struct {
	height    uint32
	unspent   map[string][]tx.Box
	submitted []*tx.Transaction
}

func (f *fakeSource) Height(context.Context) (uint32, error) { return f.height, nil }

func (f *fakeSource) UnspentBoxes(_ context.Context, s types.Script) ([]tx.Box, error) {
	return f.unspent[s.String()], nil
}

func (f *fakeSource) Boxes(context.Context, indexer.BoxQuery) ([]tx.Box, error) { return nil, nil }

func (f *fakeSource) Tokens(context.Context, []types.TokenID) ([]indexer.TokenInfo, error) {
	return nil, nil
}

func (f *fakeSource) Balances(context.Context, []types.Script) ([]asset.Balance, error) {
	return nil, nil
}

func (f *fakeSource) Submit(_ context.Context, t *tx.Transaction) (types.Hash, error) {
	f.submitted = append(f.submitted, t)
	return t.Hash(), nil
}

func testWallet(t *testing.T, account uint32) *wallet.Wallet {
	t.Helper()
	seed, err := wallet.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	w, err := wallet.NewWallet(seed, account, 1)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func funded(w *wallet.Wallet, value uint64, id byte) *fakeSource {
	script := contract.P2PK(w.Primary())
	return &fakeSource{
		height:  500,
		unspent: map[string][]tx.Box{script.String(): {{ID: types.Hash{id}, Value: value, Script: script}}},
	}
}

func openParams() loan.OpenParams {
	return loan.OpenParams{
		Type:         contract.OnClose,
		Denomination: types.NativeToken,
		Principal:    1_000_000_000,
		Repayment:    1_050_000_000,
		Term:         720,
		Collateral:   loan.Collateral{Value: 10_000_000_000},
	}
}

func TestFactory_Open(t *testing.T) {
	borrower := testWallet(t, 0)
	src := funded(borrower, 20_000_000_000, 1)
	f := New(src, borrower, Params{DevFee: contract.P2PK(borrower.Primary())})

	res, err := f.Open(context.Background(), openParams())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !res.Submitted || len(src.submitted) != 1 || res.TxID != res.Tx.Hash() {
		t.Fatalf("result = %+v", res)
	}
	txn := res.Tx
	if txn.Height != 500 {
		t.Errorf("height = %d, want 500", txn.Height)
	}
	order := txn.OutputBoxes()[0]
	if kind, _ := contract.Classify(order.Script); kind != contract.Order {
		t.Fatalf("first output is %s, want order", kind)
	}
	if pk, err := order.Registers.SigmaProp(register.R4, "test"); err != nil || pk != borrower.Primary() {
		t.Errorf("borrower = %s, %v", pk, err)
	}
	fee := txn.Outputs[len(txn.Outputs)-1]
	if fee.Value != config.MinerFee || !fee.Script.Equal(config.MinerFeeScript()) {
		t.Errorf("fee output = %+v", fee)
	}
	if err := txn.VerifySignatures(); err != nil {
		t.Errorf("VerifySignatures: %v", err)
	}
}

func TestFactory_CloseUsesCurrentHeight(t *testing.T) {
	borrower, lender := testWallet(t, 0), testWallet(t, 1)

	p := openParams()
	p.Borrower = borrower.Primary()
	p.MinBoxValue = config.MinBoxValue
	tr, err := loan.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	out := tr.Outputs[0]
	order := tx.Box{ID: types.Hash{0x0f}, Value: out.Value, Script: out.Script, Registers: out.Registers}

	src := funded(lender, 5_000_000_000, 2)
	f := New(src, lender, Params{DevFee: contract.P2PK(borrower.Primary())})
	res, err := f.Close(context.Background(), order)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	bond := res.Tx.OutputBoxes()[0]
	if kind, _ := contract.Classify(bond.Script); kind != contract.Bond {
		t.Fatalf("first output is %s, want bond", kind)
	}
	if h, err := bond.Registers.Int(register.R7, "test"); err != nil || h != 1_220 {
		t.Errorf("maturity = %d, %v, want 500 + 720", h, err)
	}
	if pk, err := bond.Registers.SigmaProp(register.R8, "test"); err != nil || pk != lender.Primary() {
		t.Errorf("lender = %s, %v", pk, err)
	}
	// The UI fee defaults to the lender.
	if ui := res.Tx.Inputs[0].Extension[loan.UIImplementorVar]; ui != register.EncodeSigmaProp(lender.Primary()) {
		t.Errorf("ui implementor = %s", ui)
	}
}

func TestFactory_DryRun(t *testing.T) {
	w := testWallet(t, 0)
	src := funded(w, 20_000_000_000, 1)
	f := New(src, w, Params{DryRun: true})

	res, err := f.Open(context.Background(), openParams())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if res.Submitted || len(src.submitted) != 0 {
		t.Error("dry run must not submit")
	}
	if res.TxID != res.Tx.Hash() {
		t.Error("dry run id should be the transaction hash")
	}
}

func TestFactory_NoFunds(t *testing.T) {
	w := testWallet(t, 0)
	f := New(&fakeSource{height: 1}, w, Params{})
	if _, err := f.Open(context.Background(), openParams()); !errors.Is(err, ErrNoFunds) {
		t.Errorf("error = %v, want ErrNoFunds", err)
	}
}

func TestFactory_InsufficientFunds(t *testing.T) {
	w := testWallet(t, 0)
	f := New(funded(w, 2_000_000_000, 1), w, Params{})
	if _, err := f.Open(context.Background(), openParams()); !errors.Is(err, tx.ErrInsufficientFunds) {
		t.Errorf("error = %v, want ErrInsufficientFunds", err)
	}
}

func TestFactory_CloseWithoutDevFee(t *testing.T) {
	w := testWallet(t, 0)
	f := New(funded(w, 5_000_000_000, 1), w, Params{})
	order := tx.Box{ID: types.Hash{1}, Script: contract.BondScript(types.NativeToken)}
	if _, err := f.Close(context.Background(), order); err == nil {
		t.Error("close without a protocol fee script should fail")
	}
}
