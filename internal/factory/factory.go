// Package factory turns lifecycle transitions into signed, funded
// transactions and submits them to the indexer.
package factory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/indexer"
	"github.com/Klingon-tech/klingnet-lend/internal/loan"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// ErrNoFunds is returned when the wallet holds no spendable boxes.
var ErrNoFunds = errors.New("wallet has no spendable boxes")

// Signer is the wallet the factory funds and signs with.
type Signer interface {
	// Primary is the key loans are opened, funded and paid out with.
	Primary() types.PublicKey
	// Scripts are the scripts guarding the wallet's boxes.
	Scripts() []types.Script
	// Sign sets the input proofs the wallet can authorize.
	Sign(t *tx.Transaction) error
}

// Params are the fee and box rules applied to every transaction.
type Params struct {
	MinerFee      uint64
	MinBoxValue   uint64
	DevFee        types.Script
	UIImplementor types.PublicKey // zero pays the UI fee to the lender
	DryRun        bool            // build and sign without submitting
}

// Result is a built transaction and its id.
type Result struct {
	TxID      types.Hash
	Tx        *tx.Transaction
	Submitted bool
}

// Factory builds lifecycle transactions for one wallet.
type Factory struct {
	src    indexer.Source
	signer Signer
	params Params
}

// New creates a factory. Zero fee and box values take the protocol
// defaults.
func New(src indexer.Source, signer Signer, p Params) *Factory {
	if p.MinerFee == 0 {
		p.MinerFee = config.MinerFee
	}
	if p.MinBoxValue == 0 {
		p.MinBoxValue = config.MinBoxValue
	}
	return &Factory{src: src, signer: signer, params: p}
}

// Open locks collateral in a new order. An unset borrower is the wallet's
// primary key.
func (f *Factory) Open(ctx context.Context, p loan.OpenParams) (*Result, error) {
	if p.Borrower.IsZero() {
		p.Borrower = f.signer.Primary()
	}
	if p.MinBoxValue == 0 {
		p.MinBoxValue = f.params.MinBoxValue
	}
	tr, err := loan.Open(p)
	if err != nil {
		return nil, err
	}
	return f.execute(ctx, loan.OpOpen, 0, tr)
}

// Cancel refunds an order to the wallet.
func (f *Factory) Cancel(ctx context.Context, order tx.Box) (*Result, error) {
	tr, err := loan.Cancel(order, contract.P2PK(f.signer.Primary()))
	if err != nil {
		return nil, err
	}
	return f.execute(ctx, loan.OpCancel, 0, tr)
}

// Close funds an order with the wallet as lender.
func (f *Factory) Close(ctx context.Context, order tx.Box) (*Result, error) {
	height, err := f.src.Height(ctx)
	if err != nil {
		return nil, err
	}
	ui := f.params.UIImplementor
	if ui.IsZero() {
		ui = f.signer.Primary()
	}
	tr, err := loan.Close(order, loan.CloseParams{
		Lender:        f.signer.Primary(),
		Height:        height,
		UIImplementor: ui,
		DevFee:        f.params.DevFee,
		MinBoxValue:   f.params.MinBoxValue,
	})
	if err != nil {
		return nil, err
	}
	return f.execute(ctx, loan.OpClose, height, tr)
}

// Repay pays a bond back from the wallet.
func (f *Factory) Repay(ctx context.Context, bond tx.Box) (*Result, error) {
	tr, err := loan.Repay(bond, f.params.MinBoxValue)
	if err != nil {
		return nil, err
	}
	return f.execute(ctx, loan.OpRepay, 0, tr)
}

// Liquidate claims a matured bond's collateral into the wallet.
func (f *Factory) Liquidate(ctx context.Context, bond tx.Box) (*Result, error) {
	tr, err := loan.Liquidate(bond, contract.P2PK(f.signer.Primary()))
	if err != nil {
		return nil, err
	}
	return f.execute(ctx, loan.OpLiquidate, 0, tr)
}

// execute funds tr from the wallet, pays the miner fee, signs and submits.
// height 0 means the current height is fetched.
func (f *Factory) execute(ctx context.Context, op string, height uint32, tr *tx.Transition) (*Result, error) {
	if height == 0 {
		h, err := f.src.Height(ctx)
		if err != nil {
			return nil, err
		}
		height = h
	}
	funds, err := f.funds(ctx)
	if err != nil {
		return nil, err
	}

	t, err := tx.NewBuilder(height, f.params.MinBoxValue).
		From(funds...).
		Extend(tr).
		PayFee(f.params.MinerFee, config.MinerFeeScript()).
		SendChangeTo(contract.P2PK(f.signer.Primary())).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := f.signer.Sign(t); err != nil {
		return nil, fmt.Errorf("%s: sign: %w", op, err)
	}

	res := &Result{TxID: t.Hash(), Tx: t}
	if f.params.DryRun {
		log.Loan.Info().Str("op", op).Str("tx", res.TxID.String()).Msg("Built transaction (dry run)")
		return res, nil
	}
	id, err := f.src.Submit(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res.TxID, res.Submitted = id, true
	log.Loan.Info().
		Str("op", op).
		Str("tx", id.String()).
		Int("inputs", len(t.Inputs)).
		Int("outputs", len(t.Outputs)).
		Msg("Transaction submitted")
	return res, nil
}

func (f *Factory) funds(ctx context.Context) ([]tx.Box, error) {
	var funds []tx.Box
	for _, script := range f.signer.Scripts() {
		boxes, err := f.src.UnspentBoxes(ctx, script)
		if err != nil {
			return nil, err
		}
		funds = append(funds, boxes...)
	}
	if len(funds) == 0 {
		return nil, ErrNoFunds
	}
	return funds, nil
}
