package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/loan"
	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

const minBox = 1_000_000

// fakeSource is an in-memory Source.
type fakeSource struct {
	height    uint32
	boxes     []tx.Box
	tokens    map[types.TokenID]TokenInfo
	balances  []asset.Balance
	submitted []*tx.Transaction

	boxCalls   int
	tokenCalls [][]types.TokenID
	failBoxes  error
}

func (f *fakeSource) Height(context.Context) (uint32, error) { return f.height, nil }

func (f *fakeSource) UnspentBoxes(_ context.Context, script types.Script) ([]tx.Box, error) {
	var out []tx.Box
	for _, b := range f.boxes {
		if b.Script.Equal(script) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSource) Boxes(_ context.Context, q BoxQuery) ([]tx.Box, error) {
	f.boxCalls++
	if f.failBoxes != nil {
		return nil, f.failBoxes
	}
	var match []tx.Box
	for _, b := range f.boxes {
		if matches(b, q) {
			match = append(match, b)
		}
	}
	if q.Skip >= len(match) {
		return nil, nil
	}
	end := min(q.Skip+q.Take, len(match))
	return match[q.Skip:end], nil
}

func matches(b tx.Box, q BoxQuery) bool {
	if len(q.Scripts) > 0 {
		found := false
		for _, s := range q.Scripts {
			if b.Script.Equal(s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for id, v := range q.Registers {
		if b.Registers[id] != v {
			return false
		}
	}
	return true
}

func (f *fakeSource) Tokens(_ context.Context, ids []types.TokenID) ([]TokenInfo, error) {
	f.tokenCalls = append(f.tokenCalls, append([]types.TokenID(nil), ids...))
	var out []TokenInfo
	for _, id := range ids {
		if t, ok := f.tokens[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) Balances(context.Context, []types.Script) ([]asset.Balance, error) {
	return f.balances, nil
}

func (f *fakeSource) Submit(_ context.Context, t *tx.Transaction) (types.Hash, error) {
	if t == nil {
		return types.Hash{}, errors.New("nil transaction")
	}
	f.submitted = append(f.submitted, t)
	return t.Hash(), nil
}

func newKey(t *testing.T) types.PublicKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return k.PublicKey()
}

func firstOutput(t *testing.T, tr *tx.Transition, err error, id byte) tx.Box {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	out := tr.Outputs[0]
	return tx.Box{ID: types.Hash{id}, Value: out.Value, Script: out.Script, Tokens: out.Tokens, Registers: out.Registers}
}

func orderBox(t *testing.T, borrower types.PublicKey, id byte) tx.Box {
	t.Helper()
	tr, err := loan.Open(loan.OpenParams{
		Type:         contract.OnClose,
		Borrower:     borrower,
		Denomination: types.NativeToken,
		Principal:    1_000_000_000,
		Repayment:    1_050_000_000,
		Term:         720,
		Collateral:   loan.Collateral{Value: 10_000_000_000},
		MinBoxValue:  minBox,
	})
	return firstOutput(t, tr, err, id)
}

func bondBox(t *testing.T, borrower, lender types.PublicKey, id byte) tx.Box {
	t.Helper()
	order := orderBox(t, borrower, id)
	tr, err := loan.Close(order, loan.CloseParams{
		Lender:        lender,
		Height:        1_000,
		UIImplementor: lender,
		DevFee:        contract.P2PK(lender),
		MinBoxValue:   minBox,
	})
	return firstOutput(t, tr, err, id)
}
