package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

func valueBoxes(values ...uint64) []Box {
	boxes := make([]Box, len(values))
	for i, v := range values {
		boxes[i] = testBox(byte(i+1), v, feeScript)
	}
	return boxes
}

func TestSelectCoins_SingleExact(t *testing.T) {
	sel, err := SelectCoins(valueBoxes(100, 500, 1000), 500)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if len(sel.Inputs) != 1 || sel.Total != 500 || sel.Change != 0 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestSelectCoins_Accumulate(t *testing.T) {
	sel, err := SelectCoins(valueBoxes(300, 400, 500), 800)
	if err != nil {
		t.Fatalf("SelectCoins: %v", err)
	}
	if sel.Total < 800 || sel.Change != sel.Total-800 {
		t.Errorf("selection = %+v", sel)
	}
	if len(sel.Inputs) != 2 {
		t.Errorf("inputs = %d, want 2 (500+400)", len(sel.Inputs))
	}
}

func TestSelectCoins_Errors(t *testing.T) {
	if _, err := SelectCoins(nil, 1); !errors.Is(err, ErrNoBoxes) {
		t.Errorf("empty: %v", err)
	}
	if _, err := SelectCoins(valueBoxes(0, 0), 1); !errors.Is(err, ErrNoBoxes) {
		t.Errorf("zero-value: %v", err)
	}
	if _, err := SelectCoins(valueBoxes(1, 2), 10); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("short: %v", err)
	}
	if _, err := SelectCoins(valueBoxes(1), 0); err == nil {
		t.Error("zero target should fail")
	}
}

func TestSelectTokens(t *testing.T) {
	id := types.TokenID{5}
	boxes := []Box{
		testBox(1, 1_000_000, feeScript, types.TokenAmount{ID: id, Amount: 3}),
		testBox(2, 1_000_000, feeScript),
		testBox(3, 1_000_000, feeScript, types.TokenAmount{ID: id, Amount: 7}),
	}

	sel, err := SelectTokens(boxes, id, 5)
	if err != nil {
		t.Fatalf("SelectTokens: %v", err)
	}
	if len(sel) != 1 || sel[0].ID != boxes[2].ID {
		t.Errorf("should pick the largest holder first, got %v", sel)
	}

	sel, err = SelectTokens(boxes, id, 10)
	if err != nil || len(sel) != 2 {
		t.Errorf("SelectTokens(10) = %v, %v", sel, err)
	}

	if _, err := SelectTokens(boxes, id, 11); !errors.Is(err, ErrInsufficientTokens) {
		t.Errorf("error = %v, want ErrInsufficientTokens", err)
	}
}
