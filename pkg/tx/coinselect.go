package tx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrNoBoxes            = errors.New("no boxes available")
)

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []Box  // Selected boxes to spend.
	Total  uint64 // Sum of selected box values.
	Change uint64 // Change = Total - target.
}

// SelectCoins chooses boxes to fund the given native target. It tries two
// strategies:
//  1. Single box: the smallest single box that covers the target (minimizes inputs).
//  2. Largest-first accumulation: greedily adds the largest boxes until the target is met.
//
// Returns the strategy that produces the least change (waste).
func SelectCoins(boxes []Box, target uint64) (*CoinSelection, error) {
	if len(boxes) == 0 {
		return nil, ErrNoBoxes
	}
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	candidates := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		if b.Value > 0 {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoBoxes
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value < candidates[j].Value
	})

	// Strategy 1: smallest single box that covers the target.
	var single *CoinSelection
	for _, b := range candidates {
		if b.Value >= target {
			single = &CoinSelection{Inputs: []Box{b}, Total: b.Value, Change: b.Value - target}
			break
		}
	}

	// Strategy 2: largest-first accumulation.
	var accum *CoinSelection
	var selected []Box
	var total uint64
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Value
		if total >= target {
			accum = &CoinSelection{Inputs: selected, Total: total, Change: total - target}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalValue(candidates), target)
	}
}

// SelectTokens chooses boxes holding token id until amount is covered,
// largest holdings first.
func SelectTokens(boxes []Box, id types.TokenID, amount uint64) ([]Box, error) {
	var holders []Box
	for _, b := range boxes {
		if b.TokenAmount(id) > 0 {
			holders = append(holders, b)
		}
	}
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].TokenAmount(id) > holders[j].TokenAmount(id)
	})

	var selected []Box
	var total uint64
	for _, b := range holders {
		if total >= amount {
			break
		}
		selected = append(selected, b)
		total += b.TokenAmount(id)
	}
	if total < amount {
		return nil, fmt.Errorf("%w: token %s have %d, need %d", ErrInsufficientTokens, id, total, amount)
	}
	return selected, nil
}

func totalValue(boxes []Box) uint64 {
	var total uint64
	for _, b := range boxes {
		total += b.Value
	}
	return total
}
