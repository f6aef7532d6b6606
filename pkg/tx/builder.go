package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Builder errors.
var (
	ErrNoChangeScript = errors.New("change needed but no change script set")
	ErrNoFeeScript    = errors.New("fee set but no fee script")
)

// Builder assembles a transaction from one or more transitions, funding
// whatever they lack from a pool of wallet boxes.
//
// Output order is: transition outputs (each inserted at its OutputIndex),
// then change, then the miner fee.
type Builder struct {
	height    uint32
	minBox    uint64
	available []Box
	steps     []*Transition
	fee       uint64
	feeScript types.Script
	change    types.Script
}

// NewBuilder creates a builder for a transaction created at height.
func NewBuilder(height uint32, minBox uint64) *Builder {
	return &Builder{height: height, minBox: minBox}
}

// From adds wallet boxes the builder may spend to fund the transaction.
func (b *Builder) From(boxes ...Box) *Builder {
	b.available = append(b.available, boxes...)
	return b
}

// Extend adds a transition.
func (b *Builder) Extend(t *Transition) *Builder {
	b.steps = append(b.steps, t)
	return b
}

// PayFee adds a miner fee output.
func (b *Builder) PayFee(amount uint64, script types.Script) *Builder {
	b.fee = amount
	b.feeScript = script
	return b
}

// SendChangeTo sets where leftover value and tokens go.
func (b *Builder) SendChangeTo(script types.Script) *Builder {
	b.change = script
	return b
}

// Build selects funding boxes, adds change and fee outputs and validates
// the result.
func (b *Builder) Build() (*Transaction, error) {
	var inputs []Input
	used := make(map[types.Hash]bool)
	var outputs []Output

	for _, step := range b.steps {
		for _, in := range step.Inputs {
			if used[in.ID] {
				return nil, fmt.Errorf("box %s: %w", in.ID, ErrDuplicateInput)
			}
			used[in.ID] = true
			inputs = append(inputs, in)
		}
		outputs = insertOutputs(outputs, step.Outputs, step.OutputIndex)
	}

	var tail []Output
	if b.fee > 0 {
		if len(b.feeScript) == 0 {
			return nil, ErrNoFeeScript
		}
		tail = append(tail, Output{Value: b.fee, Script: b.feeScript})
	}
	spend := append(append([]Output(nil), outputs...), tail...)

	var pool []Box
	for _, box := range b.available {
		if !used[box.ID] {
			pool = append(pool, box)
		}
	}
	take := func(boxes []Box) {
		for _, box := range boxes {
			used[box.ID] = true
			inputs = append(inputs, NewInput(box))
		}
		pool = nil
		for _, box := range b.available {
			if !used[box.ID] {
				pool = append(pool, box)
			}
		}
	}

	// Tokens first: token boxes also carry value that may cover the
	// native target.
	for {
		id, short, ok := firstTokenShortfall(inputs, spend)
		if !ok {
			break
		}
		sel, err := SelectTokens(pool, id, short)
		if err != nil {
			return nil, err
		}
		take(sel)
	}

	in, out, err := totals(inputs, spend)
	if err != nil {
		return nil, err
	}
	if in < out {
		sel, err := SelectCoins(pool, out-in)
		if err != nil {
			return nil, fmt.Errorf("fund outputs: %w", err)
		}
		take(sel.Inputs)
		if in, out, err = totals(inputs, spend); err != nil {
			return nil, err
		}
	}

	// A change box must itself meet the minimum value.
	change := in - out
	left := leftoverTokens(inputs, spend)
	if (change > 0 || len(left) > 0) && change < b.minBox {
		sel, err := SelectCoins(pool, b.minBox-change)
		if err != nil {
			return nil, fmt.Errorf("fund change: %w", err)
		}
		take(sel.Inputs)
		if in, out, err = totals(inputs, spend); err != nil {
			return nil, err
		}
		change = in - out
		left = leftoverTokens(inputs, spend)
	}

	if change > 0 || len(left) > 0 {
		if len(b.change) == 0 {
			return nil, ErrNoChangeScript
		}
		outputs = append(outputs, Output{Value: change, Script: b.change, Tokens: left})
	}
	outputs = append(outputs, tail...)

	tx := &Transaction{Inputs: inputs, Outputs: outputs, Height: b.height}
	if err := tx.Validate(b.minBox); err != nil {
		return nil, err
	}
	return tx, nil
}

// insertOutputs places add at index of dst, or appends for AppendOutputs
// and out-of-range indexes.
func insertOutputs(dst, add []Output, index int) []Output {
	if index < 0 || index >= len(dst) {
		return append(dst, add...)
	}
	out := make([]Output, 0, len(dst)+len(add))
	out = append(out, dst[:index]...)
	out = append(out, add...)
	return append(out, dst[index:]...)
}

func totals(inputs []Input, outputs []Output) (in, out uint64, err error) {
	for _, i := range inputs {
		if in > math.MaxUint64-i.Value {
			return 0, 0, ErrOverflow
		}
		in += i.Value
	}
	for _, o := range outputs {
		if out > math.MaxUint64-o.Value {
			return 0, 0, ErrOverflow
		}
		out += o.Value
	}
	return in, out, nil
}

// tokenTally sums token amounts on each side in order of first appearance.
type tokenTally struct {
	have  map[types.TokenID]uint64
	want  map[types.TokenID]uint64
	order []types.TokenID
}

func tallyTokens(inputs []Input, outputs []Output) tokenTally {
	t := tokenTally{have: make(map[types.TokenID]uint64), want: make(map[types.TokenID]uint64)}
	seen := make(map[types.TokenID]bool)
	note := func(id types.TokenID) {
		if !seen[id] {
			seen[id] = true
			t.order = append(t.order, id)
		}
	}
	for _, in := range inputs {
		for _, tok := range in.Tokens {
			note(tok.ID)
			t.have[tok.ID] += tok.Amount
		}
	}
	for _, o := range outputs {
		for _, tok := range o.Tokens {
			note(tok.ID)
			t.want[tok.ID] += tok.Amount
		}
	}
	return t
}

func firstTokenShortfall(inputs []Input, outputs []Output) (types.TokenID, uint64, bool) {
	t := tallyTokens(inputs, outputs)
	for _, id := range t.order {
		if t.want[id] > t.have[id] {
			return id, t.want[id] - t.have[id], true
		}
	}
	return types.TokenID{}, 0, false
}

func leftoverTokens(inputs []Input, outputs []Output) []types.TokenAmount {
	t := tallyTokens(inputs, outputs)
	var left []types.TokenAmount
	for _, id := range t.order {
		if t.have[id] > t.want[id] {
			left = append(left, types.TokenAmount{ID: id, Amount: t.have[id] - t.want[id]})
		}
	}
	return left
}
