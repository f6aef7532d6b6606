package tx

import (
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Box is an unspent output as reported by the indexer.
type Box struct {
	ID             types.Hash          `json:"boxId"`
	TxID           types.Hash          `json:"transactionId"`
	Index          uint16              `json:"index"`
	Value          uint64              `json:"value"`
	Script         types.Script        `json:"script"`
	CreationHeight uint32              `json:"creationHeight"`
	Tokens         []types.TokenAmount `json:"tokens,omitempty"`
	Registers      register.Registers  `json:"registers,omitempty"`
}

// TokenAmount returns how much of token id the box holds.
func (b *Box) TokenAmount(id types.TokenID) uint64 {
	var total uint64
	for _, t := range b.Tokens {
		if t.ID == id {
			total += t.Amount
		}
	}
	return total
}

// Output is a box to be created by a transaction.
type Output struct {
	Value     uint64              `json:"value"`
	Script    types.Script        `json:"script"`
	Tokens    []types.TokenAmount `json:"tokens,omitempty"`
	Registers register.Registers  `json:"registers,omitempty"`
}

// Input is a box being spent, with the context variables its script reads
// and, once signed, the spending proof.
type Input struct {
	Box
	Extension map[uint8]string `json:"extension,omitempty"`
	Proof     []byte           `json:"-"`
}

// NewInput wraps a box as an input without context variables.
func NewInput(b Box) Input {
	return Input{Box: b}
}

// AppendOutputs places a transition's outputs after any existing ones.
const AppendOutputs = -1

// Transition is the set of boxes a lifecycle step consumes and the ordered
// outputs it produces. OutputIndex is where the outputs are inserted in the
// final transaction (AppendOutputs to append).
type Transition struct {
	Inputs      []Input  `json:"inputs"`
	Outputs     []Output `json:"outputs"`
	OutputIndex int      `json:"outputIndex"`
}
