// Package tx defines the box, transition and transaction types exchanged
// with the ledger, and a builder that funds transitions from wallet boxes.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Transaction is an unsigned or signed ledger transaction.
type Transaction struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
	Height  uint32   `json:"height"` // creation height stamped on outputs
}

// inputJSON is the JSON representation of Input with a hex-encoded proof.
type inputJSON struct {
	Box
	Extension map[uint8]string `json:"extension,omitempty"`
	Proof     *string          `json:"proof,omitempty"`
}

// MarshalJSON encodes the input with a hex-encoded proof.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{Box: in.Box, Extension: in.Extension}
	if in.Proof != nil {
		p := hex.EncodeToString(in.Proof)
		j.Proof = &p
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an input with a hex-encoded proof.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.Box = j.Box
	in.Extension = j.Extension
	in.Proof = nil
	if j.Proof != nil {
		b, err := hex.DecodeString(*j.Proof)
		if err != nil {
			return err
		}
		in.Proof = b
	}
	return nil
}

// Hash computes the transaction ID (BLAKE3 hash of the serialized signing
// data). Proofs are excluded to avoid a circular dependency.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.SigningBytes())
}

// SigningBytes returns the canonical byte representation used for signing.
// Format: input_count(4) | [box_id(32) + extension]... | output_count(4) |
// [output]... | height(4). Multi-byte integers are little-endian.
func (tx *Transaction) SigningBytes() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, in.ID[:]...)
		keys := make([]int, 0, len(in.Extension))
		for k := range in.Extension {
			keys = append(keys, int(k))
		}
		sort.Ints(keys)
		buf = append(buf, byte(len(keys)))
		for _, k := range keys {
			buf = append(buf, byte(k))
			buf = appendBytes(buf, hexOrRaw(in.Extension[uint8(k)]))
		}
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = appendOutput(buf, out)
	}

	buf = binary.LittleEndian.AppendUint32(buf, tx.Height)
	return buf
}

func appendOutput(buf []byte, out Output) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, out.Value)
	buf = appendBytes(buf, out.Script)
	buf = append(buf, byte(len(out.Tokens)))
	for _, t := range out.Tokens {
		buf = append(buf, t.ID[:]...)
		buf = binary.LittleEndian.AppendUint64(buf, t.Amount)
	}
	ids := out.Registers.IDs()
	buf = append(buf, byte(len(ids)))
	for _, id := range ids {
		buf = append(buf, byte(id))
		buf = appendBytes(buf, hexOrRaw(out.Registers[id]))
	}
	return buf
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// hexOrRaw decodes serialized register hex. Malformed hex is hashed as-is;
// Validate rejects it before submission.
func hexOrRaw(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return []byte(s)
	}
	return b
}

// BoxID derives the id of output index of a transaction.
func BoxID(txID types.Hash, index uint16, out Output) types.Hash {
	buf := appendOutput(nil, out)
	buf = append(buf, txID[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, index)
	return crypto.Hash(buf)
}

// OutputBoxes returns the boxes the transaction creates, with derived ids,
// so follow-up transactions can spend them before they are indexed.
func (tx *Transaction) OutputBoxes() []Box {
	txID := tx.Hash()
	boxes := make([]Box, len(tx.Outputs))
	for i, out := range tx.Outputs {
		boxes[i] = Box{
			ID:             BoxID(txID, uint16(i), out),
			TxID:           txID,
			Index:          uint16(i),
			Value:          out.Value,
			Script:         out.Script,
			CreationHeight: tx.Height,
			Tokens:         types.CloneTokens(out.Tokens),
			Registers:      out.Registers.Clone(),
		}
	}
	return boxes
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows uint64.
func (tx *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}

// TotalInputValue returns the sum of all input values.
func (tx *Transaction) TotalInputValue() (uint64, error) {
	var total uint64
	for _, in := range tx.Inputs {
		if total > math.MaxUint64-in.Value {
			return 0, fmt.Errorf("input value overflow")
		}
		total += in.Value
	}
	return total, nil
}
