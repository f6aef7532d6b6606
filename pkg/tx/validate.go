package tx

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrDuplicateInput     = errors.New("duplicate input")
	ErrTooManyInputs      = errors.New("too many inputs")
	ErrTooManyOutputs     = errors.New("too many outputs")
	ErrBelowMinValue      = errors.New("output value below minimum box value")
	ErrEmptyScript        = errors.New("output script is empty")
	ErrScriptDataTooLarge = errors.New("script data too large")
	ErrZeroToken          = errors.New("token amount is zero")
	ErrDuplicateToken     = errors.New("duplicate token in output")
	ErrTooManyTokens      = errors.New("too many tokens in output")
	ErrRegisterGap        = errors.New("registers must be contiguous from R4")
	ErrBadRegister        = errors.New("register value is not hex")
	ErrBadExtension       = errors.New("context variable is not hex")
	ErrValueMismatch      = errors.New("input and output values differ")
	ErrTokenMinted        = errors.New("outputs carry more tokens than inputs")
	ErrOverflow           = errors.New("amount overflow")
	ErrMissingProof       = errors.New("input missing proof")
	ErrInvalidProof       = errors.New("invalid proof")
)

// Validate checks transaction structure and the value and token balance.
// Script conditions are left to the ledger.
func (tx *Transaction) Validate(minBox uint64) error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), config.MaxTxInputs)
	}
	if len(tx.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), config.MaxTxOutputs)
	}

	seen := make(map[types.Hash]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in.ID] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.ID] = true
		for k, v := range in.Extension {
			if _, err := hex.DecodeString(v); err != nil {
				return fmt.Errorf("input %d var %d: %w", i, k, ErrBadExtension)
			}
		}
	}

	for i, out := range tx.Outputs {
		if err := validateOutput(out, minBox); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}

	return tx.checkBalance()
}

func validateOutput(out Output, minBox uint64) error {
	if out.Value < minBox {
		return fmt.Errorf("%w: %d < %d", ErrBelowMinValue, out.Value, minBox)
	}
	if len(out.Script) == 0 {
		return ErrEmptyScript
	}
	if len(out.Script) > config.MaxScriptData {
		return fmt.Errorf("%w: %d bytes, max %d", ErrScriptDataTooLarge, len(out.Script), config.MaxScriptData)
	}
	if len(out.Tokens) > config.MaxTokens {
		return fmt.Errorf("%w: %d, max %d", ErrTooManyTokens, len(out.Tokens), config.MaxTokens)
	}
	ids := make(map[types.TokenID]bool, len(out.Tokens))
	for _, t := range out.Tokens {
		if t.Amount == 0 {
			return fmt.Errorf("token %s: %w", t.ID, ErrZeroToken)
		}
		if ids[t.ID] {
			return fmt.Errorf("token %s: %w", t.ID, ErrDuplicateToken)
		}
		ids[t.ID] = true
	}
	for i, id := range out.Registers.IDs() {
		if id != register.R4+register.ID(i) {
			return fmt.Errorf("%w: unexpected %s", ErrRegisterGap, id)
		}
		if _, err := hex.DecodeString(out.Registers[id]); err != nil {
			return fmt.Errorf("%s: %w", id, ErrBadRegister)
		}
	}
	return nil
}

// checkBalance requires equal native value on both sides and no token to
// appear in outputs beyond what inputs carry. Tokens may be burned.
func (tx *Transaction) checkBalance() error {
	in, err := tx.TotalInputValue()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	out, err := tx.TotalOutputValue()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	if in != out {
		return fmt.Errorf("%w: inputs %d, outputs %d", ErrValueMismatch, in, out)
	}

	have := make(map[types.TokenID]uint64)
	for _, inp := range tx.Inputs {
		for _, t := range inp.Tokens {
			if have[t.ID] > math.MaxUint64-t.Amount {
				return fmt.Errorf("token %s: %w", t.ID, ErrOverflow)
			}
			have[t.ID] += t.Amount
		}
	}
	spent := make(map[types.TokenID]uint64)
	for _, o := range tx.Outputs {
		for _, t := range o.Tokens {
			if spent[t.ID] > math.MaxUint64-t.Amount {
				return fmt.Errorf("token %s: %w", t.ID, ErrOverflow)
			}
			spent[t.ID] += t.Amount
			if spent[t.ID] > have[t.ID] {
				return fmt.Errorf("token %s: %w", t.ID, ErrTokenMinted)
			}
		}
	}
	return nil
}

// VerifySignatures checks the Schnorr proof of every input guarded by a
// pay-to-public-key script. Contract inputs are verified by the ledger.
func (tx *Transaction) VerifySignatures() error {
	hash := tx.Hash()
	for i, in := range tx.Inputs {
		pk, ok := p2pkKey(in.Script)
		if !ok {
			continue
		}
		if len(in.Proof) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingProof)
		}
		if !crypto.VerifySignature(hash[:], in.Proof, pk) {
			return fmt.Errorf("input %d: %w", i, ErrInvalidProof)
		}
	}
	return nil
}

var p2pkPrefix = []byte{0x00, 0x08, 0xcd}

func p2pkKey(script types.Script) (types.PublicKey, bool) {
	if len(script) != len(p2pkPrefix)+types.PublicKeySize || !bytes.HasPrefix(script, p2pkPrefix) {
		return types.PublicKey{}, false
	}
	pk, err := types.PublicKeyFromBytes(script[len(p2pkPrefix):])
	return pk, err == nil
}
