package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

func balancedTx() *Transaction {
	tok := types.TokenAmount{ID: types.TokenID{9}, Amount: 10}
	return &Transaction{
		Inputs: []Input{
			NewInput(testBox(1, 3_000_000, feeScript, tok)),
			NewInput(testBox(2, 2_000_000, feeScript)),
		},
		Outputs: []Output{
			{Value: 4_000_000, Script: feeScript, Tokens: []types.TokenAmount{tok}},
			{Value: 1_000_000, Script: feeScript},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := balancedTx().Validate(testMinBox); err != nil {
		t.Errorf("valid tx should pass: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"no inputs", func(tx *Transaction) { tx.Inputs = nil }, ErrNoInputs},
		{"no outputs", func(tx *Transaction) { tx.Outputs = nil }, ErrNoOutputs},
		{"duplicate input", func(tx *Transaction) { tx.Inputs[1].ID = tx.Inputs[0].ID }, ErrDuplicateInput},
		{"bad extension", func(tx *Transaction) { tx.Inputs[0].Extension = map[uint8]string{0: "zz"} }, ErrBadExtension},
		{"below min", func(tx *Transaction) {
			tx.Outputs[1].Value = 999_999
			tx.Outputs[0].Value++
		}, ErrBelowMinValue},
		{"empty script", func(tx *Transaction) { tx.Outputs[1].Script = nil }, ErrEmptyScript},
		{"zero token", func(tx *Transaction) {
			tx.Outputs[1].Tokens = []types.TokenAmount{{ID: types.TokenID{9}, Amount: 0}}
		}, ErrZeroToken},
		{"duplicate token", func(tx *Transaction) {
			tx.Outputs[0].Tokens = []types.TokenAmount{{ID: types.TokenID{9}, Amount: 5}, {ID: types.TokenID{9}, Amount: 5}}
		}, ErrDuplicateToken},
		{"register gap", func(tx *Transaction) {
			tx.Outputs[0].Registers = register.Registers{register.R4: "0400", register.R6: "0400"}
		}, ErrRegisterGap},
		{"register not from R4", func(tx *Transaction) {
			tx.Outputs[0].Registers = register.Registers{register.R5: "0400"}
		}, ErrRegisterGap},
		{"register hex", func(tx *Transaction) {
			tx.Outputs[0].Registers = register.Registers{register.R4: "xyz"}
		}, ErrBadRegister},
		{"value mismatch", func(tx *Transaction) { tx.Outputs[0].Value++ }, ErrValueMismatch},
		{"token minted", func(tx *Transaction) { tx.Outputs[0].Tokens[0].Amount = 11 }, ErrTokenMinted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := balancedTx()
			tt.mutate(tx)
			if err := tx.Validate(testMinBox); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidate_TokenBurnAllowed(t *testing.T) {
	tx := balancedTx()
	tx.Outputs[0].Tokens = nil
	if err := tx.Validate(testMinBox); err != nil {
		t.Errorf("burning tokens should be allowed: %v", err)
	}
}

func TestVerifySignatures(t *testing.T) {
	key := testKey(t)
	tx := &Transaction{
		Inputs:  []Input{NewInput(testBox(1, 2_000_000, p2pk(key.PublicKey())))},
		Outputs: []Output{{Value: 2_000_000, Script: feeScript}},
	}

	if err := tx.VerifySignatures(); !errors.Is(err, ErrMissingProof) {
		t.Errorf("unsigned: %v, want ErrMissingProof", err)
	}

	hash := tx.Hash()
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatal(err)
	}
	tx.Inputs[0].Proof = sig
	if err := tx.VerifySignatures(); err != nil {
		t.Errorf("signed: %v", err)
	}

	tx.Outputs[0].Value--
	if err := tx.VerifySignatures(); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("tampered: %v, want ErrInvalidProof", err)
	}
}

func TestVerifySignatures_SkipsContracts(t *testing.T) {
	tx := &Transaction{
		Inputs:  []Input{NewInput(testBox(1, 2_000_000, feeScript))},
		Outputs: []Output{{Value: 2_000_000, Script: feeScript}},
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Errorf("contract inputs are not verified locally: %v", err)
	}
}
