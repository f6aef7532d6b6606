package tx

import (
	"testing"

	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

const testMinBox = 1_000_000

// p2pk builds a pay-to-public-key script without importing the contract
// package.
func p2pk(pk types.PublicKey) types.Script {
	return append(types.Script{0x00, 0x08, 0xcd}, pk[:]...)
}

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func testBox(id byte, value uint64, script types.Script, tokens ...types.TokenAmount) Box {
	return Box{
		ID:     types.Hash{id},
		TxID:   types.Hash{0xee, id},
		Value:  value,
		Script: script,
		Tokens: tokens,
	}
}

var feeScript = types.Script{0x10, 0x05, 0x04}
