// Package contract builds and recognizes the order and bond scripts that
// guard loan boxes.
//
// Native-denominated loans use fixed compiled scripts. Token-denominated
// loans instantiate templates: the bond script is built first, hashed, and
// the hash is filled into the order script so the order can only be closed
// into that exact bond.
package contract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Contract errors.
var (
	ErrUnknownLoanType = errors.New("unknown loan type")
	ErrNotP2PK         = errors.New("script is not pay-to-public-key")
)

// LoanType selects how maturity is measured for an order.
type LoanType string

// Loan types.
const (
	// OnClose starts the term when the order is funded.
	OnClose LoanType = "on-close"
	// FixedHeight matures at a fixed ledger height.
	FixedHeight LoanType = "fixed-height"
)

// ParseLoanType parses "on-close" or "fixed-height".
func ParseLoanType(s string) (LoanType, error) {
	switch LoanType(s) {
	case OnClose, FixedHeight:
		return LoanType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLoanType, s)
}

// Kind is the role of a script in the loan protocol.
type Kind int

// Script kinds.
const (
	Unknown Kind = iota
	Order
	Bond
)

func (k Kind) String() string {
	switch k {
	case Order:
		return "order"
	case Bond:
		return "bond"
	default:
		return "unknown"
	}
}

// BondScript returns the bond contract for a denomination.
func BondScript(id types.TokenID) types.Script {
	if id.IsNative() {
		return clone(nativeBond)
	}
	return bondTemplate.Instantiate(id[:])
}

// OrderScript returns the order contract for a denomination and loan type.
//
// Token-denominated orders always use the on-close template; typ is only
// validated for them.
func OrderScript(id types.TokenID, typ LoanType) (types.Script, error) {
	if _, err := ParseLoanType(string(typ)); err != nil {
		return nil, err
	}
	if id.IsNative() {
		if typ == FixedHeight {
			return clone(nativeOrderFixedHeight), nil
		}
		return clone(nativeOrderOnClose), nil
	}

	bond := BondScript(id)
	bondHash := crypto.Hash(bond)
	return orderTemplate.Instantiate(id[:], bondHash[:]), nil
}

// TokenIDFromOrderScript recovers the denomination of an order script.
// Scripts that match no template are reported as native.
func TokenIDFromOrderScript(script types.Script) types.TokenID {
	if id, ok := orderTemplate.TokenID(script); ok {
		return id
	}
	logFallback(script, Order)
	return types.NativeToken
}

// TokenIDFromBondScript recovers the denomination of a bond script.
// Scripts that match no template are reported as native.
func TokenIDFromBondScript(script types.Script) types.TokenID {
	if id, ok := bondTemplate.TokenID(script); ok {
		return id
	}
	logFallback(script, Bond)
	return types.NativeToken
}

// Classify reports whether script is a known order or bond contract, and
// its denomination. A token template match also requires the rest of the
// script to equal a fresh instantiation for that id.
func Classify(script types.Script) (Kind, types.TokenID) {
	switch {
	case bytes.Equal(script, nativeOrderOnClose), bytes.Equal(script, nativeOrderFixedHeight):
		return Order, types.NativeToken
	case bytes.Equal(script, nativeBond):
		return Bond, types.NativeToken
	}

	if id, ok := orderTemplate.TokenID(script); ok {
		if want, _ := OrderScript(id, OnClose); script.Equal(want) {
			return Order, id
		}
	}
	if id, ok := bondTemplate.TokenID(script); ok {
		if script.Equal(BondScript(id)) {
			return Bond, id
		}
	}
	return Unknown, types.NativeToken
}

// P2PK returns the pay-to-public-key script for pk.
func P2PK(pk types.PublicKey) types.Script {
	s := make([]byte, 0, 3+types.PublicKeySize)
	s = append(s, p2pkPrefix...)
	s = append(s, pk[:]...)
	return s
}

// PublicKeyFromP2PK extracts the key from a pay-to-public-key script.
func PublicKeyFromP2PK(script types.Script) (types.PublicKey, error) {
	if len(script) != len(p2pkPrefix)+types.PublicKeySize || !bytes.HasPrefix(script, p2pkPrefix) {
		return types.PublicKey{}, ErrNotP2PK
	}
	return crypto.ParsePublicKey(script[len(p2pkPrefix):])
}

var p2pkPrefix = []byte{0x00, 0x08, 0xcd}

func logFallback(script types.Script, want Kind) {
	ev := log.Contract.Debug()
	if !ev.Enabled() {
		return
	}
	n := len(script)
	if n > 8 {
		n = 8
	}
	ev.Str("kind", want.String()).
		Hex("prefix", script[:n]).
		Msg("script matches no token template, assuming native denomination")
}

func clone(b []byte) types.Script {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
