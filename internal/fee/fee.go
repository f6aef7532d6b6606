// Package fee computes the protocol and UI fees charged when an order is
// funded.
package fee

import (
	"math/bits"

	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Fee fractions of the principal, over Denominator.
const (
	Denominator  = 100_000
	ProtocolRate = 500 // 0.5%
	UIRate       = 400 // 0.4%
)

// Protocol returns the protocol fee for principal p, truncated toward zero.
func Protocol(p uint64) uint64 {
	return mulDiv(p, ProtocolRate, Denominator)
}

// UI returns the UI implementor fee for principal p, truncated toward zero.
func UI(p uint64) uint64 {
	return mulDiv(p, UIRate, Denominator)
}

// mulDiv returns a*b/d with a 128-bit intermediate so large principals do
// not overflow. The result always fits since b < d.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// Payout is the content of one fee output.
type Payout struct {
	Value  uint64
	Tokens []types.TokenAmount
}

// Split returns the protocol and UI fee payouts for principal p in the
// given denomination.
//
// Native fees are paid as box value. Token fees ride in boxes holding
// minBox native value and carry the token only when the fee is non-zero,
// so a zero fee still yields an (empty) output.
func Split(p uint64, denom types.TokenID, minBox uint64) (protocol, ui Payout) {
	return payout(Protocol(p), denom, minBox), payout(UI(p), denom, minBox)
}

func payout(amount uint64, denom types.TokenID, minBox uint64) Payout {
	if denom.IsNative() {
		return Payout{Value: amount}
	}
	out := Payout{Value: minBox}
	if amount > 0 {
		out.Tokens = []types.TokenAmount{{ID: denom, Amount: amount}}
	}
	return out
}
