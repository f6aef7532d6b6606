package asset

import (
	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

// Balance is the native value and tokens held under one contract.
type Balance struct {
	Value  uint64              `json:"value"`
	Tokens []types.TokenAmount `json:"tokens,omitempty"`
}

// TVL returns the fiat value locked across balances. Tokens are valued
// through their native rate; tokens without a rate count as zero. ok is
// false when the native coin has no fiat rate.
func TVL(balances []Balance, meta MetadataSet, rates Rates) (total decimal.Decimal, ok bool) {
	native, ok := rates[types.NativeToken]
	if !ok {
		return decimal.Zero, false
	}

	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(Decimalize(b.Value, config.Decimals))
		for _, t := range b.Tokens {
			amount := Decimalize(t.Amount, meta.Decimals(t.ID))
			sum = sum.Add(amount.Mul(rates.NativePrice(t.ID)))
		}
	}
	return sum.Mul(native.Fiat), true
}
