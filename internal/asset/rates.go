package asset

import (
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

// Volume is a traded volume reported by a pool summary.
type Volume struct {
	Value float64 `json:"value"`
}

// Pool is an AMM pool summary as served by the price feed.
type Pool struct {
	ID          string  `json:"id"`
	BaseID      string  `json:"baseId"`
	BaseSymbol  string  `json:"baseSymbol"`
	QuoteID     string  `json:"quoteId"`
	QuoteSymbol string  `json:"quoteSymbol"`
	LastPrice   float64 `json:"lastPrice"`
	BaseVolume  Volume  `json:"baseVolume"`
	QuoteVolume Volume  `json:"quoteVolume"`
}

// Rate is the price of one whole token unit.
type Rate struct {
	Native decimal.Decimal `json:"native"`
	Fiat   decimal.Decimal `json:"fiat"`
}

// Rates maps token ids to their price rates.
type Rates map[types.TokenID]Rate

// Has reports whether a rate is known for id.
func (r Rates) Has(id types.TokenID) bool {
	_, ok := r[id]
	return ok
}

// Fiat returns the fiat price of id, or zero when unknown.
func (r Rates) Fiat(id types.TokenID) decimal.Decimal {
	return r[id].Fiat
}

// NativePrice returns the native-coin price of id, or zero when unknown.
func (r Rates) NativePrice(id types.TokenID) decimal.Decimal {
	return r[id].Native
}

// RatesFromPools derives rates from pools quoted against the native coin.
// For each quote token the pool with the highest base volume wins. A pool's
// last price is quote units per native coin, so the token's native rate is
// its inverse.
func RatesFromPools(pools []Pool, nativeFiat decimal.Decimal) Rates {
	best := make(map[types.TokenID]Pool)
	for _, p := range pools {
		base, err := types.HexToTokenID(p.BaseID)
		if err != nil || !base.IsNative() || p.LastPrice <= 0 {
			continue
		}
		quote, err := types.HexToTokenID(p.QuoteID)
		if err != nil || quote.IsNative() {
			continue
		}
		if cur, ok := best[quote]; ok && p.BaseVolume.Value < cur.BaseVolume.Value {
			continue
		}
		best[quote] = p
	}

	rates := make(Rates, len(best)+1)
	for id, p := range best {
		native := decimal.NewFromInt(1).Div(decimal.NewFromFloat(p.LastPrice))
		rates[id] = Rate{Native: native, Fiat: native.Mul(nativeFiat)}
	}
	rates[types.NativeToken] = Rate{Native: decimal.NewFromInt(1), Fiat: nativeFiat}
	return rates
}
