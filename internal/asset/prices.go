package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/shopspring/decimal"
)

// PriceFeed fetches pool summaries and the native coin's fiat price.
type PriceFeed struct {
	poolsURL string
	fiatURL  string
	http     *http.Client
}

// NewPriceFeed creates a feed over the given endpoints.
func NewPriceFeed(poolsURL, fiatURL string, timeout time.Duration) *PriceFeed {
	return &PriceFeed{
		poolsURL: poolsURL,
		fiatURL:  fiatURL,
		http:     &http.Client{Timeout: timeout},
	}
}

// Pools returns the AMM pool summaries.
func (f *PriceFeed) Pools(ctx context.Context) ([]Pool, error) {
	var pools []Pool
	if err := f.get(ctx, f.poolsURL, &pools); err != nil {
		return nil, fmt.Errorf("pools: %w", err)
	}
	return pools, nil
}

// NativeFiat returns the fiat price of one native coin. The endpoint
// answers {"<coin>": {"<currency>": price}}; the first price is used.
func (f *PriceFeed) NativeFiat(ctx context.Context) (decimal.Decimal, error) {
	var resp map[string]map[string]decimal.Decimal
	if err := f.get(ctx, f.fiatURL, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("native price: %w", err)
	}
	for _, prices := range resp {
		for _, p := range prices {
			return p, nil
		}
	}
	return decimal.Zero, fmt.Errorf("native price: empty response")
}

// Rates fetches pools and the native price and derives the rate table.
func (f *PriceFeed) Rates(ctx context.Context) (Rates, error) {
	fiat, err := f.NativeFiat(ctx)
	if err != nil {
		return nil, err
	}
	pools, err := f.Pools(ctx)
	if err != nil {
		return nil, err
	}
	rates := RatesFromPools(pools, fiat)
	log.Asset.Debug().Int("pools", len(pools)).Int("rates", len(rates)).Msg("loaded price rates")
	return rates, nil
}

func (f *PriceFeed) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
