package main

import (
	"context"
	"flag"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/loanview"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/internal/rpc"
)

// ratesRefresh is how often the server re-reads the price feed.
const ratesRefresh = 5 * time.Minute

// rateCache holds the last rates table the server fetched.
type rateCache struct {
	mu    sync.RWMutex
	rates asset.Rates
}

func (c *rateCache) get() asset.Rates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates
}

func (c *rateCache) set(r asset.Rates) {
	c.mu.Lock()
	c.rates = r
	c.mu.Unlock()
}

func (a *app) cmdServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", a.cfg.RPC.Addr, "Listen address")
	fs.Parse(args)

	cache := &rateCache{}
	cache.set(a.rates(ctx))
	go func() {
		ticker := time.NewTicker(ratesRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cache.set(a.rates(ctx))
			}
		}
	}()

	owned := ownedAddresses(a.cfg)
	view := func(context.Context) loanview.Context {
		return loanview.Context{
			Metadata:    a.metadata(),
			Rates:       cache.get(),
			Owned:       owned,
			MinBoxValue: a.cfg.Box.MinValue,
		}
	}

	srv := rpc.New(*addr, a.scanner, a.src, view, a.cfg.RPC)
	if err := srv.Start(); err != nil {
		fatal("%v", err)
	}
	log.CLI.Info().Str("addr", srv.Addr()).Msg("Serving loan API, press Ctrl+C to stop")

	<-ctx.Done()
	if err := srv.Stop(); err != nil {
		log.CLI.Warn().Err(err).Msg("stop rpc server")
	}
}
