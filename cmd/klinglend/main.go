// klinglend is a command-line client for peer-to-peer collateralized loans.
// It lists orders and bonds from a box indexer and builds, signs and
// submits the lifecycle transactions of a loan.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/indexer"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/internal/storage"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

const version = "0.1.0"

// app holds what every command shares.
type app struct {
	cfg      *config.Config
	src      *indexer.Client
	db       storage.DB
	assets   *asset.Store
	resolver *indexer.MetadataResolver
	scanner  *indexer.Scanner
}

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}
	if flags.Version {
		fmt.Printf("klinglend %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		return
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("%v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flags.Args[0], flags.Args[1:]
	switch cmd {
	case "wallet":
		cmdWallet(cfg, args)
		return
	case "help":
		usage()
		return
	}

	a, err := newApp(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer a.close()

	switch cmd {
	case "orders":
		a.cmdOrders(ctx, args)
	case "bonds":
		a.cmdBonds(ctx, args)
	case "open":
		a.cmdOpen(ctx, args)
	case "cancel":
		a.cmdCancel(ctx, args)
	case "close":
		a.cmdClose(ctx, args)
	case "repay":
		a.cmdRepay(ctx, args)
	case "liquidate":
		a.cmdLiquidate(ctx, args)
	case "tvl":
		a.cmdTVL(ctx)
	case "rates":
		a.cmdRates(ctx)
	case "serve":
		a.cmdServe(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := storage.NewBadger(cfg.CacheDir())
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	src := indexer.NewClient(cfg.Indexer.URL, cfg.Indexer.Timeout, cfg.Indexer.RateLimit)
	store := asset.NewStore(storage.NewPrefixDB(db, []byte("asset/")))
	resolver := indexer.NewMetadataResolver(src, store)
	return &app{
		cfg:      cfg,
		src:      src,
		db:       db,
		assets:   store,
		resolver: resolver,
		scanner:  indexer.NewScanner(src, resolver),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		log.CLI.Warn().Err(err).Msg("close cache")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klinglend [global flags] <command> [flags]

Global flags:
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network=testnet
  --datadir <path>    Data directory (default: ~/.klinglend)
  --config <file>     Config file (default: <datadir>/klinglend.conf)
  --indexer <url>     Indexer RPC endpoint
  --wallet <name>     Wallet to use (default: "default")
  --log-level <lvl>   trace, debug, info, warn, error
  --log-file <path>   Also write JSON logs to a rotated file
  --log-json          JSON console logs

Commands:
  wallet create                   Create a wallet from a new mnemonic
  wallet import --mnemonic "..."  Import a wallet from a mnemonic
  wallet list                     List wallets
  wallet address                  List wallet addresses
  wallet new-address              Derive the next address

  orders [--mine] [--json]        List open loan requests
  bonds [--mine] [--json]         List funded loans
  open --principal <amt> --repayment <amt> --term <blocks>
       [--denom <token>] [--collateral <amt>] [--token <id:amt>]...
       [--type on-close|fixed-height]
                                  Request a loan against collateral
  cancel <order id>               Withdraw an open request
  close <order id>                Fund a request as lender
  repay <bond id>                 Repay a loan
  liquidate <bond id>             Claim the collateral of a matured loan
  tvl                             Show the fiat value locked in loans
  rates                           Refresh and show price rates
  serve [--addr host:port]        Serve the read-only loan JSON-RPC API

Transaction commands accept --dry-run to build and sign without submitting.
`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
