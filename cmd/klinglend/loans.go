package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/factory"
	"github.com/Klingon-tech/klingnet-lend/internal/indexer"
	"github.com/Klingon-tech/klingnet-lend/internal/loan"
	"github.com/Klingon-tech/klingnet-lend/internal/loanview"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// ── listing ─────────────────────────────────────────────────────────────

func (a *app) cmdOrders(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	mine := fs.Bool("mine", false, "Only orders opened by this wallet")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Parse(args)

	vc := a.viewContext(ctx)
	orders, err := a.scanner.Orders(ctx, indexer.Filter{}, vc)
	if err != nil {
		fatal("%v", err)
	}
	if *mine {
		orders = slices.DeleteFunc(orders, func(o *loanview.Order) bool {
			return !slices.Contains(vc.Owned, o.Borrower)
		})
	}
	if *asJSON {
		printJSON(orders)
		return
	}
	if len(orders) == 0 {
		fmt.Println("No open orders.")
		return
	}
	for _, o := range orders {
		fmt.Printf("%s\n", o.Box.ID)
		printLoan(&o.Loan)
		if o.Interest != nil {
			fmt.Printf("  Interest:   %s %s (%s%%, APR %s%%)\n", o.Interest.Amount, name(o.Interest.Asset), o.Interest.Percent, o.Interest.APR)
		}
		if o.Cancellable {
			fmt.Println("  Cancellable")
		}
		fmt.Println()
	}
}

func (a *app) cmdBonds(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("bonds", flag.ExitOnError)
	mine := fs.Bool("mine", false, "Only bonds this wallet lent or borrowed")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Parse(args)

	height, err := a.src.Height(ctx)
	if err != nil {
		fatal("%v", err)
	}
	vc := a.viewContext(ctx)
	bonds, err := a.scanner.Bonds(ctx, indexer.Filter{}, vc, height)
	if err != nil {
		fatal("%v", err)
	}
	if *mine {
		bonds = slices.DeleteFunc(bonds, func(b *loanview.Bond) bool {
			return !slices.Contains(vc.Owned, b.Borrower) && !slices.Contains(vc.Owned, b.Lender)
		})
	}
	if *asJSON {
		printJSON(bonds)
		return
	}
	if len(bonds) == 0 {
		fmt.Println("No bonds.")
		return
	}
	for _, b := range bonds {
		fmt.Printf("%s\n", b.Box.ID)
		printLoan(&b.Loan)
		fmt.Printf("  Lender:     %s\n", b.Lender)
		fmt.Printf("  Blocks left: %d\n", b.BlocksLeft)
		switch {
		case b.Liquidable:
			fmt.Println("  Liquidable")
		case b.Repayable:
			fmt.Println("  Repayable")
		}
		fmt.Println()
	}
}

func (a *app) cmdTVL(ctx context.Context) {
	meta := a.metadata()
	total, ok, err := a.scanner.TVL(ctx, meta, a.rates(ctx))
	if err != nil {
		fatal("%v", err)
	}
	if !ok {
		fatal("no fiat rate for the native coin")
	}
	fmt.Printf("TVL: %s\n", total.StringFixed(2))
}

func (a *app) cmdRates(ctx context.Context) {
	rates := a.rates(ctx)
	meta := a.metadata()
	for id, r := range rates {
		n := id.String()
		if m, ok := meta.Get(id); ok && m.Name != "" {
			n = m.Name
		}
		fmt.Printf("%-16s native %s  fiat %s\n", n, r.Native, r.Fiat)
	}
}

func printLoan(l *loanview.Loan) {
	fmt.Printf("  Principal:  %s %s\n", l.Principal.Amount, name(l.Principal))
	for _, c := range l.Collateral {
		fmt.Printf("  Collateral: %s %s\n", c.Amount, name(c))
	}
	if l.Ratio != nil {
		fmt.Printf("  Ratio:      %s%%\n", l.Ratio.StringFixed(0))
	}
	fmt.Printf("  Term:       %s\n", l.Term)
	fmt.Printf("  Borrower:   %s\n", l.Borrower)
}

func name(a loanview.Asset) string {
	if a.Known && a.Metadata.Name != "" {
		return a.Metadata.Name
	}
	return a.ID.String()
}

// ── lifecycle ───────────────────────────────────────────────────────────

// tokenFlags collects repeated --token id:amount values.
type tokenFlags []string

func (t *tokenFlags) String() string     { return strings.Join(*t, ",") }
func (t *tokenFlags) Set(v string) error { *t = append(*t, v); return nil }

func (a *app) cmdOpen(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	denom := fs.String("denom", "native", "Loan denomination: native or a token id")
	principal := fs.String("principal", "", "Amount to borrow")
	repayment := fs.String("repayment", "", "Amount to repay")
	term := fs.Int("term", 0, "Loan term in blocks")
	collateral := fs.String("collateral", "0", "Native collateral")
	loanType := fs.String("type", string(contract.OnClose), "on-close or fixed-height")
	dryRun := fs.Bool("dry-run", false, "Build and sign without submitting")
	var tokens tokenFlags
	fs.Var(&tokens, "token", "Token collateral as <id>:<amount> (repeatable)")
	fs.Parse(args)

	if *principal == "" || *repayment == "" || *term <= 0 {
		fatal("Usage: klinglend open --principal <amt> --repayment <amt> --term <blocks> [--collateral <amt>] [--token <id:amt>]...")
	}
	typ, err := contract.ParseLoanType(*loanType)
	if err != nil {
		fatal("%v", err)
	}
	denomID := types.NativeToken
	if *denom != "native" {
		if denomID, err = types.HexToTokenID(*denom); err != nil {
			fatal("--denom: %v", err)
		}
	}

	meta := a.metadata()
	ids := []types.TokenID{denomID}
	collTokens := make([]types.TokenAmount, 0, len(tokens))
	raw := make([]string, 0, len(tokens))
	for _, t := range tokens {
		idHex, amount, ok := strings.Cut(t, ":")
		if !ok {
			fatal("--token %q: want <id>:<amount>", t)
		}
		id, err := types.HexToTokenID(idHex)
		if err != nil {
			fatal("--token %q: %v", t, err)
		}
		ids = append(ids, id)
		collTokens = append(collTokens, types.TokenAmount{ID: id})
		raw = append(raw, amount)
	}
	if err := a.resolver.Resolve(ctx, meta, ids); err != nil {
		fatal("%v", err)
	}
	for i := range collTokens {
		if collTokens[i].Amount, err = parseAmount(raw[i], meta.Decimals(collTokens[i].ID)); err != nil {
			fatal("--token %s: %v", tokens[i], err)
		}
	}

	p := loan.OpenParams{
		Type:         typ,
		Denomination: denomID,
		Term:         int32(*term),
		Collateral:   loan.Collateral{Tokens: collTokens},
		MinBoxValue:  a.cfg.Box.MinValue,
	}
	if p.Principal, err = parseAmount(*principal, meta.Decimals(denomID)); err != nil {
		fatal("--principal: %v", err)
	}
	if p.Repayment, err = parseAmount(*repayment, meta.Decimals(denomID)); err != nil {
		fatal("--repayment: %v", err)
	}
	if p.Collateral.Value, err = parseAmount(*collateral, meta.Decimals(types.NativeToken)); err != nil {
		fatal("--collateral: %v", err)
	}

	w := unlock(a.cfg)
	defer w.Close()
	res, err := a.factory(w, *dryRun).Open(ctx, p)
	report(res, err)
}

func (a *app) cmdCancel(ctx context.Context, args []string) {
	id, dryRun := boxArgs("cancel", "order", args)
	order, err := a.scanner.FindOrder(ctx, id)
	if err != nil {
		fatal("%v", err)
	}
	w := unlock(a.cfg)
	defer w.Close()
	res, err := a.factory(w, dryRun).Cancel(ctx, order)
	report(res, err)
}

func (a *app) cmdClose(ctx context.Context, args []string) {
	id, dryRun := boxArgs("close", "order", args)
	order, err := a.scanner.FindOrder(ctx, id)
	if err != nil {
		fatal("%v", err)
	}
	w := unlock(a.cfg)
	defer w.Close()
	res, err := a.factory(w, dryRun).Close(ctx, order)
	report(res, err)
}

func (a *app) cmdRepay(ctx context.Context, args []string) {
	id, dryRun := boxArgs("repay", "bond", args)
	bond, err := a.scanner.FindBond(ctx, id)
	if err != nil {
		fatal("%v", err)
	}
	w := unlock(a.cfg)
	defer w.Close()
	res, err := a.factory(w, dryRun).Repay(ctx, bond)
	report(res, err)
}

func (a *app) cmdLiquidate(ctx context.Context, args []string) {
	id, dryRun := boxArgs("liquidate", "bond", args)
	bond, err := a.scanner.FindBond(ctx, id)
	if err != nil {
		fatal("%v", err)
	}
	height, err := a.src.Height(ctx)
	if err != nil {
		fatal("%v", err)
	}
	ok, err := matured(bond, height)
	if err != nil {
		fatal("%v", err)
	}
	if !ok {
		fatal("bond %s has not matured at height %d", id, height)
	}
	w := unlock(a.cfg)
	defer w.Close()
	res, err := a.factory(w, dryRun).Liquidate(ctx, bond)
	report(res, err)
}

// boxArgs parses "<box id> [--dry-run]".
func boxArgs(cmd, kind string, args []string) (types.Hash, bool) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Build and sign without submitting")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fatal("Usage: klinglend %s <%s id> [--dry-run]", cmd, kind)
	}
	id, err := types.HexToHash(fs.Arg(0))
	if err != nil {
		fatal("%s id: %v", kind, err)
	}
	return id, *dryRun
}

func (a *app) factory(signer factory.Signer, dryRun bool) *factory.Factory {
	devFee, err := a.cfg.DevFee()
	if err != nil {
		fatal("%v", err)
	}
	ui, err := a.cfg.UIImplementorKey()
	if err != nil {
		fatal("%v", err)
	}
	return factory.New(a.src, signer, factory.Params{
		MinerFee:      a.cfg.Fee.Miner,
		MinBoxValue:   a.cfg.Box.MinValue,
		DevFee:        devFee,
		UIImplementor: ui,
		DryRun:        dryRun,
	})
}

func report(res *factory.Result, err error) {
	if err != nil {
		fatal("%v", err)
	}
	if !res.Submitted {
		fmt.Printf("Built transaction %s (not submitted)\n", res.TxID)
		printJSON(res.Tx)
		return
	}
	fmt.Printf("Transaction submitted: %s\n", res.TxID)
}

// ── shared ──────────────────────────────────────────────────────────────

func (a *app) metadata() asset.MetadataSet {
	meta := asset.NewMetadataSet()
	cached, err := a.assets.Load()
	if err != nil {
		log.CLI.Warn().Err(err).Msg("load cached metadata")
		return meta
	}
	// Verified entries win over cached ones.
	cached.Merge(meta)
	return cached
}

// rates fetches fresh price rates, falling back to the last cached table.
func (a *app) rates(ctx context.Context) asset.Rates {
	feed := asset.NewPriceFeed(a.cfg.Prices.PoolsURL, a.cfg.Prices.FiatURL, a.cfg.Indexer.Timeout)
	rates, err := feed.Rates(ctx)
	if err == nil {
		if err := a.assets.PutRates(rates); err != nil {
			log.CLI.Warn().Err(err).Msg("cache rates")
		}
		return rates
	}
	log.CLI.Warn().Err(err).Msg("price feed unavailable, using cached rates")
	cached, err := a.assets.Rates()
	if err != nil {
		log.CLI.Warn().Err(err).Msg("load cached rates")
		return asset.Rates{}
	}
	return cached
}

func (a *app) viewContext(ctx context.Context) loanview.Context {
	return loanview.Context{
		Metadata:    a.metadata(),
		Rates:       a.rates(ctx),
		Owned:       ownedAddresses(a.cfg),
		MinBoxValue: a.cfg.Box.MinValue,
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode: %v", err)
	}
}
