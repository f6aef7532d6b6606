// klinglend-cli is a command-line client for the loan API served by
// "klinglend serve".
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-lend/internal/rpc"
	"github.com/Klingon-tech/klingnet-lend/internal/rpcclient"
	"github.com/shopspring/decimal"
)

const defaultRPC = "http://127.0.0.1:9060"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := defaultRPC
	timeout := 2 * time.Minute

	// Scan for --rpc and --timeout before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--timeout" && len(args) > 1:
			timeout = mustDuration(args[1])
			args = args[2:]
		case strings.HasPrefix(args[0], "--timeout="):
			timeout = mustDuration(args[0][len("--timeout="):])
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL, rpcclient.WithTimeout(timeout))
	ctx := context.Background()
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(ctx, client)
	case "scripts":
		cmdScripts(ctx, client)
	case "orders":
		cmdOrders(ctx, client, cmdArgs)
	case "bonds":
		cmdBonds(ctx, client, cmdArgs)
	case "tvl":
		cmdTVL(ctx, client)
	case "rates":
		cmdRates(ctx, client)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klinglend-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         Loan API endpoint (default: %s)
  --timeout <dur>     Per-call timeout (default: 2m)

Commands:
  status                          Show the ledger height
  scripts                         Show the order and bond contract scripts
  orders [--borrower <pubkey>] [--owned] [--json]
                                  List open loan requests
  bonds [--borrower <pubkey>] [--lender <pubkey>] [--owned] [--json]
                                  List funded loans
  tvl                             Show the fiat value locked in loans
  rates                           Show price rates
`, defaultRPC)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(ctx context.Context, client *rpcclient.Client) {
	var h rpc.HeightResult
	if err := client.Call(ctx, "lend_height", nil, &h); err != nil {
		fatal("lend_height: %v", err)
	}
	fmt.Printf("Height:  %d\n", h.Height)
}

func cmdScripts(ctx context.Context, client *rpcclient.Client) {
	var s rpc.ScriptsResult
	if err := client.Call(ctx, "lend_scripts", nil, &s); err != nil {
		fatal("lend_scripts: %v", err)
	}
	fmt.Println("Order scripts:")
	for _, script := range s.Orders {
		fmt.Printf("  %s\n", script)
	}
	fmt.Println("Bond scripts:")
	for _, script := range s.Bonds {
		fmt.Printf("  %s\n", script)
	}
}

// ── loans ───────────────────────────────────────────────────────────────

// loanAsset is the subset of a rendered asset the CLI prints.
type loanAsset struct {
	TokenID  string          `json:"tokenId"`
	Amount   decimal.Decimal `json:"amount"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
}

func (a loanAsset) String() string {
	name := a.Metadata.Name
	if name == "" {
		name = a.TokenID
		if len(name) > 12 {
			name = name[:12] + "…"
		}
	}
	return a.Amount.String() + " " + name
}

type loanSummary struct {
	Box struct {
		ID string `json:"boxId"`
	} `json:"box"`
	Term struct {
		Blocks int64 `json:"blocks"`
	} `json:"term"`
	Principal  loanAsset        `json:"principal"`
	Collateral []loanAsset      `json:"collateral"`
	Ratio      *decimal.Decimal `json:"ratio"`
	Borrower   string           `json:"borrower"`

	// Bond fields.
	Lender     string `json:"lender"`
	Side       string `json:"side"`
	BlocksLeft int64  `json:"blocksLeft"`
	Liquidable bool   `json:"liquidable"`
}

func loanFlags(name string, args []string, bonds bool) (rpc.LoanFilterParam, bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	borrower := fs.String("borrower", "", "Borrower public key (hex)")
	var lender *string
	if bonds {
		lender = fs.String("lender", "", "Lender public key (hex)")
	}
	owned := fs.Bool("owned", false, "Only loans of the server's wallet")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Parse(args)

	p := rpc.LoanFilterParam{Borrower: *borrower, Owned: *owned}
	if lender != nil {
		p.Lender = *lender
	}
	return p, *asJSON
}

func cmdOrders(ctx context.Context, client *rpcclient.Client, args []string) {
	p, asJSON := loanFlags("orders", args, false)
	var raw json.RawMessage
	if err := client.Call(ctx, "lend_orders", p, &raw); err != nil {
		fatal("lend_orders: %v", err)
	}
	if asJSON {
		printRaw(raw)
		return
	}
	loans := decodeLoans(raw)
	if len(loans) == 0 {
		fmt.Println("No open orders.")
		return
	}
	for _, l := range loans {
		printLoan(l)
		fmt.Println()
	}
}

func cmdBonds(ctx context.Context, client *rpcclient.Client, args []string) {
	p, asJSON := loanFlags("bonds", args, true)
	var raw json.RawMessage
	if err := client.Call(ctx, "lend_bonds", p, &raw); err != nil {
		fatal("lend_bonds: %v", err)
	}
	if asJSON {
		printRaw(raw)
		return
	}
	loans := decodeLoans(raw)
	if len(loans) == 0 {
		fmt.Println("No active bonds.")
		return
	}
	for _, l := range loans {
		printLoan(l)
		fmt.Printf("  Lender:     %s\n", l.Lender)
		fmt.Printf("  Side:       %s\n", l.Side)
		if l.Liquidable {
			fmt.Printf("  Liquidable (%d blocks past maturity)\n", -l.BlocksLeft)
		} else {
			fmt.Printf("  Blocks left: %d\n", l.BlocksLeft)
		}
		fmt.Println()
	}
}

func decodeLoans(raw json.RawMessage) []loanSummary {
	var loans []loanSummary
	if err := json.Unmarshal(raw, &loans); err != nil {
		fatal("decode loans: %v", err)
	}
	return loans
}

func printLoan(l loanSummary) {
	fmt.Printf("%s\n", l.Box.ID)
	fmt.Printf("  Borrower:   %s\n", l.Borrower)
	fmt.Printf("  Principal:  %s\n", l.Principal)
	for _, c := range l.Collateral {
		fmt.Printf("  Collateral: %s\n", c)
	}
	if l.Ratio != nil {
		fmt.Printf("  Ratio:      %s%%\n", l.Ratio.StringFixed(2))
	}
	fmt.Printf("  Term:       %d blocks\n", l.Term.Blocks)
}

// ── value ───────────────────────────────────────────────────────────────

func cmdTVL(ctx context.Context, client *rpcclient.Client) {
	var r rpc.TVLResult
	if err := client.Call(ctx, "lend_tvl", nil, &r); err != nil {
		fatal("lend_tvl: %v", err)
	}
	fmt.Printf("TVL: $%s\n", r.TVL.StringFixed(2))
	if !r.Complete {
		fmt.Println("(some locked assets have no rate and are not counted)")
	}
}

func cmdRates(ctx context.Context, client *rpcclient.Client) {
	var r rpc.RatesResult
	if err := client.Call(ctx, "lend_rates", nil, &r); err != nil {
		fatal("lend_rates: %v", err)
	}
	if len(r.Rates) == 0 {
		fmt.Println("No rates known.")
		return
	}
	for id, rate := range r.Rates {
		fmt.Printf("%s  native %s  fiat $%s\n", id, rate.Native, rate.Fiat.StringFixed(4))
	}
}

// ── helpers ─────────────────────────────────────────────────────────────

func printRaw(raw json.RawMessage) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fatal("decode: %v", err)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		fatal("invalid --timeout %q: %v", s, err)
	}
	return d
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
