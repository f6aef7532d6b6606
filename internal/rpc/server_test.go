package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/indexer"
	klog "github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/internal/loanview"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

// fakeLoans is an in-memory loan book.
type fakeLoans struct {
	mu      sync.Mutex
	orders  []*loanview.Order
	bonds   []*loanview.Bond
	tvl     decimal.Decimal
	err     error
	filter  indexer.Filter
	height  uint32
	ratesIn asset.Rates
}

func (f *fakeLoans) OrderScripts() []types.Script {
	return []types.Script{{0x01, 0x02}, {0x03}}
}

func (f *fakeLoans) BondScripts() []types.Script {
	return []types.Script{{0xaa}}
}

func (f *fakeLoans) Orders(_ context.Context, flt indexer.Filter, _ loanview.Context) ([]*loanview.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = flt
	return f.orders, f.err
}

func (f *fakeLoans) Bonds(_ context.Context, flt indexer.Filter, _ loanview.Context, height uint32) ([]*loanview.Bond, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = flt
	f.height = height
	return f.bonds, f.err
}

func (f *fakeLoans) TVL(_ context.Context, _ asset.MetadataSet, rates asset.Rates) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratesIn = rates
	return f.tvl, true, f.err
}

// with runs fn while holding the fake's lock.
func (f *fakeLoans) with(fn func(f *fakeLoans)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type fakeChain struct {
	mu     sync.Mutex
	height uint32
	err    error
}

func (c *fakeChain) Height(context.Context) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, c.err
}

type testEnv struct {
	server *Server
	loans  *fakeLoans
	chain  *fakeChain
	url    string
}

func testRates() asset.Rates {
	return asset.Rates{
		types.NativeToken: {Native: decimal.NewFromInt(1), Fiat: decimal.NewFromInt(2)},
	}
}

func setupTestEnv(t *testing.T, rpcCfg ...config.RPCConfig) *testEnv {
	t.Helper()
	klog.Init("error", false, "")

	loans := &fakeLoans{}
	chain := &fakeChain{height: 1500}
	view := func(context.Context) loanview.Context {
		return loanview.Context{
			Metadata: asset.NewMetadataSet(),
			Rates:    testRates(),
			Owned:    []string{"mine"},
		}
	}

	srv := New("127.0.0.1:0", loans, chain, view, rpcCfg...)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{
		server: srv,
		loans:  loans,
		chain:  chain,
		url:    fmt.Sprintf("http://%s/", srv.Addr()),
	}
}

// rpcCall sends a JSON-RPC request and decodes the response.
func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", method, err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rpcResp
}

// decodeResult re-decodes a generic result into out.
func decodeResult(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %s", resp.Error.Message)
	}
	data, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func testKey(b byte) types.PublicKey {
	var pk types.PublicKey
	pk[0] = 0x02
	pk[32] = b
	return pk
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestRPC_Height(t *testing.T) {
	env := setupTestEnv(t)

	var result HeightResult
	decodeResult(t, rpcCall(t, env.url, "lend_height", nil), &result)
	if result.Height != 1500 {
		t.Errorf("height = %d, want 1500", result.Height)
	}
}

func TestRPC_Height_Error(t *testing.T) {
	env := setupTestEnv(t)
	env.chain.mu.Lock()
	env.chain.err = errors.New("indexer down")
	env.chain.mu.Unlock()

	resp := rpcCall(t, env.url, "lend_height", nil)
	if resp.Error == nil {
		t.Fatal("expected error")
	}
	if resp.Error.Code != CodeInternalError {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInternalError)
	}
}

func TestRPC_Scripts(t *testing.T) {
	env := setupTestEnv(t)

	var result ScriptsResult
	decodeResult(t, rpcCall(t, env.url, "lend_scripts", nil), &result)
	if len(result.Orders) != 2 || result.Orders[0] != "0102" {
		t.Errorf("orders = %v", result.Orders)
	}
	if len(result.Bonds) != 1 || result.Bonds[0] != "aa" {
		t.Errorf("bonds = %v", result.Bonds)
	}
}

func TestRPC_Orders(t *testing.T) {
	env := setupTestEnv(t)
	env.loans.with(func(f *fakeLoans) {
		f.orders = []*loanview.Order{
			{Loan: loanview.Loan{Borrower: "mine"}, Cancellable: true},
			{Loan: loanview.Loan{Borrower: "other"}},
		}
	})

	tests := []struct {
		name   string
		params interface{}
		want   int
	}{
		{"all", nil, 2},
		{"owned", LoanFilterParam{Owned: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result []map[string]interface{}
			decodeResult(t, rpcCall(t, env.url, "lend_orders", tt.params), &result)
			if len(result) != tt.want {
				t.Fatalf("got %d orders, want %d", len(result), tt.want)
			}
		})
	}
}

func TestRPC_Orders_Empty(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "lend_orders", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %s", resp.Error.Message)
	}
	list, ok := resp.Result.([]interface{})
	if !ok || len(list) != 0 {
		t.Errorf("result = %#v, want empty list", resp.Result)
	}
}

func TestRPC_Orders_BorrowerFilter(t *testing.T) {
	env := setupTestEnv(t)
	pk := testKey(7)

	resp := rpcCall(t, env.url, "lend_orders", LoanFilterParam{Borrower: pk.String()})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %s", resp.Error.Message)
	}
	env.loans.with(func(f *fakeLoans) {
		if f.filter.Borrower != pk {
			t.Errorf("filter borrower = %s, want %s", f.filter.Borrower, pk)
		}
	})
}

func TestRPC_Orders_InvalidParams(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name   string
		params interface{}
	}{
		{"bad borrower", LoanFilterParam{Borrower: "zz"}},
		{"lender on orders", LoanFilterParam{Lender: testKey(1).String()}},
		{"wrong shape", []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpcCall(t, env.url, "lend_orders", tt.params)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != CodeInvalidParams {
				t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
			}
		})
	}
}

func TestRPC_Bonds(t *testing.T) {
	env := setupTestEnv(t)
	env.loans.with(func(f *fakeLoans) {
		f.bonds = []*loanview.Bond{
			{Loan: loanview.Loan{Borrower: "other"}, Lender: "mine", Side: loanview.Lend},
			{Loan: loanview.Loan{Borrower: "mine"}, Lender: "other", Side: loanview.Debit},
			{Loan: loanview.Loan{Borrower: "x"}, Lender: "y", Side: loanview.Debit},
		}
	})
	lender := testKey(9)

	var all []map[string]interface{}
	decodeResult(t, rpcCall(t, env.url, "lend_bonds", LoanFilterParam{Lender: lender.String()}), &all)
	if len(all) != 3 {
		t.Fatalf("got %d bonds, want 3", len(all))
	}
	env.loans.with(func(f *fakeLoans) {
		if f.height != 1500 {
			t.Errorf("scan height = %d, want 1500", f.height)
		}
		if f.filter.Lender != lender {
			t.Errorf("filter lender = %s, want %s", f.filter.Lender, lender)
		}
	})

	var owned []map[string]interface{}
	decodeResult(t, rpcCall(t, env.url, "lend_bonds", LoanFilterParam{Owned: true}), &owned)
	if len(owned) != 2 {
		t.Errorf("got %d owned bonds, want 2", len(owned))
	}
}

func TestRPC_Bonds_ScanError(t *testing.T) {
	env := setupTestEnv(t)
	env.loans.with(func(f *fakeLoans) { f.err = errors.New("boom") })

	resp := rpcCall(t, env.url, "lend_bonds", nil)
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("expected internal error, got %+v", resp.Error)
	}
}

func TestRPC_TVL(t *testing.T) {
	env := setupTestEnv(t)
	env.loans.with(func(f *fakeLoans) { f.tvl = decimal.RequireFromString("25.5") })

	var result TVLResult
	decodeResult(t, rpcCall(t, env.url, "lend_tvl", nil), &result)
	if !result.TVL.Equal(decimal.RequireFromString("25.5")) || !result.Complete {
		t.Errorf("result = %+v", result)
	}
	env.loans.with(func(f *fakeLoans) {
		if !f.ratesIn.Has(types.NativeToken) {
			t.Error("TVL should be computed with the view rates")
		}
	})
}

func TestRPC_Rates(t *testing.T) {
	env := setupTestEnv(t)

	var result RatesResult
	decodeResult(t, rpcCall(t, env.url, "lend_rates", nil), &result)
	if !result.Rates.Fiat(types.NativeToken).Equal(decimal.NewFromInt(2)) {
		t.Errorf("rates = %+v", result.Rates)
	}
}

func TestRPC_MethodNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := rpcCall(t, env.url, "chain_getInfo", nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}

func TestRPC_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.url, "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if rpcResp.Error.Code != CodeParseError {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeParseError)
	}
}

func TestRPC_WrongVersion(t *testing.T) {
	env := setupTestEnv(t)

	body := []byte(`{"jsonrpc":"1.0","method":"lend_height","id":3}`)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)
	if rpcResp.Error == nil || rpcResp.Error.Code != CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", rpcResp.Error)
	}
}

func TestRPC_GetMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for GET request")
	}
	if rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeInvalidRequest)
	}
}

func TestRPC_BodySizeLimit(t *testing.T) {
	env := setupTestEnv(t)

	bigPayload := bytes.Repeat([]byte{'A'}, maxBodySize+1024)
	resp, err := http.Post(env.url, "application/json", bytes.NewReader(bigPayload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	json.NewDecoder(resp.Body).Decode(&rpcResp)

	if rpcResp.Error == nil {
		t.Fatal("expected error for oversized request body")
	}
	if rpcResp.Error.Code != CodeInvalidRequest {
		t.Errorf("error code = %d, want %d", rpcResp.Error.Code, CodeInvalidRequest)
	}
}

// --- IP Filtering ---

func TestRPC_IPFilter(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		status  int
	}{
		{"loopback allowed", []string{"127.0.0.1"}, http.StatusOK},
		{"cidr blocked", []string{"10.0.0.0/8"}, http.StatusForbidden},
		{"empty allows all", nil, http.StatusOK},
		{"garbage entries ignored", []string{"nope", "127.0.0.0/8"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, config.RPCConfig{AllowedIPs: tt.allowed})

			body, _ := json.Marshal(Request{JSONRPC: "2.0", Method: "lend_height", ID: 1})
			resp, err := http.Post(env.url, "application/json", bytes.NewReader(body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

// --- CORS ---

func corsRequest(t *testing.T, method, url, origin string) *http.Response {
	t.Helper()
	var body []byte
	if method == http.MethodPost {
		body, _ = json.Marshal(Request{JSONRPC: "2.0", Method: "lend_height", ID: 1})
	}
	httpReq, _ := http.NewRequest(method, url, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", origin)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRPC_CORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "http://example.com", "*"},
		{"specific match", []string{"http://myapp.com"}, "http://myapp.com", "http://myapp.com"},
		{"specific mismatch", []string{"http://myapp.com"}, "http://evil.com", ""},
		{"disabled", nil, "http://example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, config.RPCConfig{CORSOrigins: tt.origins})
			resp := corsRequest(t, http.MethodPost, env.url, tt.origin)
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("CORS origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRPC_CORS_Preflight(t *testing.T) {
	env := setupTestEnv(t, config.RPCConfig{CORSOrigins: []string{"*"}})

	resp := corsRequest(t, http.MethodOptions, env.url, "http://example.com")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight should have Allow-Methods header")
	}
}
