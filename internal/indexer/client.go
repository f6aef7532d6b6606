package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// JSON-RPC methods served by the indexer.
const (
	MethodHeight       = "indexer_height"
	MethodUnspentBoxes = "indexer_unspentBoxes"
	MethodBoxes        = "indexer_boxes"
	MethodTokens       = "indexer_tokens"
	MethodBalances     = "indexer_balances"
	MethodSubmit       = "indexer_submit"
)

// Client is a Source over the indexer's JSON-RPC interface.
type Client struct {
	rpc *rpcclient.Client
}

// NewClient creates a client for the indexer at url. rps caps requests per
// second (0 = unlimited).
func NewClient(url string, timeout time.Duration, rps int) *Client {
	return &Client{rpc: rpcclient.New(url, rpcclient.WithTimeout(timeout), rpcclient.WithRateLimit(rps))}
}

type scriptParam struct {
	Script types.Script `json:"script"`
}

type scriptsParam struct {
	Scripts []types.Script `json:"scripts"`
}

type tokensParam struct {
	IDs []types.TokenID `json:"tokenIds"`
}

type submitResult struct {
	TxID types.Hash `json:"txId"`
}

// Height returns the current ledger height.
func (c *Client) Height(ctx context.Context) (uint32, error) {
	var h uint32
	if err := c.rpc.Call(ctx, MethodHeight, nil, &h); err != nil {
		return 0, fmt.Errorf("height: %w", err)
	}
	return h, nil
}

// UnspentBoxes returns the spendable boxes guarded by script.
func (c *Client) UnspentBoxes(ctx context.Context, script types.Script) ([]tx.Box, error) {
	var boxes []tx.Box
	if err := c.rpc.Call(ctx, MethodUnspentBoxes, scriptParam{Script: script}, &boxes); err != nil {
		return nil, fmt.Errorf("unspent boxes: %w", err)
	}
	return boxes, nil
}

// Boxes returns one page of boxes matching q.
func (c *Client) Boxes(ctx context.Context, q BoxQuery) ([]tx.Box, error) {
	var boxes []tx.Box
	if err := c.rpc.Call(ctx, MethodBoxes, q, &boxes); err != nil {
		return nil, fmt.Errorf("boxes: %w", err)
	}
	return boxes, nil
}

// Tokens returns metadata for the given token ids.
func (c *Client) Tokens(ctx context.Context, ids []types.TokenID) ([]TokenInfo, error) {
	var tokens []TokenInfo
	if err := c.rpc.Call(ctx, MethodTokens, tokensParam{IDs: ids}, &tokens); err != nil {
		return nil, fmt.Errorf("tokens: %w", err)
	}
	return tokens, nil
}

// Balances returns the unspent value held under each script.
func (c *Client) Balances(ctx context.Context, scripts []types.Script) ([]asset.Balance, error) {
	var out []asset.Balance
	if err := c.rpc.Call(ctx, MethodBalances, scriptsParam{Scripts: scripts}, &out); err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	return out, nil
}

// Submit broadcasts a signed transaction.
func (c *Client) Submit(ctx context.Context, t *tx.Transaction) (types.Hash, error) {
	var res submitResult
	if err := c.rpc.Call(ctx, MethodSubmit, t, &res); err != nil {
		return types.Hash{}, fmt.Errorf("submit: %w", err)
	}
	return res.TxID, nil
}
