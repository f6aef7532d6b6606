package rpc

import (
	"context"
	"fmt"
	"slices"

	"github.com/Klingon-tech/klingnet-lend/internal/indexer"
	"github.com/Klingon-tech/klingnet-lend/internal/loanview"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

func (s *Server) handleHeight(ctx context.Context) (interface{}, *Error) {
	h, err := s.chain.Height(ctx)
	if err != nil {
		return nil, s.internal("height", err)
	}
	return &HeightResult{Height: h}, nil
}

func (s *Server) handleScripts() (interface{}, *Error) {
	return &ScriptsResult{
		Orders: scriptStrings(s.loans.OrderScripts()),
		Bonds:  scriptStrings(s.loans.BondScripts()),
	}, nil
}

func (s *Server) handleOrders(ctx context.Context, req *Request) (interface{}, *Error) {
	var p LoanFilterParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Lender != "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "orders have no lender"}
	}
	f, rpcErr := parseFilter(p)
	if rpcErr != nil {
		return nil, rpcErr
	}

	vc := s.view(ctx)
	orders, err := s.loans.Orders(ctx, f, vc)
	if err != nil {
		return nil, s.internal("orders", err)
	}
	if p.Owned {
		orders = slices.DeleteFunc(orders, func(o *loanview.Order) bool {
			return !slices.Contains(vc.Owned, o.Borrower)
		})
	}
	if orders == nil {
		orders = []*loanview.Order{}
	}
	return orders, nil
}

func (s *Server) handleBonds(ctx context.Context, req *Request) (interface{}, *Error) {
	var p LoanFilterParam
	if rpcErr := parseParams(req, &p); rpcErr != nil {
		return nil, rpcErr
	}
	f, rpcErr := parseFilter(p)
	if rpcErr != nil {
		return nil, rpcErr
	}

	height, err := s.chain.Height(ctx)
	if err != nil {
		return nil, s.internal("height", err)
	}
	vc := s.view(ctx)
	bonds, err := s.loans.Bonds(ctx, f, vc, height)
	if err != nil {
		return nil, s.internal("bonds", err)
	}
	if p.Owned {
		bonds = slices.DeleteFunc(bonds, func(b *loanview.Bond) bool {
			return !slices.Contains(vc.Owned, b.Borrower) && !slices.Contains(vc.Owned, b.Lender)
		})
	}
	if bonds == nil {
		bonds = []*loanview.Bond{}
	}
	return bonds, nil
}

func (s *Server) handleTVL(ctx context.Context) (interface{}, *Error) {
	vc := s.view(ctx)
	total, complete, err := s.loans.TVL(ctx, vc.Metadata, vc.Rates)
	if err != nil {
		return nil, s.internal("tvl", err)
	}
	return &TVLResult{TVL: total, Complete: complete}, nil
}

func (s *Server) handleRates(ctx context.Context) (interface{}, *Error) {
	return &RatesResult{Rates: s.view(ctx).Rates}, nil
}

// parseFilter decodes the hex public keys of p.
func parseFilter(p LoanFilterParam) (indexer.Filter, *Error) {
	var f indexer.Filter
	var err error
	if p.Borrower != "" {
		if f.Borrower, err = types.HexToPublicKey(p.Borrower); err != nil {
			return f, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid borrower: %v", err)}
		}
	}
	if p.Lender != "" {
		if f.Lender, err = types.HexToPublicKey(p.Lender); err != nil {
			return f, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid lender: %v", err)}
		}
	}
	return f, nil
}

func scriptStrings(scripts []types.Script) []string {
	out := make([]string, len(scripts))
	for i, s := range scripts {
		out[i] = s.String()
	}
	return out
}

// internal logs err and wraps it as an internal error.
func (s *Server) internal(op string, err error) *Error {
	s.logger.Warn().Err(err).Str("op", op).Msg("RPC request failed")
	return &Error{Code: CodeInternalError, Message: fmt.Sprintf("%s failed: %v", op, err)}
}
