package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/internal/asset"
	"github.com/Klingon-tech/klingnet-lend/internal/contract"
	"github.com/Klingon-tech/klingnet-lend/internal/loanview"
	"github.com/Klingon-tech/klingnet-lend/internal/log"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

// ErrBoxNotFound is returned when a looked-up loan box is not unspent.
var ErrBoxNotFound = errors.New("box not found")

// Filter narrows a scan to loans of one party. Zero keys match everyone.
type Filter struct {
	Borrower types.PublicKey
	Lender   types.PublicKey // bonds only
}

// Scanner lists the order and bond boxes of the verified assets.
type Scanner struct {
	src      Source
	resolver *MetadataResolver
	assets   []asset.VerifiedAsset
}

// NewScanner creates a scanner over the verified asset registry.
func NewScanner(src Source, resolver *MetadataResolver) *Scanner {
	return &Scanner{src: src, resolver: resolver, assets: asset.Verified()}
}

// OrderScripts returns the order contract of every verified asset. The
// native coin has one per loan type.
func (s *Scanner) OrderScripts() []types.Script {
	var out []types.Script
	for _, a := range s.assets {
		loanTypes := []contract.LoanType{contract.OnClose}
		if a.ID.IsNative() {
			loanTypes = append(loanTypes, contract.FixedHeight)
		}
		for _, typ := range loanTypes {
			script, err := contract.OrderScript(a.ID, typ)
			if err != nil {
				panic(err) // both loan types are known
			}
			out = append(out, script)
		}
	}
	return out
}

// BondScripts returns the bond contract of every verified asset.
func (s *Scanner) BondScripts() []types.Script {
	out := make([]types.Script, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, contract.BondScript(a.ID))
	}
	return out
}

// OrderBoxes returns the unspent order boxes matching f.
func (s *Scanner) OrderBoxes(ctx context.Context, f Filter) ([]tx.Box, error) {
	q := BoxQuery{Scripts: s.OrderScripts()}
	if !f.Borrower.IsZero() {
		q.Registers = register.Registers{register.R4: register.EncodeSigmaProp(f.Borrower)}
	}
	return s.collect(ctx, q, contract.Order)
}

// BondBoxes returns the unspent bond boxes matching f.
func (s *Scanner) BondBoxes(ctx context.Context, f Filter) ([]tx.Box, error) {
	q := BoxQuery{Scripts: s.BondScripts()}
	regs := register.Registers{}
	if !f.Borrower.IsZero() {
		regs[register.R5] = register.EncodeSigmaProp(f.Borrower)
	}
	if !f.Lender.IsZero() {
		regs[register.R8] = register.EncodeSigmaProp(f.Lender)
	}
	if len(regs) > 0 {
		q.Registers = regs
	}
	return s.collect(ctx, q, contract.Bond)
}

// FindOrder returns the unspent order box with the given id.
func (s *Scanner) FindOrder(ctx context.Context, id types.Hash) (tx.Box, error) {
	boxes, err := s.OrderBoxes(ctx, Filter{})
	if err != nil {
		return tx.Box{}, err
	}
	return find(boxes, id, contract.Order)
}

// FindBond returns the unspent bond box with the given id.
func (s *Scanner) FindBond(ctx context.Context, id types.Hash) (tx.Box, error) {
	boxes, err := s.BondBoxes(ctx, Filter{})
	if err != nil {
		return tx.Box{}, err
	}
	return find(boxes, id, contract.Bond)
}

func find(boxes []tx.Box, id types.Hash, kind contract.Kind) (tx.Box, error) {
	for _, b := range boxes {
		if b.ID == id {
			return b, nil
		}
	}
	return tx.Box{}, fmt.Errorf("%s %s: %w", kind, id, ErrBoxNotFound)
}

func (s *Scanner) collect(ctx context.Context, q BoxQuery, want contract.Kind) ([]tx.Box, error) {
	var out []tx.Box
	err := StreamBoxes(ctx, s.src, q, func(page []tx.Box) error {
		for _, b := range page {
			if kind, _ := contract.Classify(b.Script); kind != want {
				log.Indexer.Debug().Str("box", b.ID.String()).Str("want", want.String()).Msg("skipping box with foreign script")
				continue
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s boxes: %w", want, err)
	}
	return out, nil
}

// Orders scans and parses the open orders matching f. Boxes that fail to
// parse are logged and skipped. vc.Metadata is extended with the tokens
// seen.
func (s *Scanner) Orders(ctx context.Context, f Filter, vc loanview.Context) ([]*loanview.Order, error) {
	boxes, err := s.OrderBoxes(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := s.resolve(ctx, &vc, boxes, contract.TokenIDFromOrderScript); err != nil {
		return nil, err
	}

	orders := make([]*loanview.Order, 0, len(boxes))
	for _, b := range boxes {
		o, err := loanview.ParseOrder(b, vc)
		if err != nil {
			log.Indexer.Warn().Err(err).Str("box", b.ID.String()).Msg("skipping malformed order")
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Bonds scans and parses the bonds matching f at the given height.
func (s *Scanner) Bonds(ctx context.Context, f Filter, vc loanview.Context, height uint32) ([]*loanview.Bond, error) {
	boxes, err := s.BondBoxes(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := s.resolve(ctx, &vc, boxes, contract.TokenIDFromBondScript); err != nil {
		return nil, err
	}

	bonds := make([]*loanview.Bond, 0, len(boxes))
	for _, b := range boxes {
		bond, err := loanview.ParseBond(b, vc, height)
		if err != nil {
			log.Indexer.Warn().Err(err).Str("box", b.ID.String()).Msg("skipping malformed bond")
			continue
		}
		bonds = append(bonds, bond)
	}
	return bonds, nil
}

// TVL returns the fiat value locked in all order and bond contracts.
func (s *Scanner) TVL(ctx context.Context, meta asset.MetadataSet, rates asset.Rates) (decimal.Decimal, bool, error) {
	scripts := append(s.OrderScripts(), s.BondScripts()...)
	balances, err := s.src.Balances(ctx, scripts)
	if err != nil {
		return decimal.Zero, false, err
	}

	var ids []types.TokenID
	for _, b := range balances {
		for _, t := range b.Tokens {
			ids = append(ids, t.ID)
		}
	}
	if s.resolver != nil {
		if err := s.resolver.Resolve(ctx, meta, ids); err != nil {
			return decimal.Zero, false, err
		}
	}
	total, ok := asset.TVL(balances, meta, rates)
	return total, ok, nil
}

// resolve loads metadata for the denominations and collateral tokens of
// boxes into vc.Metadata.
func (s *Scanner) resolve(ctx context.Context, vc *loanview.Context, boxes []tx.Box, denom func(types.Script) types.TokenID) error {
	if vc.Metadata == nil {
		vc.Metadata = asset.NewMetadataSet()
	}
	if s.resolver == nil {
		return nil
	}
	var ids []types.TokenID
	for _, b := range boxes {
		ids = append(ids, denom(b.Script))
		for _, t := range b.Tokens {
			ids = append(ids, t.ID)
		}
	}
	return s.resolver.Resolve(ctx, vc.Metadata, ids)
}
