// Package asset holds token metadata, the verified asset registry and the
// price rates used to value loans.
package asset

import (
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

// Type is the asset standard type carried in a token's issuance box.
type Type string

const (
	PictureArtwork     Type = "0101"
	AudioArtwork       Type = "0102"
	VideoArtwork       Type = "0103"
	ThresholdSignature Type = "0201"
)

// Metadata describes a token.
type Metadata struct {
	Name     string `json:"name,omitempty" toml:"name"`
	Decimals uint8  `json:"decimals" toml:"decimals"`
	Type     Type   `json:"type,omitempty" toml:"type"`
	URL      string `json:"url,omitempty" toml:"url"`
}

// ParseMetadata builds metadata from an issuance box. R7 carries the asset
// type as a two-byte Coll[Byte]; picture artwork keeps its link in R9.
func ParseMetadata(name string, decimals uint8, regs register.Registers) Metadata {
	m := Metadata{Name: name, Decimals: decimals}

	if r7 := strings.ToLower(regs[register.R7]); len(r7) == 8 && strings.HasPrefix(r7, "0e02") {
		m.Type = Type(r7[4:])
	}
	if m.Type == PictureArtwork {
		if b, err := register.DecodeBytes(regs[register.R9]); err == nil && utf8.Valid(b) {
			m.URL = string(b)
		}
	}
	return m
}

// MetadataSet maps token ids to their metadata.
type MetadataSet map[types.TokenID]Metadata

// NewMetadataSet returns a set seeded with the verified assets.
func NewMetadataSet() MetadataSet {
	set := make(MetadataSet)
	for _, a := range Verified() {
		set[a.ID] = a.Metadata
	}
	return set
}

// Get returns the metadata for id.
func (s MetadataSet) Get(id types.TokenID) (Metadata, bool) {
	m, ok := s[id]
	return m, ok
}

// Decimals returns the decimals of id, or 0 when unknown.
func (s MetadataSet) Decimals(id types.TokenID) uint8 {
	return s[id].Decimals
}

// Missing returns the distinct ids that have no metadata, in input order.
func (s MetadataSet) Missing(ids []types.TokenID) []types.TokenID {
	var out []types.TokenID
	seen := make(map[types.TokenID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := s[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Merge copies every entry of other into s.
func (s MetadataSet) Merge(other MetadataSet) {
	for id, m := range other {
		s[id] = m
	}
}

// Decimalize converts a base-unit amount to a decimal with the given
// number of decimals.
func Decimalize(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

// Undecimalize converts a decimal amount back to base units, truncating
// digits beyond decimals.
func Undecimalize(d decimal.Decimal, decimals uint8) uint64 {
	return d.Shift(int32(decimals)).Truncate(0).BigInt().Uint64()
}
