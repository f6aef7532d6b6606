package asset

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

//go:embed verified.toml
var verifiedTOML string

// VerifiedAsset is a registry entry.
type VerifiedAsset struct {
	ID types.TokenID `toml:"id"`
	Metadata
}

type registry struct {
	Asset []VerifiedAsset `toml:"asset"`
}

var (
	verifiedOnce sync.Once
	verified     []VerifiedAsset
)

// Verified returns the verified asset registry, native coin first.
func Verified() []VerifiedAsset {
	verifiedOnce.Do(func() {
		reg, err := ParseRegistry(verifiedTOML)
		if err != nil {
			panic(fmt.Sprintf("asset: corrupt verified registry: %v", err))
		}
		verified = reg
	})
	out := make([]VerifiedAsset, len(verified))
	copy(out, verified)
	return out
}

// ParseRegistry decodes a TOML asset registry.
func ParseRegistry(data string) ([]VerifiedAsset, error) {
	var reg registry
	md, err := toml.Decode(data, &reg)
	if err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown registry key %q", undecoded[0].String())
	}
	seen := make(map[types.TokenID]bool, len(reg.Asset))
	for _, a := range reg.Asset {
		if a.Name == "" {
			return nil, fmt.Errorf("asset %s has no name", a.ID)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("asset %s listed twice", a.ID)
		}
		seen[a.ID] = true
	}
	return reg.Asset, nil
}

// IsVerified reports whether id is in the registry.
func IsVerified(id types.TokenID) bool {
	for _, a := range Verified() {
		if a.ID == id {
			return true
		}
	}
	return false
}
