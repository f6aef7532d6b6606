package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// Derivation path m/44'/429'/account'/0/index.
const (
	PurposeBIP44   = bip32.FirstHardenedChild + 44
	CoinType       = bip32.FirstHardenedChild + 429
	ChangeExternal = 0
)

// HDKey is a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates the root key of a seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DerivePath walks the given child indices from k. Add
// bip32.FirstHardenedChild for hardened steps.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	cur := k.key
	for _, idx := range indices {
		child, err := cur.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
		cur = child
	}
	return &HDKey{key: cur}, nil
}

// DeriveAddress derives the external key at index of account.
func (k *HDKey) DeriveAddress(account, index uint32) (*HDKey, error) {
	return k.DerivePath(PurposeBIP44, CoinType, bip32.FirstHardenedChild+account, ChangeExternal, index)
}

// IsPrivate reports whether k holds a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth is 0 for the master key.
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// PrivateKey returns the signing key. Public-only keys fail.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	if !k.key.IsPrivate {
		return nil, fmt.Errorf("public-only key cannot sign")
	}
	raw := k.key.Key
	// bip32 pads private keys to 33 bytes.
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// PublicKey returns the compressed public key.
func (k *HDKey) PublicKey() types.PublicKey {
	var pk types.PublicKey
	copy(pk[:], k.key.PublicKey().Key)
	return pk
}

// Address returns the pay-to-public-key address of k.
func (k *HDKey) Address() types.Address {
	return k.PublicKey().Address()
}

// Neuter drops the private half.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
