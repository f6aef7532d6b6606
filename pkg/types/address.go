package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// PublicKeySize is the length of a compressed secp256k1 public key.
const PublicKeySize = 33

// PublicKey is a compressed secp256k1 group element. Authorization keys in
// order and bond registers are public keys.
type PublicKey [PublicKeySize]byte

// PublicKeyFromBytes copies a 33-byte compressed key. It checks length only;
// curve membership is checked by crypto.ParsePublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

// HexToPublicKey decodes a hex-encoded compressed public key.
func HexToPublicKey(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid hex: %w", err)
	}
	return PublicKeyFromBytes(b)
}

// IsZero returns true if the key is all zeros.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// String returns the hex-encoded key.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// Address returns the pay-to-public-key address of the key.
func (pk PublicKey) Address() Address {
	return Address(pk)
}

// MarshalJSON encodes the key as a hex string.
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.String())
}

// UnmarshalJSON decodes a hex string into a key.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HexToPublicKey(s)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// AddressSize is the length of an address payload in bytes.
const AddressSize = PublicKeySize

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP = "kgl"
	TestnetHRP = "tkgl"
)

// activeHRP is the address HRP used by String() and MarshalJSON().
// Set once at startup via SetAddressHRP(). Default is mainnet.
var activeHRP = MainnetHRP

// SetAddressHRP sets the active address HRP (call once at startup).
func SetAddressHRP(hrp string) {
	activeHRP = hrp
}

// GetAddressHRP returns the currently active address HRP.
func GetAddressHRP() string {
	return activeHRP
}

// Address is a pay-to-public-key address. The payload is the compressed
// key itself so that a P2PK script can be rebuilt from the address alone.
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// PublicKey returns the key the address pays to.
func (a Address) PublicKey() PublicKey {
	return PublicKey(a)
}

// String returns the bech32-encoded address (e.g. "kgl1...").
func (a Address) String() string {
	s, err := Bech32Encode(activeHRP, a[:])
	if err != nil {
		// Fallback to hex if encoding fails (should never happen).
		return activeHRP + ":" + hex.EncodeToString(a[:])
	}
	return s
}

// Hex returns the raw hex-encoded address without prefix.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 or raw hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a bech32 address ("kgl1...", "tkgl1...") or a raw
// 66-char hex public key.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}

	if !isHex66(s) && strings.Contains(s, "1") {
		_, data, err := Bech32Decode(s)
		if err != nil {
			return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
		}
		if len(data) != AddressSize {
			return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(data))
		}
		var a Address
		copy(a[:], data)
		return a, nil
	}

	pk, err := HexToPublicKey(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address: %w", err)
	}
	return pk.Address(), nil
}

// isHex66 returns true if s is exactly 66 hex characters.
func isHex66(s string) bool {
	if len(s) != 2*AddressSize {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
