// Package types defines core primitive types shared by the lending core.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value. Box ids, transaction ids and
// contract commitments are all hashes.
type Hash [HashSize]byte

// TokenID identifies a token type on the ledger.
type TokenID Hash

// NativeToken is the denomination of the ledger's native currency. It is
// the zero TokenID, matching how price and indexer services key the native
// asset.
var NativeToken = TokenID{}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// HexToTokenID converts a hex string to a TokenID.
func HexToTokenID(s string) (TokenID, error) {
	h, err := HexToHash(s)
	if err != nil {
		return TokenID{}, err
	}
	return TokenID(h), nil
}

// IsNative reports whether the token ID denotes the native currency.
func (t TokenID) IsNative() bool {
	return Hash(t).IsZero()
}

// String returns the hex-encoded token ID.
func (t TokenID) String() string {
	return Hash(t).String()
}

// Bytes returns a copy of the token ID as a byte slice.
func (t TokenID) Bytes() []byte {
	return Hash(t).Bytes()
}

// MarshalText encodes the token ID as hex. Implementing TextMarshaler lets
// TokenID key JSON objects (metadata and rate tables).
func (t TokenID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a hex token ID.
func (t *TokenID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*t = TokenID{}
		return nil
	}
	id, err := HexToTokenID(string(data))
	if err != nil {
		return err
	}
	*t = id
	return nil
}
