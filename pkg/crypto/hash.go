// Package crypto provides cryptographic primitives for the lending core.
package crypto

import (
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data. It is the content hash
// used for contract commitments, transaction ids and derived box ids.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashConcat hashes the concatenation of two byte strings.
func HashConcat(a, b []byte) types.Hash {
	buf := make([]byte, 0, len(a)+len(b))
	buf = append(buf, a...)
	buf = append(buf, b...)
	return Hash(buf)
}
