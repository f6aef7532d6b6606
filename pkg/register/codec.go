package register

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/pkg/crypto"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
)

// Type tags.
const (
	TagInt          byte = 0x04
	TagLong         byte = 0x05
	TagGroupElement byte = 0x07
	TagSigmaProp    byte = 0x08
	TagCollByte     byte = 0x0e

	// proveDlog is the sigma-proposition node that wraps a group element.
	proveDlog byte = 0xcd
)

// EncodeLong serializes v as a Long. Values above MaxInt64 are stored as
// their two's complement and decode back unchanged.
func EncodeLong(v uint64) string {
	n := int64(v)
	buf := []byte{TagLong}
	buf = binary.AppendUvarint(buf, uint64((n<<1)^(n>>63)))
	return hex.EncodeToString(buf)
}

// EncodeInt serializes v as an Int.
func EncodeInt(v int32) string {
	buf := []byte{TagInt}
	buf = binary.AppendUvarint(buf, uint64(uint32((v<<1)^(v>>31))))
	return hex.EncodeToString(buf)
}

// EncodeBytes serializes b as a Coll[Byte].
func EncodeBytes(b []byte) string {
	buf := make([]byte, 0, 1+binary.MaxVarintLen64+len(b))
	buf = append(buf, TagCollByte)
	buf = binary.AppendUvarint(buf, uint64(len(b)))
	buf = append(buf, b...)
	return hex.EncodeToString(buf)
}

// EncodeGroupElement serializes a bare group element.
func EncodeGroupElement(pk types.PublicKey) string {
	buf := make([]byte, 0, 1+types.PublicKeySize)
	buf = append(buf, TagGroupElement)
	buf = append(buf, pk[:]...)
	return hex.EncodeToString(buf)
}

// EncodeSigmaProp serializes the proposition "prove knowledge of the secret
// key of pk".
func EncodeSigmaProp(pk types.PublicKey) string {
	buf := make([]byte, 0, 2+types.PublicKeySize)
	buf = append(buf, TagSigmaProp, proveDlog)
	buf = append(buf, pk[:]...)
	return hex.EncodeToString(buf)
}

// DecodeLong parses a serialized Long.
func DecodeLong(s string) (uint64, error) {
	body, err := payload(s, TagLong)
	if err != nil {
		return 0, err
	}
	u, err := readUvarint(body)
	if err != nil {
		return 0, err
	}
	return uint64(int64(u>>1) ^ -int64(u&1)), nil
}

// DecodeInt parses a serialized Int.
func DecodeInt(s string) (int32, error) {
	body, err := payload(s, TagInt)
	if err != nil {
		return 0, err
	}
	u, err := readUvarint(body)
	if err != nil {
		return 0, err
	}
	if u > 0xffffffff {
		return 0, ErrOverflow
	}
	z := uint32(u)
	return int32(z>>1) ^ -int32(z&1), nil
}

// DecodeBytes parses a serialized Coll[Byte].
func DecodeBytes(s string) ([]byte, error) {
	body, err := payload(s, TagCollByte)
	if err != nil {
		return nil, err
	}
	n, k, err := uvarint(body)
	if err != nil {
		return nil, err
	}
	rest := body[k:]
	if uint64(len(rest)) < n {
		return nil, fmt.Errorf("%w: want %d bytes, have %d", ErrTruncated, n, len(rest))
	}
	if uint64(len(rest)) > n {
		return nil, ErrTrailing
	}
	return rest, nil
}

// DecodeGroupElement parses a bare group element and checks it lies on the
// curve.
func DecodeGroupElement(s string) (types.PublicKey, error) {
	body, err := payload(s, TagGroupElement)
	if err != nil {
		return types.PublicKey{}, err
	}
	return point(body)
}

// DecodeSigmaProp parses a proveDlog sigma proposition and returns its key.
func DecodeSigmaProp(s string) (types.PublicKey, error) {
	body, err := payload(s, TagSigmaProp)
	if err != nil {
		return types.PublicKey{}, err
	}
	if len(body) == 0 {
		return types.PublicKey{}, ErrTruncated
	}
	if body[0] != proveDlog {
		return types.PublicKey{}, fmt.Errorf("%w: proposition %#02x", ErrWrongTag, body[0])
	}
	return point(body[1:])
}

// SigmaProp decodes a SigmaProp register.
func (r Registers) SigmaProp(id ID, op string) (types.PublicKey, error) {
	raw, err := r.Raw(id, op)
	if err != nil {
		return types.PublicKey{}, err
	}
	pk, err := DecodeSigmaProp(raw)
	if err != nil {
		return types.PublicKey{}, &DecodeError{Register: id, Err: err}
	}
	return pk, nil
}

func payload(s string, tag byte) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	if len(b) == 0 {
		return nil, ErrTruncated
	}
	if b[0] != tag {
		return nil, fmt.Errorf("%w: got %#02x, want %#02x", ErrWrongTag, b[0], tag)
	}
	return b[1:], nil
}

// readUvarint decodes b as exactly one varint.
func readUvarint(b []byte) (uint64, error) {
	u, n, err := uvarint(b)
	if err != nil {
		return 0, err
	}
	if n != len(b) {
		return 0, ErrTrailing
	}
	return u, nil
}

// uvarint decodes the varint prefix of b and rejects padded encodings.
// A multi-byte varint ending in a zero group has a shorter form.
func uvarint(b []byte) (uint64, int, error) {
	u, n := binary.Uvarint(b)
	switch {
	case n == 0:
		return 0, 0, ErrTruncated
	case n < 0:
		return 0, 0, ErrOverflow
	case n > 1 && b[n-1] == 0:
		return 0, 0, ErrNonCanonical
	}
	return u, n, nil
}

func point(b []byte) (types.PublicKey, error) {
	if len(b) < types.PublicKeySize {
		return types.PublicKey{}, ErrTruncated
	}
	if len(b) > types.PublicKeySize {
		return types.PublicKey{}, ErrTrailing
	}
	pk, err := crypto.ParsePublicKey(b)
	if err != nil {
		return types.PublicKey{}, fmt.Errorf("%w: %v", ErrBadPoint, err)
	}
	return pk, nil
}
