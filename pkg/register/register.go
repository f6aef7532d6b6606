// Package register encodes and decodes the typed values stored in a box's
// auxiliary register slots.
//
// Every value is serialized as a one-byte type tag followed by its payload,
// and registers travel as lowercase hex of those bytes:
//
//	Int        04 <zigzag VLQ of int32>
//	Long       05 <zigzag VLQ of int64>
//	GroupElem  07 <33-byte compressed secp256k1 point>
//	SigmaProp  08 cd <33-byte compressed secp256k1 point>
//	Coll[Byte] 0e <VLQ length> <bytes>
package register

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ID names a register slot. Slots R0-R3 are reserved by the ledger for
// value, script, tokens and creation info; R4-R9 are free for contracts.
type ID uint8

// Register slots available to contracts.
const (
	R4 ID = 4
	R5 ID = 5
	R6 ID = 6
	R7 ID = 7
	R8 ID = 8
	R9 ID = 9
)

// Register errors.
var (
	ErrMissing      = errors.New("missing register")
	ErrDecode       = errors.New("register decode failed")
	ErrUnknownID    = errors.New("unknown register")
	ErrWrongTag     = errors.New("unexpected type tag")
	ErrTruncated    = errors.New("truncated value")
	ErrTrailing     = errors.New("trailing bytes")
	ErrOverflow     = errors.New("varint overflow")
	ErrNonCanonical = errors.New("non-canonical varint")
	ErrBadPoint     = errors.New("invalid group element")
	ErrInvalidHex   = errors.New("invalid hex")
)

// String returns the slot name, e.g. "R4".
func (id ID) String() string {
	return "R" + strconv.Itoa(int(id))
}

// Valid reports whether id is one of R4-R9.
func (id ID) Valid() bool {
	return id >= R4 && id <= R9
}

// ParseID parses a slot name such as "R5".
func ParseID(s string) (ID, error) {
	if len(s) != 2 || (s[0] != 'R' && s[0] != 'r') {
		return 0, fmt.Errorf("%w: %q", ErrUnknownID, s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownID, s)
	}
	id := ID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownID, s)
	}
	return id, nil
}

// MarshalText lets IDs key JSON objects as "R4".."R9".
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses "R4".."R9".
func (id *ID) UnmarshalText(data []byte) error {
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MissingError reports a register that an operation needed but the box did
// not carry.
type MissingError struct {
	Register  ID
	Operation string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: register %s is missing", e.Operation, e.Register)
}

// Is matches ErrMissing.
func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

// DecodeError reports a register whose value is present but malformed.
type DecodeError struct {
	Register ID
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode register %s: %v", e.Register, e.Err)
}

// Is matches ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Registers maps slots to their serialized hex values.
type Registers map[ID]string

// Clone returns a copy of the register map.
func (r Registers) Clone() Registers {
	if r == nil {
		return nil
	}
	out := make(Registers, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IDs returns the populated slots in ascending order.
func (r Registers) IDs() []ID {
	ids := make([]ID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Raw returns the serialized value of a slot, or a *MissingError naming op.
func (r Registers) Raw(id ID, op string) (string, error) {
	v, ok := r[id]
	if !ok || v == "" {
		return "", &MissingError{Register: id, Operation: op}
	}
	return strings.ToLower(v), nil
}

// Long decodes a Long register.
func (r Registers) Long(id ID, op string) (uint64, error) {
	raw, err := r.Raw(id, op)
	if err != nil {
		return 0, err
	}
	v, err := DecodeLong(raw)
	if err != nil {
		return 0, &DecodeError{Register: id, Err: err}
	}
	return v, nil
}

// Int decodes an Int register.
func (r Registers) Int(id ID, op string) (int32, error) {
	raw, err := r.Raw(id, op)
	if err != nil {
		return 0, err
	}
	v, err := DecodeInt(raw)
	if err != nil {
		return 0, &DecodeError{Register: id, Err: err}
	}
	return v, nil
}

// Bytes decodes a Coll[Byte] register.
func (r Registers) Bytes(id ID, op string) ([]byte, error) {
	raw, err := r.Raw(id, op)
	if err != nil {
		return nil, err
	}
	v, err := DecodeBytes(raw)
	if err != nil {
		return nil, &DecodeError{Register: id, Err: err}
	}
	return v, nil
}
