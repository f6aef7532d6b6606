package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Script is a serialized spending contract guarding a box.
type Script []byte

// HexToScript decodes a hex-encoded script.
func HexToScript(s string) (Script, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid script hex: %w", err)
	}
	return Script(b), nil
}

// String returns the hex-encoded script.
func (s Script) String() string {
	return hex.EncodeToString(s)
}

// Equal reports whether two scripts are byte-identical.
func (s Script) Equal(other Script) bool {
	return bytes.Equal(s, other)
}

// MarshalJSON encodes the script as a hex string.
func (s Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a hex-encoded script.
func (s *Script) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	b, err := HexToScript(str)
	if err != nil {
		return err
	}
	*s = b
	return nil
}
