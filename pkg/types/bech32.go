package types

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// Bech32Encode encodes 8-bit data under hrp.
func Bech32Encode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", fmt.Errorf("bech32: empty HRP")
	}
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: convert bits: %w", err)
	}
	return bech32.Encode(hrp, conv)
}

// Bech32Decode decodes s and returns its HRP and 8-bit payload.
func Bech32Decode(s string) (string, []byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", nil, fmt.Errorf("bech32: %w", err)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("bech32: convert bits: %w", err)
	}
	return hrp, payload, nil
}
