package main

import (
	"testing"

	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"1", 9, 1_000_000_000, false},
		{"1.05", 9, 1_050_000_000, false},
		{"0.000000001", 9, 1, false},
		{"0", 9, 0, false},
		{"2.50", 2, 250, false},
		{"1.500", 2, 150, false},
		{"42", 0, 42, false},
		{"0.0000000001", 9, 0, true},
		{"1.001", 2, 0, true},
		{"-1", 9, 0, true},
		{"abc", 9, 0, true},
		{"", 9, 0, true},
		{"99999999999999999999", 9, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in, tt.decimals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatured(t *testing.T) {
	bond := tx.Box{Registers: register.Registers{register.R7: register.EncodeInt(1_720)}}
	for _, tt := range []struct {
		height uint32
		want   bool
	}{{1_719, false}, {1_720, true}, {2_000, true}} {
		got, err := matured(bond, tt.height)
		if err != nil || got != tt.want {
			t.Errorf("matured at %d = %v, %v, want %v", tt.height, got, err, tt.want)
		}
	}
	if _, err := matured(tx.Box{}, 10); err == nil {
		t.Error("a bond without R7 should fail")
	}
}
