package asset

import (
	"testing"

	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/types"
	"github.com/shopspring/decimal"
)

const sigUSDHex = "03faf2cb329f2e90d6d23b58d91bbb6c046aa143261cc21f52fbe2824bfcbf04"

func sigUSD(t *testing.T) types.TokenID {
	t.Helper()
	id, err := types.HexToTokenID(sigUSDHex)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestVerified(t *testing.T) {
	assets := Verified()
	if len(assets) != 2 {
		t.Fatalf("Verified() = %d assets, want 2", len(assets))
	}
	if !assets[0].ID.IsNative() || assets[0].Name != "ERG" || assets[0].Decimals != 9 {
		t.Errorf("native entry = %+v", assets[0])
	}
	if assets[1].ID != sigUSD(t) || assets[1].Name != "SigUSD" || assets[1].Decimals != 2 {
		t.Errorf("SigUSD entry = %+v", assets[1])
	}

	assets[0].Name = "changed"
	if Verified()[0].Name != "ERG" {
		t.Error("Verified() should return a copy")
	}
	if !IsVerified(sigUSD(t)) || IsVerified(types.TokenID{1}) {
		t.Error("IsVerified mismatch")
	}
}

func TestParseRegistry_Errors(t *testing.T) {
	tests := map[string]string{
		"bad id":    "[[asset]]\nid = \"zz\"\nname = \"X\"\n",
		"no name":   "[[asset]]\nid = \"" + sigUSDHex + "\"\n",
		"duplicate": "[[asset]]\nid = \"" + sigUSDHex + "\"\nname = \"A\"\n[[asset]]\nid = \"" + sigUSDHex + "\"\nname = \"B\"\n",
		"unknown":   "[[asset]]\nid = \"" + sigUSDHex + "\"\nname = \"A\"\nsymbol = \"A\"\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRegistry(data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseMetadata(t *testing.T) {
	url := "ipfs://artwork"
	tests := []struct {
		name string
		regs register.Registers
		want Metadata
	}{
		{"plain", nil, Metadata{Name: "Tok", Decimals: 4}},
		{"picture", register.Registers{
			register.R7: "0e020101",
			register.R9: register.EncodeBytes([]byte(url)),
		}, Metadata{Name: "Tok", Decimals: 4, Type: PictureArtwork, URL: url}},
		{"audio ignores R9", register.Registers{
			register.R7: "0e020102",
			register.R9: register.EncodeBytes([]byte(url)),
		}, Metadata{Name: "Tok", Decimals: 4, Type: AudioArtwork}},
		{"long R7 is not a type", register.Registers{register.R7: "0e03010203"}, Metadata{Name: "Tok", Decimals: 4}},
		{"bad R9", register.Registers{register.R7: "0e020101", register.R9: "05"}, Metadata{Name: "Tok", Decimals: 4, Type: PictureArtwork}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMetadata("Tok", 4, tt.regs); got != tt.want {
				t.Errorf("ParseMetadata() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMetadataSet(t *testing.T) {
	set := NewMetadataSet()
	if set.Decimals(types.NativeToken) != 9 || set.Decimals(sigUSD(t)) != 2 {
		t.Error("set should be seeded with verified assets")
	}
	if set.Decimals(types.TokenID{7}) != 0 {
		t.Error("unknown token should have 0 decimals")
	}

	a, b := types.TokenID{1}, types.TokenID{2}
	missing := set.Missing([]types.TokenID{a, sigUSD(t), a, b})
	if len(missing) != 2 || missing[0] != a || missing[1] != b {
		t.Errorf("Missing() = %v", missing)
	}

	set.Merge(MetadataSet{a: {Name: "A", Decimals: 3}})
	if m, ok := set.Get(a); !ok || m.Name != "A" {
		t.Errorf("Get after Merge = %+v, %v", m, ok)
	}
}

func TestDecimalize(t *testing.T) {
	tests := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{1_050_000_000, 9, "1.05"},
		{12345, 2, "123.45"},
		{7, 0, "7"},
		{18_446_744_073_709_551_615, 9, "18446744073.709551615"},
	}
	for _, tt := range tests {
		got := Decimalize(tt.amount, tt.decimals)
		if got.String() != tt.want {
			t.Errorf("Decimalize(%d, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
		}
		if back := Undecimalize(got, tt.decimals); back != tt.amount {
			t.Errorf("Undecimalize(%s) = %d, want %d", got, back, tt.amount)
		}
	}
	if got := Undecimalize(decimal.RequireFromString("1.239"), 2); got != 123 {
		t.Errorf("Undecimalize truncation = %d, want 123", got)
	}
}
