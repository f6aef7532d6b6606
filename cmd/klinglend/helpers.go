package main

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-lend/internal/loan"
	"github.com/Klingon-tech/klingnet-lend/pkg/register"
	"github.com/Klingon-tech/klingnet-lend/pkg/tx"
	"github.com/shopspring/decimal"
)

// parseAmount converts a decimal amount in whole units to base units.
func parseAmount(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	if -d.Exponent() > int32(decimals) && !d.Equal(d.Truncate(int32(decimals))) {
		return 0, fmt.Errorf("too many decimal places in %q (max %d)", s, decimals)
	}
	base := d.Shift(int32(decimals)).BigInt()
	if !base.IsUint64() {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return base.Uint64(), nil
}

// matured reports whether a bond can be liquidated at height.
func matured(bond tx.Box, height uint32) (bool, error) {
	maturity, err := bond.Registers.Int(register.R7, loan.OpLiquidate)
	if err != nil {
		return false, err
	}
	return int64(height) >= int64(maturity), nil
}
