package domain

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Decimals is the implied decimal precision of all token amounts.
const Decimals = 18

// NewAmount builds an amount from a raw uint64 unit count.
func NewAmount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// ParseAmount decodes a base-10 string into an amount.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// MustParseAmount is ParseAmount that panics on error. For fixtures and tests.
func MustParseAmount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatAmount renders an amount as a base-10 string. Nil renders as "0".
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// AmountToFloat converts raw units to whole-token units for reporting and
// metrics. Lossy above 2^53 raw units; records keep the exact string form.
func AmountToFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f := new(uint256.Int).Set(v).Float64()
	return f / 1e18
}
