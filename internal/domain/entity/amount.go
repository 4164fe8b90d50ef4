package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnitDigits is the number of fractional digits between major and minor units.
const MinorUnitDigits = 2

// ParseAmount converts a decimal string in major units ("7.50") into minor units (750).
// Amounts that are not strictly positive, carry sub-minor-unit precision or
// do not fit in an int64 are rejected.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}

	minor := d.Shift(MinorUnitDigits)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, s, MinorUnitDigits)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	if !minor.IsPositive() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return minor.IntPart(), nil
}

// ParseBalance is ParseAmount for seed values, where zero is allowed.
func ParseBalance(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}

	minor := d.Shift(MinorUnitDigits)
	if !minor.IsInteger() || minor.IsNegative() || !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return minor.IntPart(), nil
}

// FormatAmount renders minor units as a fixed-point major-unit string.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -MinorUnitDigits).StringFixed(MinorUnitDigits)
}
