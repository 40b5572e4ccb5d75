package mathutil

import (
	"errors"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxPrecision is the highest number of decimals an asset can declare.
const MaxPrecision = 9

var (
	// ErrInvalidAmount is returned when a UI amount is not strictly positive or
	// its conversion does not fit a uint64 quantity of base units.
	ErrInvalidAmount = errors.New("amount must be positive and fit in 64 bits")
	// ErrInvalidPrecision is returned for precisions outside [0, MaxPrecision].
	ErrInvalidPrecision = errors.New("precision must be in range [0, 9]")
	// ErrMalformedAmount is returned when a UI amount string can't be parsed.
	ErrMalformedAmount = errors.New("malformed decimal amount")
)

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// ParseUIAmount parses a human-entered decimal string like "12.5". Exponent
// notation is refused so that only plain positional decimals get through.
func ParseUIAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrMalformedAmount
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrMalformedAmount
	}
	return amount, nil
}

// ToBaseUnits converts a UI amount into integer base units given the asset
// precision, computing floor(amount * 10^precision). Fractional digits beyond
// the precision are truncated, never rounded up.
func ToBaseUnits(amount decimal.Decimal, precision uint) (uint64, error) {
	if precision > MaxPrecision {
		return 0, ErrInvalidPrecision
	}
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	base := amount.Shift(int32(precision)).Floor().BigInt()
	if base.Sign() <= 0 || base.Cmp(maxUint64) > 0 {
		return 0, ErrInvalidAmount
	}
	return base.Uint64(), nil
}

// ToUIAmount converts an amount of base units into its exact decimal
// representation, base / 10^precision.
func ToUIAmount(base uint64, precision uint) (decimal.Decimal, error) {
	if precision > MaxPrecision {
		return decimal.Zero, ErrInvalidPrecision
	}
	return decimal.NewFromBigInt(
		new(big.Int).SetUint64(base), -int32(precision),
	), nil
}

// FormatUIAmount returns the UI amount as a string with exactly precision
// fractional digits.
func FormatUIAmount(base uint64, precision uint) string {
	amount, err := ToUIAmount(base, precision)
	if err != nil {
		return ""
	}
	return amount.StringFixed(int32(precision))
}
