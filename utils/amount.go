package utils

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits the decimal(20,4) money
// columns keep.
const AmountScale = 4

// MaxAmount is the smallest magnitude a decimal(20,4) column cannot hold.
var MaxAmount = decimal.New(1, 20-AmountScale)

// CheckAmount rejects money the store would round or overflow.
func CheckAmount(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(AmountScale)) {
		return NewValidationError("%s must have at most %d decimal places, got %s", field, AmountScale, d.String())
	}
	if d.Abs().GreaterThanOrEqual(MaxAmount) {
		return NewValidationError("%s must be less than %s", field, MaxAmount.String())
	}
	return nil
}

// ParseAmount accepts operator-typed amounts such as "20,000", "$ 1,234.50"
// or "-300" and returns the decimal value. Used by the CLI flags.
func ParseAmount(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	// Keep digits and '.' only.
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero, errors.New("invalid amount")
	}
	if neg {
		clean = "-" + clean
	}
	return decimal.NewFromString(clean)
}
