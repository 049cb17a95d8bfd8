// Package money holds the integer-cent currency helpers shared by the
// estimate engine and the HTTP layer. Amounts never travel as float dollars.
package money

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`^(\d{1,3}(,\d{3})+|\d+)?(\.\d{0,2})?$`)

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ParseCurrencyToCents converts a display string such as "12.50", "$1,200" or
// ".5" into integer cents. It reports false for malformed input (non numeric,
// negative, more than two fractional digits, beyond int64 cents) so callers
// can keep the previous value instead of failing.
func ParseCurrencyToCents(value string) (int64, bool) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "$")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" || trimmed == "." {
		return 0, false
	}
	if !amountPattern.MatchString(trimmed) {
		return 0, false
	}
	plain := strings.ReplaceAll(trimmed, ",", "")
	if strings.HasSuffix(plain, ".") {
		plain += "0"
	}
	if strings.HasPrefix(plain, ".") {
		plain = "0" + plain
	}
	amount, err := decimal.NewFromString(plain)
	if err != nil {
		return 0, false
	}
	cents := amount.Shift(2)
	if cents.GreaterThan(maxCents) {
		return 0, false
	}
	return cents.IntPart(), true
}

// FormatCurrency renders cents as a US dollar string, e.g. 123450 -> "$1,234.50".
func FormatCurrency(cents int64) string {
	negative := cents < 0
	fixed := decimal.New(cents, -2).Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	b.WriteString(groupThousands(whole))
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Normalize returns the canonical display form of a currency string.
func Normalize(value string) (string, bool) {
	cents, ok := ParseCurrencyToCents(value)
	if !ok {
		return "", false
	}
	return FormatCurrency(cents), true
}

// MulRound returns round(quantity * cents) using exact decimal arithmetic and
// half-away-from-zero rounding. Products outside int64 saturate at the
// nearest bound.
func MulRound(quantity float64, cents int64) int64 {
	product := decimal.NewFromFloat(quantity).Mul(decimal.NewFromInt(cents)).Round(0)
	switch {
	case product.GreaterThan(maxCents):
		return math.MaxInt64
	case product.LessThan(minCents):
		return math.MinInt64
	}
	return product.IntPart()
}

// ApplyRate returns round(cents * rate), the tax amount for a subtotal.
func ApplyRate(cents int64, rate float64) int64 {
	return MulRound(rate, cents)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
