package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is the display symbol for wallet amounts
const CurrencySymbol = "₦"

// FormatMoney renders an amount as ₦1,234.56 (two decimals, thousands grouped)
func FormatMoney(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	fixed := amount.StringFixedBank(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + CurrencySymbol + b.String() + "." + frac
}

// PositiveAmount reports whether amount is strictly greater than zero
func PositiveAmount(amount decimal.Decimal) bool {
	return amount.GreaterThan(decimal.Zero)
}
