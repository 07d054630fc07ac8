package sales

import "github.com/shopspring/decimal"

// CalculateChange returns received - total when the payment covers the
// total, and zero otherwise. It never returns a negative amount and never
// fails; underpayment floors at zero instead of erroring.
func CalculateChange(total, received decimal.Decimal) decimal.Decimal {
	if received.GreaterThanOrEqual(total) {
		return received.Sub(total)
	}
	return decimal.Zero
}
