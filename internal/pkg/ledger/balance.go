package ledger

import (
	"github.com/shopspring/decimal"
)

// ProjectBalance computes the outstanding balance of an order as
// max(0, total - successfulSum). The clamp means over-payment settles an
// order at zero instead of going negative. Balance is always derived this
// way from the current successful application set; it is never stored.
func ProjectBalance(total, successfulSum decimal.Decimal) decimal.Decimal {
	balance := total.Sub(successfulSum)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}
