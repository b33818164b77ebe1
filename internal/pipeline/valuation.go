package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/wallet-dashboard/internal/types"
)

var hundred = decimal.NewFromInt(100)

// percentScale is the number of fractional digits kept in a portfolio share
const percentScale = 10

// parseAmount reads a decimal string; absent or malformed values report false.
func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// HoldingValue is balance * price, or zero when either is absent or unparseable.
func HoldingValue(h types.TokenHolding) decimal.Decimal {
	balance, ok := parseAmount(h.Balance)
	if !ok {
		return decimal.Zero
	}
	price, ok := parseAmount(h.Price)
	if !ok {
		return decimal.Zero
	}
	return balance.Mul(price)
}

// Valuate returns a copy of holdings with USDValue and Percentage filled in.
// Shares are computed against the sum of all values; a zero total yields 0 everywhere.
func Valuate(holdings []types.TokenHolding) []types.TokenHolding {
	out := make([]types.TokenHolding, len(holdings))
	total := decimal.Zero
	for i, h := range holdings {
		out[i] = h
		out[i].USDValue = HoldingValue(h)
		total = total.Add(out[i].USDValue)
	}

	for i := range out {
		if total.IsPositive() {
			out[i].Percentage = out[i].USDValue.Mul(hundred).DivRound(total, percentScale)
		} else {
			out[i].Percentage = decimal.Zero
		}
	}
	return out
}

// TotalValue sums the USD values of already valuated holdings.
func TotalValue(holdings []types.TokenHolding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.USDValue)
	}
	return total
}
