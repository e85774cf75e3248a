package ledger

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits kept on every stored amount.
const MoneyScale = 2

var hundred = decimal.NewFromInt(100)

// Round rounds half-up to MoneyScale places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Sum adds the given amounts without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// NormalizeAmount rounds a payment amount to MoneyScale places and rejects
// anything that is not strictly positive afterwards.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := Round(amount)
	if !rounded.IsPositive() {
		return decimal.Zero, NewValidationError("amount", amount.String(), ErrInvalidAmount)
	}
	return rounded, nil
}
