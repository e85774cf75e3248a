package ledger

import "github.com/shopspring/decimal"

// Totals are the monetary aggregates derived from an invoice's items.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Recompute derives subtotal, tax and total from the items.
//
// Tax is computed per line at that line's rate and summed unrounded; only the
// aggregate is rounded, so many small lines do not accumulate rounding drift.
func Recompute(items []LineItem) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
		tax = tax.Add(it.LineTotal.Mul(it.TaxRate).Div(hundred))
	}
	subtotal = Round(subtotal)
	tax = Round(tax)

	return Totals{
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal.Add(tax),
	}
}
