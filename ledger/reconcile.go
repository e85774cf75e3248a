package ledger

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Summary is every derived monetary field of an invoice.
type Summary struct {
	Totals
	Settlement
}

// Reconcile is the single reducer behind every invoice mutation: it derives
// the aggregates from items and then settles them against the payment history.
// Item edits and payment creation both go through here, so totals and payment
// status can never be updated one without the other.
func Reconcile(items []LineItem, payments []decimal.Decimal) (Summary, error) {
	if len(items) == 0 {
		return Summary{}, ErrEmptyItems
	}
	totals := Recompute(items)
	return Summary{
		Totals:     totals,
		Settlement: Settle(totals.TotalAmount, payments),
	}, nil
}

// Verify recomputes the summary and compares it with what was stored.
// A mismatch means some write path skipped Reconcile.
func Verify(stored Summary, items []LineItem, payments []decimal.Decimal) error {
	expected, err := Reconcile(items, payments)
	if err != nil {
		return err
	}

	for i, it := range items {
		want := lineTotal(it.Quantity, it.UnitPrice)
		if !it.LineTotal.Equal(want) {
			return &InconsistencyError{
				Field:    "items[" + strconv.Itoa(i) + "].line_total",
				Stored:   it.LineTotal.StringFixed(MoneyScale),
				Expected: want.StringFixed(MoneyScale),
			}
		}
	}

	checks := []struct {
		field          string
		stored, expect decimal.Decimal
	}{
		{"subtotal", stored.Subtotal, expected.Subtotal},
		{"tax_amount", stored.TaxAmount, expected.TaxAmount},
		{"total_amount", stored.TotalAmount, expected.TotalAmount},
		{"paid_amount", stored.PaidAmount, expected.PaidAmount},
		{"balance_amount", stored.BalanceAmount, expected.BalanceAmount},
	}
	for _, c := range checks {
		if !c.stored.Equal(c.expect) {
			return &InconsistencyError{Field: c.field, Stored: c.stored.StringFixed(MoneyScale), Expected: c.expect.StringFixed(MoneyScale)}
		}
	}
	if stored.Status != expected.Status {
		return &InconsistencyError{Field: "payment_status", Stored: string(stored.Status), Expected: string(expected.Status)}
	}

	return nil
}
