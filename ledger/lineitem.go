package ledger

import (
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the catalog data copied onto a line when it is added.
// It is deliberately detached from the live product: later renames or price
// changes in the catalog never flow back into existing invoices.
type ProductSnapshot struct {
	ID      uint
	Name    string
	Price   decimal.Decimal
	TaxRate decimal.Decimal
}

// LineItem is one product line on an invoice.
type LineItem struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// LineEdit carries the optional fields of an edit. Nil fields keep their prior value.
type LineEdit struct {
	Quantity  *decimal.Decimal
	UnitPrice *decimal.Decimal
}

// NewLineItem snapshots a product at the given quantity.
func NewLineItem(p ProductSnapshot, quantity decimal.Decimal) (LineItem, error) {
	if err := validateQuantity(quantity); err != nil {
		return LineItem{}, err
	}
	if err := validatePrice(p.Price); err != nil {
		return LineItem{}, err
	}
	if p.TaxRate.IsNegative() {
		return LineItem{}, NewValidationError("tax_rate", p.TaxRate.String(), ErrInvalidTaxRate)
	}

	return LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		TaxRate:     p.TaxRate,
		LineTotal:   lineTotal(quantity, p.Price),
	}, nil
}

// AddLine appends a new line for the product. Repeated adds of the same product
// produce separate lines; lines are never merged.
func AddLine(items []LineItem, p ProductSnapshot, quantity decimal.Decimal) ([]LineItem, error) {
	line, err := NewLineItem(p, quantity)
	if err != nil {
		return nil, err
	}
	out := make([]LineItem, 0, len(items)+1)
	out = append(out, items...)
	return append(out, line), nil
}

// EditLine updates quantity and/or unit price of the line at index and
// re-derives its total. The tax rate of a line cannot be edited.
func EditLine(items []LineItem, index int, edit LineEdit) ([]LineItem, error) {
	if index < 0 || index >= len(items) {
		return nil, NewValidationError("index", index, ErrIndexOutOfRange)
	}

	line := items[index]
	if edit.Quantity != nil {
		if err := validateQuantity(*edit.Quantity); err != nil {
			return nil, err
		}
		line.Quantity = *edit.Quantity
	}
	if edit.UnitPrice != nil {
		if err := validatePrice(*edit.UnitPrice); err != nil {
			return nil, err
		}
		line.UnitPrice = *edit.UnitPrice
	}
	line.LineTotal = lineTotal(line.Quantity, line.UnitPrice)

	out := make([]LineItem, len(items))
	copy(out, items)
	out[index] = line
	return out, nil
}

// RemoveLine drops the line at index.
func RemoveLine(items []LineItem, index int) ([]LineItem, error) {
	if index < 0 || index >= len(items) {
		return nil, NewValidationError("index", index, ErrIndexOutOfRange)
	}
	out := make([]LineItem, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...), nil
}

// RederiveLines returns a copy of items with every line total recomputed from
// its quantity and unit price.
func RederiveLines(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		it.LineTotal = lineTotal(it.Quantity, it.UnitPrice)
		out[i] = it
	}
	return out
}

func lineTotal(quantity, price decimal.Decimal) decimal.Decimal {
	return Round(quantity.Mul(price))
}

func validateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return NewValidationError("quantity", q.String(), ErrInvalidQuantity)
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return NewValidationError("unit_price", p.String(), ErrInvalidPrice)
	}
	return nil
}
