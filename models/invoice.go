package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoice stores its line items as a JSON snapshot. Items are values copied
// from the catalog at add-time, never joined back to products.
type Invoice struct {
	ID            uint                                 `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time                            `json:"created_at"`
	UpdatedAt     time.Time                            `json:"updated_at"`
	DeletedAt     gorm.DeletedAt                       `gorm:"index" json:"-"`
	InvoiceNumber string                               `gorm:"uniqueIndex;size:50;not null" json:"invoice_number"`
	CustomerID    uint                                 `gorm:"not null;index" json:"customer_id"`
	CustomerName  string                               `gorm:"size:255;not null" json:"customer_name"`
	IssueDate     datatypes.Date                       `json:"issue_date"`
	Items         datatypes.JSONSlice[ledger.LineItem] `gorm:"not null" json:"items"`
	Notes         string                               `gorm:"type:text" json:"notes"`
	Subtotal      decimal.Decimal                      `gorm:"type:decimal(14,2);not null;default:0" json:"subtotal"`
	TaxAmount     decimal.Decimal                      `gorm:"type:decimal(14,2);not null;default:0" json:"tax_amount"`
	TotalAmount   decimal.Decimal                      `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	PaidAmount    decimal.Decimal                      `gorm:"type:decimal(14,2);not null;default:0" json:"paid_amount"`
	BalanceAmount decimal.Decimal                      `gorm:"type:decimal(14,2);not null;default:0" json:"balance_amount"`
	PaymentStatus ledger.PaymentStatus                 `gorm:"size:20;not null;default:'unpaid';index" json:"payment_status"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

// Summary returns the stored derived fields.
func (inv *Invoice) Summary() ledger.Summary {
	return ledger.Summary{
		Totals: ledger.Totals{
			Subtotal:    inv.Subtotal,
			TaxAmount:   inv.TaxAmount,
			TotalAmount: inv.TotalAmount,
		},
		Settlement: ledger.Settlement{
			PaidAmount:    inv.PaidAmount,
			BalanceAmount: inv.BalanceAmount,
			Status:        inv.PaymentStatus,
		},
	}
}

// ApplySummary overwrites every derived field at once.
func (inv *Invoice) ApplySummary(s ledger.Summary) {
	inv.Subtotal = s.Subtotal
	inv.TaxAmount = s.TaxAmount
	inv.TotalAmount = s.TotalAmount
	inv.PaidAmount = s.PaidAmount
	inv.BalanceAmount = s.BalanceAmount
	inv.PaymentStatus = s.Status
}

// LineItems returns the items as a plain slice.
func (inv *Invoice) LineItems() []ledger.LineItem {
	return []ledger.LineItem(inv.Items)
}
