package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"gorm.io/gorm"
)

// Payment is an append-only payment event against one invoice. A soft-deleted
// payment is void and never counts toward any aggregate.
type Payment struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	DeletedAt     gorm.DeletedAt       `gorm:"index" json:"-"`
	InvoiceID     uint                 `gorm:"not null;index" json:"invoice_id"`
	Amount        decimal.Decimal      `gorm:"type:decimal(14,2);not null" json:"amount"`
	PaymentMethod ledger.PaymentMethod `gorm:"size:20;not null" json:"payment_method"`
	PaymentDate   time.Time            `gorm:"not null" json:"payment_date"`
	Notes         string               `gorm:"type:text" json:"notes"`
}

// TableName overrides the table name
func (Payment) TableName() string {
	return "payments"
}

// Amounts extracts the amounts of the given payments.
func Amounts(payments []Payment) []decimal.Decimal {
	out := make([]decimal.Decimal, len(payments))
	for i, p := range payments {
		out[i] = p.Amount
	}
	return out
}
