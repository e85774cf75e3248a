package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"gorm.io/gorm"
)

type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
	Name      string          `gorm:"size:255;not null;index" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	GSTRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"gst_rate"`
	Stock     *int            `json:"stock"`
	Unit      string          `gorm:"size:20" json:"unit"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// Snapshot copies the pricing fields a new invoice line needs.
func (p Product) Snapshot() ledger.ProductSnapshot {
	return ledger.ProductSnapshot{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price,
		TaxRate: p.GSTRate,
	}
}
