package models

// InvoiceSequence is the counter behind invoice numbers. Numbers are never
// reused, even after the invoice that took one is deleted.
type InvoiceSequence struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value uint   `gorm:"not null;default:0"`
}

// TableName overrides the table name
func (InvoiceSequence) TableName() string {
	return "invoice_sequences"
}
