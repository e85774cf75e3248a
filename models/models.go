package models

// All lists every model managed by migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Product{},
		&Invoice{},
		&Payment{},
		&CompanySettings{},
		&InvoiceSequence{},
	}
}
