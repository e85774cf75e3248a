package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"gorm.io/gorm"
)

// InvoicePrint is everything a printable invoice needs in one response.
type InvoicePrint struct {
	Invoice       *models.Invoice         `json:"invoice"`
	Customer      *models.Customer        `json:"customer"`
	Company       *models.CompanySettings `json:"company"`
	AmountInWords string                  `json:"amount_in_words"`
}

// PrintView loads a verified invoice together with the customer record and
// the company settings. Deleted customers still resolve so old invoices print.
func (s *InvoiceService) PrintView(ctx context.Context, id uint) (*InvoicePrint, error) {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var customer models.Customer
	if err := db.Unscoped().First(&customer, inv.CustomerID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load customer: %w", err)
		}
		customer = models.Customer{ID: inv.CustomerID, Name: inv.CustomerName}
	}

	company, err := LoadCompanySettings(db)
	if err != nil {
		return nil, err
	}

	return &InvoicePrint{
		Invoice:       inv,
		Customer:      &customer,
		Company:       company,
		AmountInWords: AmountInWords(inv.TotalAmount),
	}, nil
}

// LoadCompanySettings returns the settings row, creating an empty one on first use.
func LoadCompanySettings(db *gorm.DB) (*models.CompanySettings, error) {
	settings := models.CompanySettings{ID: models.CompanySettingsID}
	if err := db.FirstOrCreate(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load company settings: %w", err)
	}
	return &settings, nil
}

// AmountInWords spells the whole part of an amount and appends the
// fractional part in hundredths, e.g. "Three hundred fifty-four and 50/100 only".
func AmountInWords(amount decimal.Decimal) string {
	amount = ledger.Round(amount.Abs())
	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Shift(ledger.MoneyScale).IntPart()

	words := num2words.Convert(int(whole))
	if words != "" {
		words = strings.ToUpper(words[:1]) + words[1:]
	}
	if cents == 0 {
		return words + " only"
	}
	return fmt.Sprintf("%s and %02d/100 only", words, cents)
}
