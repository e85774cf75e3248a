package services

import (
	"errors"
	"fmt"

	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockInvoice loads a live invoice and holds its row lock until the
// surrounding transaction ends. Concurrent mutations of the same invoice
// therefore run one after another.
func lockInvoice(tx *gorm.DB, id uint, inv *models.Invoice) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: id %d", ledger.ErrInvoiceNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load invoice %d: %w", id, err)
	}
	return nil
}

// livePayments reads every non-voided payment of an invoice straight from
// the database, never from a cached aggregate.
func livePayments(tx *gorm.DB, invoiceID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := tx.Where("invoice_id = ?", invoiceID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments for invoice %d: %w", invoiceID, err)
	}
	return payments, nil
}

// reconcileInvoice re-derives totals and payment state from the invoice's
// items and its freshly read payments, then persists the result. Every write
// path that touches items or payments ends here.
func reconcileInvoice(tx *gorm.DB, inv *models.Invoice) error {
	payments, err := livePayments(tx, inv.ID)
	if err != nil {
		return err
	}

	summary, err := ledger.Reconcile(inv.LineItems(), models.Amounts(payments))
	if err != nil {
		return err
	}
	inv.ApplySummary(summary)

	if err := tx.Save(inv).Error; err != nil {
		return fmt.Errorf("failed to save invoice %d: %w", inv.ID, err)
	}
	return nil
}
