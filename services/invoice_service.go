package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/logger"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceSequenceName = "invoice"

// InvoiceService owns every write to invoices. All item mutations run inside
// a transaction holding the invoice row lock and finish with reconcileInvoice.
type InvoiceService struct {
	db     *gorm.DB
	cache  StatsCache
	prefix string
	log    zerolog.Logger
	now    func() time.Time
}

func NewInvoiceService(db *gorm.DB, cache StatsCache, prefix string) *InvoiceService {
	if cache == nil {
		cache = noopCache{}
	}
	if prefix == "" {
		prefix = "INV"
	}
	return &InvoiceService{
		db:     db,
		cache:  cache,
		prefix: prefix,
		log:    logger.WithComponent("invoice-service"),
		now:    time.Now,
	}
}

// DraftItem requests a new line for a catalog product.
type DraftItem struct {
	ProductID uint
	Quantity  decimal.Decimal
}

// InvoiceDraft is the input of CreateInvoice. A zero IssueDate means today.
type InvoiceDraft struct {
	CustomerID uint
	IssueDate  time.Time
	Items      []DraftItem
	Notes      string
}

// ItemUpdate is one entry of a full item-list replacement. With Line set it
// edits that existing line, keeping its name and tax snapshot. Without Line it
// adds a new line from the catalog.
type ItemUpdate struct {
	Line      *int
	ProductID uint
	Quantity  *decimal.Decimal
	UnitPrice *decimal.Decimal
}

// InvoiceUpdate is the input of UpdateInvoiceItems. A nil Items leaves the
// lines untouched; an empty non-nil Items is rejected.
type InvoiceUpdate struct {
	Items     []ItemUpdate
	Notes     *string
	IssueDate *time.Time
}

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	Search     string
	Status     ledger.PaymentStatus
	CustomerID uint
}

func (s *InvoiceService) CreateInvoice(ctx context.Context, draft InvoiceDraft) (*models.Invoice, error) {
	if draft.CustomerID == 0 {
		return nil, ledger.NewValidationError("customer_id", nil, fmt.Errorf("%w: customer is required", ledger.ErrValidation))
	}
	if len(draft.Items) == 0 {
		return nil, ledger.ErrEmptyItems
	}

	issueDate := draft.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now()
	}

	var inv models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, draft.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ledger.ErrCustomerNotFound, draft.CustomerID)
			}
			return fmt.Errorf("failed to load customer: %w", err)
		}

		ids := make([]uint, len(draft.Items))
		for i, it := range draft.Items {
			ids[i] = it.ProductID
		}
		products, err := loadProducts(tx, ids)
		if err != nil {
			return err
		}

		var items []ledger.LineItem
		for _, it := range draft.Items {
			items, err = ledger.AddLine(items, products[it.ProductID].Snapshot(), it.Quantity)
			if err != nil {
				return err
			}
		}

		summary, err := ledger.Reconcile(items, nil)
		if err != nil {
			return err
		}

		number, err := s.nextInvoiceNumber(tx)
		if err != nil {
			return err
		}

		inv = models.Invoice{
			InvoiceNumber: number,
			CustomerID:    customer.ID,
			CustomerName:  customer.Name,
			IssueDate:     datatypes.Date(issueDate),
			Items:         items,
			Notes:         draft.Notes,
		}
		inv.ApplySummary(summary)

		if err := tx.Create(&inv).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Uint("invoice_id", inv.ID).
		Str("invoice_number", inv.InvoiceNumber).
		Str("total_amount", inv.TotalAmount.StringFixed(ledger.MoneyScale)).
		Msg("Invoice created")
	return &inv, nil
}

// UpdateInvoiceItems replaces the item list and optionally notes and issue
// date. Payments already received are left untouched; balance and status are
// re-derived against them.
func (s *InvoiceService) UpdateInvoiceItems(ctx context.Context, id uint, update InvoiceUpdate) (*models.Invoice, error) {
	if update.Items != nil && len(update.Items) == 0 {
		return nil, ledger.ErrEmptyItems
	}

	return s.mutate(ctx, id, "update", func(tx *gorm.DB, inv *models.Invoice) error {
		if update.Items != nil {
			items, err := applyItemUpdates(tx, inv.LineItems(), update.Items)
			if err != nil {
				return err
			}
			inv.Items = items
		}
		if update.Notes != nil {
			inv.Notes = *update.Notes
		}
		if update.IssueDate != nil {
			inv.IssueDate = datatypes.Date(*update.IssueDate)
		}
		return nil
	})
}

// AddItem appends a catalog product as a new line.
func (s *InvoiceService) AddItem(ctx context.Context, id uint, item DraftItem) (*models.Invoice, error) {
	return s.mutate(ctx, id, "add_item", func(tx *gorm.DB, inv *models.Invoice) error {
		products, err := loadProducts(tx, []uint{item.ProductID})
		if err != nil {
			return err
		}
		items, err := ledger.AddLine(inv.LineItems(), products[item.ProductID].Snapshot(), item.Quantity)
		if err != nil {
			return err
		}
		inv.Items = items
		return nil
	})
}

// EditItem changes quantity and/or unit price of one line.
func (s *InvoiceService) EditItem(ctx context.Context, id uint, index int, edit ledger.LineEdit) (*models.Invoice, error) {
	return s.mutate(ctx, id, "edit_item", func(tx *gorm.DB, inv *models.Invoice) error {
		items, err := ledger.EditLine(inv.LineItems(), index, edit)
		if err != nil {
			return err
		}
		inv.Items = items
		return nil
	})
}

// RemoveItem drops one line. Removing the last line is rejected.
func (s *InvoiceService) RemoveItem(ctx context.Context, id uint, index int) (*models.Invoice, error) {
	return s.mutate(ctx, id, "remove_item", func(tx *gorm.DB, inv *models.Invoice) error {
		items, err := ledger.RemoveLine(inv.LineItems(), index)
		if err != nil {
			return err
		}
		inv.Items = items
		return nil
	})
}

// GetInvoice loads a live invoice and checks that its stored aggregates still
// match its items and payments.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	db := s.db.WithContext(ctx)

	var inv models.Invoice
	if err := db.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ledger.ErrInvoiceNotFound, id)
		}
		return nil, fmt.Errorf("failed to load invoice %d: %w", id, err)
	}

	payments, err := livePayments(db, inv.ID)
	if err != nil {
		return nil, err
	}
	if err := ledger.Verify(inv.Summary(), inv.LineItems(), models.Amounts(payments)); err != nil {
		s.log.Error().Err(err).Uint("invoice_id", inv.ID).Msg("Stored invoice aggregates disagree with items")
		return nil, fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, err)
	}
	return &inv, nil
}

// ListInvoices returns live invoices, newest first, and the unpaginated count.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter, scopes ...func(*gorm.DB) *gorm.DB) ([]models.Invoice, int64, error) {
	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Invoice{})
		if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(invoice_number) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
		}
		if filter.Status != "" {
			q = q.Where("payment_status = ?", filter.Status)
		}
		if filter.CustomerID != 0 {
			q = q.Where("customer_id = ?", filter.CustomerID)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	invoices := make([]models.Invoice, 0)
	if err := query().Scopes(scopes...).Order("created_at DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

// DeleteInvoice soft-deletes the invoice and voids its payments in the same
// transaction. Voided payments stay in the table for audit but are excluded
// from every aggregate.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uint) error {
	var voided int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := lockInvoice(tx, id, &inv); err != nil {
			return err
		}

		res := tx.Where("invoice_id = ?", inv.ID).Delete(&models.Payment{})
		if res.Error != nil {
			return fmt.Errorf("failed to void payments of invoice %d: %w", id, res.Error)
		}
		voided = res.RowsAffected

		if err := tx.Delete(&inv).Error; err != nil {
			return fmt.Errorf("failed to delete invoice %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Uint("invoice_id", id).Int64("voided_payments", voided).Msg("Invoice deleted")
	return nil
}

// RecomputeReport summarizes a RecomputeAll sweep.
type RecomputeReport struct {
	Checked  int
	Drifted  []string
	Repaired int
	Failed   map[string]string
}

// RecomputeAll verifies every live invoice and, with fix, re-reconciles the
// ones whose stored aggregates drifted.
func (s *InvoiceService) RecomputeAll(ctx context.Context, fix bool) (*RecomputeReport, error) {
	report := &RecomputeReport{Failed: map[string]string{}}

	db := s.db.WithContext(ctx)
	var batch []models.Invoice
	res := db.FindInBatches(&batch, 100, func(*gorm.DB, int) error {
		for i := range batch {
			inv := &batch[i]
			report.Checked++

			payments, err := livePayments(db, inv.ID)
			if err != nil {
				return err
			}
			verr := ledger.Verify(inv.Summary(), inv.LineItems(), models.Amounts(payments))
			if verr == nil {
				continue
			}
			report.Drifted = append(report.Drifted, inv.InvoiceNumber)
			s.log.Warn().Err(verr).Str("invoice_number", inv.InvoiceNumber).Msg("Invoice drift detected")

			if !fix {
				continue
			}
			if err := s.repair(ctx, inv.ID); err != nil {
				report.Failed[inv.InvoiceNumber] = err.Error()
				continue
			}
			report.Repaired++
		}
		return nil
	})
	if res.Error != nil {
		return report, fmt.Errorf("failed to scan invoices: %w", res.Error)
	}
	return report, nil
}

// repair re-derives line totals and aggregates of one invoice, then checks the
// stored result against a fresh read.
func (s *InvoiceService) repair(ctx context.Context, id uint) error {
	_, err := s.mutate(ctx, id, "recompute", func(_ *gorm.DB, inv *models.Invoice) error {
		inv.Items = ledger.RederiveLines(inv.LineItems())
		return nil
	})
	if err != nil {
		return err
	}
	_, err = s.GetInvoice(ctx, id)
	return err
}

// mutate runs fn against the locked invoice and reconciles afterwards.
func (s *InvoiceService) mutate(ctx context.Context, id uint, op string, fn func(tx *gorm.DB, inv *models.Invoice) error) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockInvoice(tx, id, &inv); err != nil {
			return err
		}
		if err := fn(tx, &inv); err != nil {
			return err
		}
		return reconcileInvoice(tx, &inv)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("op", op).
		Uint("invoice_id", inv.ID).
		Str("total_amount", inv.TotalAmount.StringFixed(ledger.MoneyScale)).
		Str("payment_status", string(inv.PaymentStatus)).
		Msg("Invoice reconciled")
	return &inv, nil
}

func (s *InvoiceService) nextInvoiceNumber(tx *gorm.DB) (string, error) {
	seq := models.InvoiceSequence{Name: invoiceSequenceName}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).FirstOrCreate(&seq).Error; err != nil {
		return "", fmt.Errorf("failed to read invoice sequence: %w", err)
	}
	seq.Value++
	if err := tx.Model(&seq).Update("value", seq.Value).Error; err != nil {
		return "", fmt.Errorf("failed to advance invoice sequence: %w", err)
	}
	return fmt.Sprintf("%s-%05d", s.prefix, seq.Value), nil
}

// loadProducts resolves every id or fails with ErrProductNotFound.
func loadProducts(tx *gorm.DB, ids []uint) (map[uint]models.Product, error) {
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: id %d", ledger.ErrProductNotFound, id)
		}
	}
	return byID, nil
}

func applyItemUpdates(tx *gorm.DB, existing []ledger.LineItem, updates []ItemUpdate) ([]ledger.LineItem, error) {
	var newIDs []uint
	for _, u := range updates {
		if u.Line == nil {
			newIDs = append(newIDs, u.ProductID)
		}
	}
	var products map[uint]models.Product
	if len(newIDs) > 0 {
		var err error
		if products, err = loadProducts(tx, newIDs); err != nil {
			return nil, err
		}
	}

	out := make([]ledger.LineItem, 0, len(updates))
	used := make(map[int]bool, len(existing))
	for i, u := range updates {
		field := fmt.Sprintf("items[%d]", i)

		if u.Line != nil {
			idx := *u.Line
			if used[idx] {
				return nil, ledger.NewValidationError(field+".line", idx, fmt.Errorf("%w: line referenced twice", ledger.ErrValidation))
			}
			edited, err := ledger.EditLine(existing, idx, ledger.LineEdit{Quantity: u.Quantity, UnitPrice: u.UnitPrice})
			if err != nil {
				return nil, err
			}
			line := edited[idx]
			if u.ProductID != 0 && u.ProductID != line.ProductID {
				return nil, ledger.NewValidationError(field+".product_id", u.ProductID, fmt.Errorf("%w: product does not match line", ledger.ErrValidation))
			}
			used[idx] = true
			out = append(out, line)
			continue
		}

		if u.Quantity == nil {
			return nil, ledger.NewValidationError(field+".quantity", nil, ledger.ErrInvalidQuantity)
		}
		var err error
		out, err = ledger.AddLine(out, products[u.ProductID].Snapshot(), *u.Quantity)
		if err != nil {
			return nil, err
		}
		if u.UnitPrice != nil {
			if out, err = ledger.EditLine(out, len(out)-1, ledger.LineEdit{UnitPrice: u.UnitPrice}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
