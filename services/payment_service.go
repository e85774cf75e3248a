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
	"gorm.io/gorm"
)

type PaymentService struct {
	db    *gorm.DB
	cache StatsCache
	log   zerolog.Logger
	now   func() time.Time
}

func NewPaymentService(db *gorm.DB, cache StatsCache) *PaymentService {
	if cache == nil {
		cache = noopCache{}
	}
	return &PaymentService{
		db:    db,
		cache: cache,
		log:   logger.WithComponent("payment-service"),
		now:   time.Now,
	}
}

// NewPayment is the input of CreatePayment.
type NewPayment struct {
	InvoiceID uint
	Amount    decimal.Decimal
	Method    ledger.PaymentMethod
	Notes     string
}

// PaymentView is a live payment joined with its invoice's identity.
type PaymentView struct {
	models.Payment
	InvoiceNumber string `json:"invoice_number"`
	CustomerName  string `json:"customer_name"`
}

// PaymentFilter narrows ListPayments.
type PaymentFilter struct {
	Search string
	Method ledger.PaymentMethod
}

// CreatePayment appends a payment and re-derives the invoice's paid amount,
// balance and status from a fresh read of all its payments. Amounts above the
// outstanding balance are accepted; the balance is floored at zero.
func (s *PaymentService) CreatePayment(ctx context.Context, in NewPayment) (*models.Payment, *models.Invoice, error) {
	amount, err := ledger.NormalizeAmount(in.Amount)
	if err != nil {
		return nil, nil, err
	}
	if !in.Method.Valid() {
		return nil, nil, ledger.NewValidationError("payment_method", string(in.Method), ledger.ErrInvalidPaymentMethod)
	}

	var (
		payment models.Payment
		inv     models.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockInvoice(tx, in.InvoiceID, &inv); err != nil {
			return err
		}

		payment = models.Payment{
			InvoiceID:     inv.ID,
			Amount:        amount,
			PaymentMethod: in.Method,
			PaymentDate:   s.now(),
			Notes:         in.Notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		return reconcileInvoice(tx, &inv)
	})
	if err != nil {
		return nil, nil, err
	}

	s.cache.Invalidate(ctx)

	event := s.log.Info()
	if over := inv.Summary().Overpayment(inv.TotalAmount); over.IsPositive() {
		event = s.log.Warn().Str("overpaid_by", over.StringFixed(ledger.MoneyScale))
	}
	event.
		Uint("invoice_id", inv.ID).
		Uint("payment_id", payment.ID).
		Str("amount", amount.StringFixed(ledger.MoneyScale)).
		Str("method", string(payment.PaymentMethod)).
		Str("payment_status", string(inv.PaymentStatus)).
		Msg("Payment recorded")

	return &payment, &inv, nil
}

// ListPaymentsForInvoice returns the live payments of a live invoice in the
// order they were received.
func (s *PaymentService) ListPaymentsForInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	db := s.db.WithContext(ctx)

	var inv models.Invoice
	if err := db.Select("id").First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ledger.ErrInvoiceNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to load invoice %d: %w", invoiceID, err)
	}

	payments, err := livePayments(db, invoiceID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = make([]models.Payment, 0)
	}
	return payments, nil
}

// ListPayments lists live payments whose invoice is still live, newest first.
// Payments pointing at a deleted invoice never appear, whether they were
// voided with it or left behind by older data.
func (s *PaymentService) ListPayments(ctx context.Context, filter PaymentFilter, scopes ...func(*gorm.DB) *gorm.DB) ([]PaymentView, int64, error) {
	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Payment{}).
			Joins("JOIN invoices ON invoices.id = payments.invoice_id AND invoices.deleted_at IS NULL")
		if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(invoices.invoice_number) LIKE ? OR LOWER(invoices.customer_name) LIKE ? OR payments.payment_method LIKE ?", like, like, like)
		}
		if filter.Method != "" {
			q = q.Where("payments.payment_method = ?", filter.Method)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	views := make([]PaymentView, 0)
	if err := query().
		Select("payments.*, invoices.invoice_number, invoices.customer_name").
		Scopes(scopes...).
		Order("payments.payment_date DESC, payments.id DESC").
		Scan(&views).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return views, total, nil
}
