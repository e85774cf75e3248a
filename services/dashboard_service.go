package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/logger"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalCustomers   int64                                    `json:"total_customers"`
	TotalProducts    int64                                    `json:"total_products"`
	TotalInvoices    int64                                    `json:"total_invoices"`
	TotalRevenue     decimal.Decimal                          `json:"total_revenue"`
	PaidRevenue      decimal.Decimal                          `json:"paid_revenue"`
	PendingRevenue   decimal.Decimal                          `json:"pending_revenue"`
	StatusCounts     map[ledger.PaymentStatus]int64           `json:"status_counts"`
	ReceivedByMethod map[ledger.PaymentMethod]decimal.Decimal `json:"received_by_method"`
	GeneratedAt      time.Time                                `json:"generated_at"`
}

type DashboardService struct {
	db    *gorm.DB
	cache StatsCache
	log   zerolog.Logger
}

func NewDashboardService(db *gorm.DB, cache StatsCache) *DashboardService {
	if cache == nil {
		cache = noopCache{}
	}
	return &DashboardService{
		db:    db,
		cache: cache,
		log:   logger.WithComponent("dashboard-service"),
	}
}

// Stats aggregates over live invoices and their live payments only.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	db := s.db.WithContext(ctx)
	stats := &DashboardStats{
		TotalRevenue:     decimal.Zero,
		PaidRevenue:      decimal.Zero,
		PendingRevenue:   decimal.Zero,
		StatusCounts:     map[ledger.PaymentStatus]int64{},
		ReceivedByMethod: map[ledger.PaymentMethod]decimal.Decimal{},
		GeneratedAt:      time.Now().UTC(),
	}

	if err := db.Model(&models.Customer{}).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if err := db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var invoices []models.Invoice
	if err := db.Select("total_amount", "paid_amount", "balance_amount", "payment_status").
		Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to load invoice totals: %w", err)
	}
	stats.TotalInvoices = int64(len(invoices))
	for _, inv := range invoices {
		stats.TotalRevenue = stats.TotalRevenue.Add(inv.TotalAmount)
		stats.PaidRevenue = stats.PaidRevenue.Add(inv.PaidAmount)
		stats.PendingRevenue = stats.PendingRevenue.Add(inv.BalanceAmount)
		stats.StatusCounts[inv.PaymentStatus]++
	}

	var payments []models.Payment
	if err := db.Model(&models.Payment{}).
		Select("payments.payment_method", "payments.amount").
		Joins("JOIN invoices ON invoices.id = payments.invoice_id AND invoices.deleted_at IS NULL").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	for _, p := range payments {
		sum, ok := stats.ReceivedByMethod[p.PaymentMethod]
		if !ok {
			sum = decimal.Zero
		}
		stats.ReceivedByMethod[p.PaymentMethod] = sum.Add(p.Amount)
	}

	s.cache.Set(ctx, stats)
	s.log.Debug().Int64("invoices", stats.TotalInvoices).Msg("Dashboard stats computed")
	return stats, nil
}
