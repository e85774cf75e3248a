package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/internal/testutil"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dec = testutil.Dec

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

type fixture struct {
	db       *gorm.DB
	invoices *InvoiceService
	payments *PaymentService
	customer models.Customer
	widget   models.Product
	gadget   models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:       db,
		invoices: NewInvoiceService(db, nil, "INV"),
		payments: NewPaymentService(db, nil),
		customer: testutil.SeedCustomer(t, db, "Acme Traders"),
		widget:   testutil.SeedProduct(t, db, "Widget", "100", "18"),
		gadget:   testutil.SeedProduct(t, db, "Gadget", "45.50", "5"),
	}
}

func (f *fixture) createWidgetInvoice(t *testing.T, qty string) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.CreateInvoice(context.Background(), InvoiceDraft{
		CustomerID: f.customer.ID,
		Items:      []DraftItem{{ProductID: f.widget.ID, Quantity: dec(qty)}},
	})
	require.NoError(t, err)
	return inv
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Derives Aggregates", func(t *testing.T) {
		issue := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
		inv, err := f.invoices.CreateInvoice(ctx, InvoiceDraft{
			CustomerID: f.customer.ID,
			IssueDate:  issue,
			Notes:      "first order",
			Items: []DraftItem{
				{ProductID: f.widget.ID, Quantity: dec("3")},
				{ProductID: f.gadget.ID, Quantity: dec("2")},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "Acme Traders", inv.CustomerName)
		assert.Regexp(t, `^INV-\d{5}$`, inv.InvoiceNumber)
		require.Len(t, inv.Items, 2)
		assertMoney(t, "391", inv.Subtotal, "subtotal")
		assertMoney(t, "58.55", inv.TaxAmount, "tax")
		assertMoney(t, "449.55", inv.TotalAmount, "total")
		assertMoney(t, "0", inv.PaidAmount, "paid")
		assertMoney(t, "449.55", inv.BalanceAmount, "balance")
		assert.Equal(t, ledger.StatusUnpaid, inv.PaymentStatus)

		stored, err := f.invoices.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "first order", stored.Notes)
		assert.Equal(t, "Widget", stored.Items[0].ProductName)
		y, m, d := time.Time(stored.IssueDate).Date()
		assert.Equal(t, []int{2026, 3, 14}, []int{y, int(m), d})
	})

	t.Run("Sequential Unique Numbers", func(t *testing.T) {
		a := f.createWidgetInvoice(t, "1")
		b := f.createWidgetInvoice(t, "1")
		assert.NotEqual(t, a.InvoiceNumber, b.InvoiceNumber)
		assert.Less(t, a.InvoiceNumber, b.InvoiceNumber)
	})

	t.Run("Snapshot Ignores Later Catalog Changes", func(t *testing.T) {
		inv := f.createWidgetInvoice(t, "1")
		require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.widget.ID).
			Updates(map[string]interface{}{"name": "Widget Pro", "price": dec("999")}).Error)
		defer f.db.Model(&models.Product{}).Where("id = ?", f.widget.ID).
			Updates(map[string]interface{}{"name": "Widget", "price": dec("100")})

		stored, err := f.invoices.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "Widget", stored.Items[0].ProductName)
		assertMoney(t, "100", stored.Items[0].UnitPrice, "unit_price")
	})

	failures := []struct {
		name  string
		draft InvoiceDraft
		want  error
	}{
		{"No Items", InvoiceDraft{CustomerID: f.customer.ID}, ledger.ErrEmptyItems},
		{"No Customer", InvoiceDraft{Items: []DraftItem{{ProductID: f.widget.ID, Quantity: dec("1")}}}, ledger.ErrValidation},
		{"Unknown Customer", InvoiceDraft{CustomerID: 999, Items: []DraftItem{{ProductID: f.widget.ID, Quantity: dec("1")}}}, ledger.ErrCustomerNotFound},
		{"Unknown Product", InvoiceDraft{CustomerID: f.customer.ID, Items: []DraftItem{{ProductID: 999, Quantity: dec("1")}}}, ledger.ErrProductNotFound},
		{"Zero Quantity", InvoiceDraft{CustomerID: f.customer.ID, Items: []DraftItem{{ProductID: f.widget.ID, Quantity: dec("0")}}}, ledger.ErrInvalidQuantity},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			var before int64
			f.db.Model(&models.Invoice{}).Count(&before)

			_, err := f.invoices.CreateInvoice(ctx, tt.draft)
			assert.ErrorIs(t, err, tt.want)

			var after int64
			f.db.Model(&models.Invoice{}).Count(&after)
			assert.Equal(t, before, after, "no partial invoice persisted")
		})
	}
}

func TestInvoiceLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.createWidgetInvoice(t, "3")
	assertMoney(t, "300", inv.Items[0].LineTotal, "line_total")
	assertMoney(t, "300", inv.Subtotal, "subtotal")
	assertMoney(t, "54", inv.TaxAmount, "tax")
	assertMoney(t, "354", inv.TotalAmount, "total")

	_, inv, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("150"), Method: ledger.MethodCash})
	require.NoError(t, err)
	assertMoney(t, "150", inv.PaidAmount, "paid")
	assertMoney(t, "204", inv.BalanceAmount, "balance")
	assert.Equal(t, ledger.StatusPartial, inv.PaymentStatus)

	_, inv, err = f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("204"), Method: ledger.MethodUPI})
	require.NoError(t, err)
	assertMoney(t, "354", inv.PaidAmount, "paid")
	assertMoney(t, "0", inv.BalanceAmount, "balance")
	assert.Equal(t, ledger.StatusPaid, inv.PaymentStatus)

	before, err := f.payments.ListPaymentsForInvoice(ctx, inv.ID)
	require.NoError(t, err)

	inv, err = f.invoices.UpdateInvoiceItems(ctx, inv.ID, InvoiceUpdate{
		Items: []ItemUpdate{{Line: intPtr(0), Quantity: decPtr("5")}},
	})
	require.NoError(t, err)
	assertMoney(t, "500", inv.Items[0].LineTotal, "line_total")
	assertMoney(t, "500", inv.Subtotal, "subtotal")
	assertMoney(t, "90", inv.TaxAmount, "tax")
	assertMoney(t, "590", inv.TotalAmount, "total")
	assertMoney(t, "354", inv.PaidAmount, "paid")
	assertMoney(t, "236", inv.BalanceAmount, "balance")
	assert.Equal(t, ledger.StatusPartial, inv.PaymentStatus)

	after, err := f.payments.ListPaymentsForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.True(t, before[i].Amount.Equal(after[i].Amount))
	}

	stored, err := f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err, "stored state verifies after edit")
	assert.Equal(t, ledger.StatusPartial, stored.PaymentStatus)
}

func TestUpdateInvoiceItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Keeps Snapshot Of Edited Lines", func(t *testing.T) {
		inv := f.createWidgetInvoice(t, "2")
		require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.widget.ID).Update("gst_rate", dec("28")).Error)
		defer f.db.Model(&models.Product{}).Where("id = ?", f.widget.ID).Update("gst_rate", dec("18"))

		inv, err := f.invoices.UpdateInvoiceItems(ctx, inv.ID, InvoiceUpdate{
			Items: []ItemUpdate{{Line: intPtr(0), UnitPrice: decPtr("90")}},
		})
		require.NoError(t, err)
		assertMoney(t, "18", inv.Items[0].TaxRate, "tax_rate")
		assertMoney(t, "180", inv.Items[0].LineTotal, "line_total")
		assertMoney(t, "212.4", inv.TotalAmount, "total")
	})

	t.Run("Adds And Removes Lines", func(t *testing.T) {
		inv := f.createWidgetInvoice(t, "1")
		inv, err := f.invoices.UpdateInvoiceItems(ctx, inv.ID, InvoiceUpdate{
			Items: []ItemUpdate{
				{ProductID: f.gadget.ID, Quantity: decPtr("2")},
				{ProductID: f.gadget.ID, Quantity: decPtr("1"), UnitPrice: decPtr("40")},
			},
		})
		require.NoError(t, err)
		require.Len(t, inv.Items, 2)
		assert.Equal(t, "Gadget", inv.Items[0].ProductName)
		assertMoney(t, "91", inv.Items[0].LineTotal, "first")
		assertMoney(t, "40", inv.Items[1].LineTotal, "second")
		assertMoney(t, "131", inv.Subtotal, "subtotal")
	})

	t.Run("Notes And Date Only", func(t *testing.T) {
		inv := f.createWidgetInvoice(t, "1")
		notes := "deliver friday"
		date := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		updated, err := f.invoices.UpdateInvoiceItems(ctx, inv.ID, InvoiceUpdate{Notes: &notes, IssueDate: &date})
		require.NoError(t, err)
		assert.Equal(t, notes, updated.Notes)
		assert.Len(t, updated.Items, 1)
		assert.True(t, inv.TotalAmount.Equal(updated.TotalAmount))
	})

	t.Run("Invoice Number Immutable", func(t *testing.T) {
		inv := f.createWidgetInvoice(t, "1")
		updated, err := f.invoices.UpdateInvoiceItems(ctx, inv.ID, InvoiceUpdate{
			Items: []ItemUpdate{{Line: intPtr(0), Quantity: decPtr("4")}},
		})
		require.NoError(t, err)
		assert.Equal(t, inv.InvoiceNumber, updated.InvoiceNumber)
	})

	failures := []struct {
		name  string
		items []ItemUpdate
		want  error
	}{
		{"Empty Items", []ItemUpdate{}, ledger.ErrEmptyItems},
		{"Line Out Of Range", []ItemUpdate{{Line: intPtr(3), Quantity: decPtr("1")}}, ledger.ErrIndexOutOfRange},
		{"Line Twice", []ItemUpdate{{Line: intPtr(0)}, {Line: intPtr(0)}}, ledger.ErrValidation},
		{"Unknown Product", []ItemUpdate{{ProductID: 999, Quantity: decPtr("1")}}, ledger.ErrProductNotFound},
		{"Missing Quantity", []ItemUpdate{{ProductID: f.widget.ID}}, ledger.ErrInvalidQuantity},
		{"Negative Price", []ItemUpdate{{Line: intPtr(0), UnitPrice: decPtr("-1")}}, ledger.ErrInvalidPrice},
		{"Product Mismatch", []ItemUpdate{{Line: intPtr(0), ProductID: f.gadget.ID}}, ledger.ErrValidation},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			inv := f.createWidgetInvoice(t, "3")
			_, err := f.invoices.UpdateInvoiceItems(ctx, inv.ID, InvoiceUpdate{Items: tt.items})
			assert.ErrorIs(t, err, tt.want)

			stored, err := f.invoices.GetInvoice(ctx, inv.ID)
			require.NoError(t, err)
			assertMoney(t, "354", stored.TotalAmount, "total unchanged")
		})
	}

	t.Run("Unknown Invoice", func(t *testing.T) {
		_, err := f.invoices.UpdateInvoiceItems(ctx, 9999, InvoiceUpdate{Items: []ItemUpdate{{Line: intPtr(0)}}})
		assert.ErrorIs(t, err, ledger.ErrInvoiceNotFound)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestGranularItemOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createWidgetInvoice(t, "3")

	_, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("354"), Method: ledger.MethodCard})
	require.NoError(t, err)

	inv, err = f.invoices.AddItem(ctx, inv.ID, DraftItem{ProductID: f.widget.ID, Quantity: dec("1")})
	require.NoError(t, err)
	require.Len(t, inv.Items, 2, "same product appended, not merged")
	assertMoney(t, "472", inv.TotalAmount, "total")
	assert.Equal(t, ledger.StatusPartial, inv.PaymentStatus)

	inv, err = f.invoices.EditItem(ctx, inv.ID, 1, ledger.LineEdit{UnitPrice: decPtr("0")})
	require.NoError(t, err)
	assertMoney(t, "354", inv.TotalAmount, "total")
	assert.Equal(t, ledger.StatusPaid, inv.PaymentStatus)

	inv, err = f.invoices.RemoveItem(ctx, inv.ID, 1)
	require.NoError(t, err)
	assert.Len(t, inv.Items, 1)

	_, err = f.invoices.RemoveItem(ctx, inv.ID, 0)
	assert.ErrorIs(t, err, ledger.ErrEmptyItems)

	_, err = f.invoices.EditItem(ctx, inv.ID, 5, ledger.LineEdit{Quantity: decPtr("1")})
	assert.ErrorIs(t, err, ledger.ErrIndexOutOfRange)

	stored, err := f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestGetInvoiceDetectsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createWidgetInvoice(t, "3")

	require.NoError(t, f.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("payment_status", ledger.StatusPaid).Error)

	_, err := f.invoices.GetInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, ledger.ErrInconsistentState)

	report, err := f.invoices.RecomputeAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{inv.InvoiceNumber}, report.Drifted)
	assert.Zero(t, report.Repaired)

	report, err = f.invoices.RecomputeAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired)

	stored, err := f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnpaid, stored.PaymentStatus)

	t.Run("Tampered Line Total", func(t *testing.T) {
		tampered := append(stored.Items[:0:0], stored.Items...)
		tampered[0].LineTotal = dec("999")
		require.NoError(t, f.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("items", tampered).Error)

		_, err := f.invoices.GetInvoice(ctx, inv.ID)
		require.ErrorIs(t, err, ledger.ErrInconsistentState)
		assert.Contains(t, err.Error(), "items[0].line_total")

		report, err := f.invoices.RecomputeAll(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, []string{inv.InvoiceNumber}, report.Drifted)
		assert.Equal(t, 1, report.Repaired)
		assert.Empty(t, report.Failed)

		repaired, err := f.invoices.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assertMoney(t, "300", repaired.Items[0].LineTotal, "line_total")
		assertMoney(t, "300", repaired.Subtotal, "subtotal")
		assertMoney(t, "354", repaired.TotalAmount, "total_amount")
	})
}

func TestListInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.SeedCustomer(t, f.db, "Zenith Stores")

	f.createWidgetInvoice(t, "1")
	paid := f.createWidgetInvoice(t, "1")
	_, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: paid.ID, Amount: dec("118"), Method: ledger.MethodCash})
	require.NoError(t, err)
	_, err = f.invoices.CreateInvoice(ctx, InvoiceDraft{
		CustomerID: other.ID,
		Items:      []DraftItem{{ProductID: f.gadget.ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)

	all, total, err := f.invoices.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	zenith, total, err := f.invoices.ListInvoices(ctx, InvoiceFilter{Search: "zenith"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Zenith Stores", zenith[0].CustomerName)

	paidOnly, _, err := f.invoices.ListInvoices(ctx, InvoiceFilter{Status: ledger.StatusPaid})
	require.NoError(t, err)
	require.Len(t, paidOnly, 1)
	assert.Equal(t, paid.ID, paidOnly[0].ID)

	page, total, err := f.invoices.ListInvoices(ctx, InvoiceFilter{}, func(db *gorm.DB) *gorm.DB { return db.Limit(2) })
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)
}

func TestDeleteInvoiceVoidsPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doomed := f.createWidgetInvoice(t, "3")
	kept := f.createWidgetInvoice(t, "1")
	_, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: doomed.ID, Amount: dec("100"), Method: ledger.MethodCash})
	require.NoError(t, err)
	_, _, err = f.payments.CreatePayment(ctx, NewPayment{InvoiceID: kept.ID, Amount: dec("50"), Method: ledger.MethodCash})
	require.NoError(t, err)

	require.NoError(t, f.invoices.DeleteInvoice(ctx, doomed.ID))

	_, err = f.invoices.GetInvoice(ctx, doomed.ID)
	assert.ErrorIs(t, err, ledger.ErrInvoiceNotFound)

	_, err = f.payments.ListPaymentsForInvoice(ctx, doomed.ID)
	assert.ErrorIs(t, err, ledger.ErrInvoiceNotFound)

	views, total, err := f.payments.ListPayments(ctx, PaymentFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Equal(t, kept.ID, views[0].InvoiceID)

	var voided []models.Payment
	require.NoError(t, f.db.Unscoped().Where("invoice_id = ? AND deleted_at IS NOT NULL", doomed.ID).Find(&voided).Error)
	assert.Len(t, voided, 1, "voided payment kept for audit")

	_, _, err = f.payments.CreatePayment(ctx, NewPayment{InvoiceID: doomed.ID, Amount: dec("10"), Method: ledger.MethodCash})
	assert.ErrorIs(t, err, ledger.ErrInvoiceNotFound)

	assert.ErrorIs(t, f.invoices.DeleteInvoice(ctx, doomed.ID), ledger.ErrInvoiceNotFound)
}
