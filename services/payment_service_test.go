package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	f.payments.now = func() time.Time { return fixed }

	t.Run("Rounds Amount And Stamps Date", func(t *testing.T) {
		inv := f.createWidgetInvoice(t, "1")
		payment, updated, err := f.payments.CreatePayment(ctx, NewPayment{
			InvoiceID: inv.ID,
			Amount:    dec("10.005"),
			Method:    ledger.MethodBankTransfer,
			Notes:     "NEFT ref 42",
		})
		require.NoError(t, err)
		assertMoney(t, "10.01", payment.Amount, "amount")
		assert.True(t, fixed.Equal(payment.PaymentDate))
		assert.Equal(t, "NEFT ref 42", payment.Notes)
		assertMoney(t, "107.99", updated.BalanceAmount, "balance")
		assert.Equal(t, ledger.StatusPartial, updated.PaymentStatus)
	})

	t.Run("Overpayment Floors Balance", func(t *testing.T) {
		inv := f.createWidgetInvoice(t, "3")
		_, updated, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("400"), Method: ledger.MethodCheque})
		require.NoError(t, err)
		assertMoney(t, "400", updated.PaidAmount, "paid")
		assertMoney(t, "0", updated.BalanceAmount, "balance")
		assert.Equal(t, ledger.StatusPaid, updated.PaymentStatus)

		_, err = f.invoices.GetInvoice(ctx, inv.ID)
		assert.NoError(t, err)
	})

	failures := []struct {
		name    string
		payment NewPayment
		want    error
	}{
		{"Zero Amount", NewPayment{Amount: dec("0"), Method: ledger.MethodCash}, ledger.ErrInvalidAmount},
		{"Negative Amount", NewPayment{Amount: dec("-5"), Method: ledger.MethodCash}, ledger.ErrInvalidAmount},
		{"Rounds To Zero", NewPayment{Amount: dec("0.004"), Method: ledger.MethodCash}, ledger.ErrInvalidAmount},
		{"Unknown Method", NewPayment{Amount: dec("5"), Method: "crypto"}, ledger.ErrInvalidPaymentMethod},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			inv := f.createWidgetInvoice(t, "1")
			tt.payment.InvoiceID = inv.ID

			_, _, err := f.payments.CreatePayment(ctx, tt.payment)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ledger.ErrValidation)

			payments, err := f.payments.ListPaymentsForInvoice(ctx, inv.ID)
			require.NoError(t, err)
			assert.Empty(t, payments)
		})
	}

	t.Run("Unknown Invoice", func(t *testing.T) {
		_, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: 4242, Amount: dec("1"), Method: ledger.MethodCash})
		assert.ErrorIs(t, err, ledger.ErrInvoiceNotFound)

		var count int64
		f.db.Model(&models.Payment{}).Where("invoice_id = ?", 4242).Count(&count)
		assert.Zero(t, count)
	})
}

func TestConcurrentPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createWidgetInvoice(t, "10")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("12.50"), Method: ledger.MethodUPI})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assertMoney(t, "100", stored.PaidAmount, "no payment lost")
	assertMoney(t, "1080", stored.BalanceAmount, "balance")
	assert.Equal(t, ledger.StatusPartial, stored.PaymentStatus)
}

func TestListPaymentsForInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createWidgetInvoice(t, "1")

	payments, err := f.payments.ListPaymentsForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.NotNil(t, payments)
	assert.Empty(t, payments)

	first, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("10"), Method: ledger.MethodCash})
	require.NoError(t, err)
	second, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("20"), Method: ledger.MethodCard})
	require.NoError(t, err)

	payments, err = f.payments.ListPaymentsForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, first.ID, payments[0].ID)
	assert.Equal(t, second.ID, payments[1].ID)

	_, err = f.payments.ListPaymentsForInvoice(ctx, 777)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestListPaymentsExcludesOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live := f.createWidgetInvoice(t, "1")
	orphaned := f.createWidgetInvoice(t, "1")
	_, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: live.ID, Amount: dec("18"), Method: ledger.MethodCash})
	require.NoError(t, err)
	_, _, err = f.payments.CreatePayment(ctx, NewPayment{InvoiceID: live.ID, Amount: dec("20"), Method: ledger.MethodUPI})
	require.NoError(t, err)
	_, _, err = f.payments.CreatePayment(ctx, NewPayment{InvoiceID: orphaned.ID, Amount: dec("30"), Method: ledger.MethodCash})
	require.NoError(t, err)

	// Older data deleted invoices without voiding their payments.
	require.NoError(t, f.db.Delete(&models.Invoice{}, orphaned.ID).Error)

	views, total, err := f.payments.ListPayments(ctx, PaymentFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, live.InvoiceNumber, v.InvoiceNumber)
		assert.Equal(t, "Acme Traders", v.CustomerName)
	}

	cash, total, err := f.payments.ListPayments(ctx, PaymentFilter{Method: ledger.MethodCash})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assertMoney(t, "18", cash[0].Amount, "amount")

	byNumber, _, err := f.payments.ListPayments(ctx, PaymentFilter{Search: live.InvoiceNumber})
	require.NoError(t, err)
	assert.Len(t, byNumber, 2)
}

func TestExportPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.createWidgetInvoice(t, "1")
	_, _, err := f.payments.CreatePayment(ctx, NewPayment{InvoiceID: inv.ID, Amount: dec("59.25"), Method: ledger.MethodCheque, Notes: "cheque 0091"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.payments.ExportPayments(ctx, &buf))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(paymentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, paymentHeaders, rows[0])
	assert.Equal(t, inv.InvoiceNumber, rows[1][1])
	assert.Equal(t, "Acme Traders", rows[1][2])
	assert.Equal(t, "cheque", rows[1][3])
	assert.Equal(t, "59.25", rows[1][4])
	assert.Equal(t, "cheque 0091", rows[1][5])

	t.Run("Writer Failure", func(t *testing.T) {
		err := f.payments.ExportPayments(ctx, failingWriter{})
		assert.ErrorIs(t, err, errDiskFull)
	})
}

var errDiskFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }
