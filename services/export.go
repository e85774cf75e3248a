package services

import (
	"context"
	"fmt"
	"io"

	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/xuri/excelize/v2"
)

const paymentsSheet = "Payments"

var paymentHeaders = []string{"Date", "Invoice", "Customer", "Method", "Amount", "Notes"}

// ExportPayments writes every live payment as an XLSX workbook.
func (s *PaymentService) ExportPayments(ctx context.Context, w io.Writer) error {
	views, _, err := s.ListPayments(ctx, PaymentFilter{})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", paymentsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, header := range paymentHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(paymentsSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", header, err)
		}
	}

	for i, p := range views {
		amount, _ := ledger.Round(p.Amount).Float64()
		values := []any{
			p.PaymentDate.Format("2006-01-02 15:04"),
			p.InvoiceNumber,
			p.CustomerName,
			string(p.PaymentMethod),
			amount,
			p.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(paymentsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write payment %d: %w", p.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
