package cmd

import (
	"fmt"
	"sort"

	"github.com/solutionsscriptware-cmd/billflow/logger"
	"github.com/solutionsscriptware-cmd/billflow/services"
	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Verify stored invoice totals against their items and payments",
	Long: `Re-derive subtotal, tax, total, paid amount, balance and payment status
for every live invoice and report the ones whose stored values disagree.

With --fix the drifted invoices are reconciled and saved.`,
	Example: `  # Report drift only
  billflow recompute

  # Repair drifted invoices
  billflow recompute --fix`,
	RunE: runRecompute,
}

func init() {
	rootCmd.AddCommand(recomputeCmd)

	recomputeCmd.Flags().Bool("fix", false, "Persist recomputed values for drifted invoices")
}

func runRecompute(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("recompute")
	fix, _ := cmd.Flags().GetBool("fix")

	db, err := openDB()
	if err != nil {
		return err
	}

	invoices := services.NewInvoiceService(db, nil, cfg.InvoicePrefix)
	report, err := invoices.RecomputeAll(cmd.Context(), fix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "checked:  %d\n", report.Checked)
	fmt.Fprintf(out, "drifted:  %d\n", len(report.Drifted))
	for _, number := range report.Drifted {
		fmt.Fprintf(out, "  %s\n", number)
	}
	if fix {
		fmt.Fprintf(out, "repaired: %d\n", report.Repaired)
	}

	if len(report.Failed) > 0 {
		numbers := make([]string, 0, len(report.Failed))
		for number := range report.Failed {
			numbers = append(numbers, number)
		}
		sort.Strings(numbers)
		for _, number := range numbers {
			log.Error().Str("invoice_number", number).Str("error", report.Failed[number]).Msg("Repair failed")
		}
		return fmt.Errorf("%d invoice(s) could not be repaired", len(report.Failed))
	}

	log.Info().
		Int("checked", report.Checked).
		Int("drifted", len(report.Drifted)).
		Int("repaired", report.Repaired).
		Msg("Recompute finished")
	return nil
}
