package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/config"
	"github.com/solutionsscriptware-cmd/billflow/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "0.1.0"

// cfg is loaded once in PersistentPreRunE and shared by every subcommand.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "billflow",
	Short: "Billflow - invoicing and payment tracking for small businesses",
	Long: `Billflow keeps invoices, their line items and the payments received
against them consistent: totals, balances and payment status are always
derived from the stored items and payments.

Configuration is read from the environment or a .env file:
  JWT_SECRET      - signing secret for access tokens [REQUIRED]
  DB_DRIVER       - postgres (default) or sqlite
  DATABASE_URL    - connection string or sqlite file path
  REDIS_ADDR      - optional, enables the dashboard stats cache`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if err := logger.Setup(loaded.LoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	// Replaced in PersistentPreRunE once the config is loaded.
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
	}
}

func openDB() (*gorm.DB, error) {
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	dbLog := logger.WithComponent("db")
	dbLog.Info().Str("driver", cfg.DBDriver).Msg("Database connected")
	return db, nil
}
