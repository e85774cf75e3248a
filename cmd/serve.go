package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solutionsscriptware-cmd/billflow/config"
	"github.com/solutionsscriptware-cmd/billflow/logger"
	"github.com/solutionsscriptware-cmd/billflow/routes"
	"github.com/solutionsscriptware-cmd/billflow/services"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Example: `  # Serve on $PORT, migrating the schema first
  billflow serve

  # Serve against an existing schema
  billflow serve --auto-migrate=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("auto-migrate", true, "Migrate the schema before serving")
	serveCmd.Flags().Duration("shutdown-timeout", 15*time.Second, "Grace period for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	autoMigrate, _ := cmd.Flags().GetBool("auto-migrate")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	db, err := openDB()
	if err != nil {
		return err
	}
	if autoMigrate {
		if err := config.Migrate(db); err != nil {
			return err
		}
	}

	rdb := config.ConnectRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	cache := services.NewStatsCache(rdb, cfg.StatsCacheTTL)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(db, cfg, cache),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("Starting billflow API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
