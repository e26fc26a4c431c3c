package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akeren/acs-site/config"
	"github.com/akeren/acs-site/domain"
	"github.com/akeren/acs-site/internal/log"
	"github.com/spf13/cobra"
)

const shutdownGracePeriod = 30 * time.Second

func main() {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the ACS marketing site and contact API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env has to be loaded before the logger reads LOG_* settings.
			config.InitializeEnvFile(log.NewLoggerWithJSONOutput())
			return serve(cmd.Context(), log.NewLogger(log.OptionsFromEnv()), autoMigrate)
		},
	}
	cmd.Flags().BoolVarP(&autoMigrate, "auto-migrate", "m", false, "create tables from the models before serving (development only)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, logger *log.Logger, autoMigrate bool) error {
	logger.Info("ACS site server starting", "auto_migrate", autoMigrate)

	appConfig, err := config.LoadApplicationConfiguration(logger, autoMigrate)
	if err != nil {
		return fmt.Errorf("load application configuration: %w", err)
	}
	defer appConfig.Cleanup()

	if err := domain.SetupCoreDomain(appConfig); err != nil {
		return fmt.Errorf("set up domains: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received, draining connections", "grace_period", shutdownGracePeriod.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	logger.Info("Graceful shutdown completed")
	return nil
}
