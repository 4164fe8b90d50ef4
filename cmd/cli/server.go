package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httphandler "atmnet.com/internal/infrastructure/http"
	"atmnet.com/internal/infrastructure/logger"
	"atmnet.com/internal/infrastructure/validator"

	"github.com/spf13/cobra"
)

var apiServerCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "server",
	Short: "Run the terminal API server.",
	RunE: func(_ *cobra.Command, _ []string) error {
		appLogger := logger.NewLogger()

		cfg, err := loadConfig()
		if err != nil {
			appLogger.LogError(context.TODO(), "Failed to load config", err)
			return err
		}

		appLogger.LogInfo(context.TODO(), "Configuration loaded",
			"port", cfg.Server.Port,
			"terminals", cfg.Terminals.IDs,
			"shared_reservoir", cfg.Terminals.SharedReservoir,
			"accounts", len(cfg.Accounts),
			"timestamp_tolerance", cfg.Terminals.TimestampTolerance.String())

		atm, err := buildNetwork(cfg, appLogger)
		if err != nil {
			appLogger.LogError(context.TODO(), "Failed to build terminal network", err)
			return err
		}

		requestValidator := validator.NewHMACValidator(
			cfg.Terminals.HMACSecret,
			cfg.Terminals.TimestampTolerance,
			appLogger,
		)

		handler := httphandler.NewHandler(atm.fleet, requestValidator, appLogger)

		addr := ":" + cfg.Server.Port
		server := &http.Server{
			Addr:         addr,
			Handler:      handler.SetupRoutes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

		errChan := make(chan error, 1)

		go func() {
			appLogger.LogInfo(context.TODO(), "Starting server", "address", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		select {
		case <-signalChan:
			appLogger.LogInfo(context.TODO(), "Received termination signal. Initiating graceful shutdown...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				appLogger.LogError(context.TODO(), "Server forced to shutdown", err)
				return err
			}

			appLogger.LogInfo(context.TODO(), "Server stopped gracefully")
		case err := <-errChan:
			appLogger.LogError(context.TODO(), "Server error", err)
			return err
		}

		return nil
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(apiServerCmd)
}
