package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kerem-kaynak/uvlhub/internal/config"
	apihttp "github.com/kerem-kaynak/uvlhub/internal/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, err := config.InitContext(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize context: %w", err)
			}
			defer func() {
				_ = ctx.Logger.Sync()
			}()

			// Ensure the database connection is closed when the application exits
			sqlDB, err := ctx.DB.DB()
			if err != nil {
				return fmt.Errorf("failed to get underlying SQL DB from GORM DB: %w", err)
			}
			defer func() {
				if err := sqlDB.Close(); err != nil {
					ctx.Logger.Error("Failed to close database connection", zap.Error(err))
				}
			}()

			service := apihttp.NewHTTPService(ctx)
			server := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           service.Engine(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			stop, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				ctx.Logger.Info("Starting server", zap.String("addr", server.Addr))
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("failed to start the server: %w", err)
				}
				return nil
			case <-stop.Done():
			}

			ctx.Logger.Info("Shutting down server")
			shutdownCtx, release := context.WithTimeout(context.Background(), shutdownTimeout)
			defer release()
			return server.Shutdown(shutdownCtx)
		},
	}
}
