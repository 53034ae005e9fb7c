package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taste3d/pkg/app"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates a new command for serving the web application
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  `Start the web server to serve the site. The portfolio loads in batches and the 3D models are warmed in the background.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, logger := mustApp(ctx)
			defer logger.Sync()
			defer a.Close()

			if err := serveWebsite(ctx, a); err != nil {
				logger.Fatal("server error", zap.Error(err))
			}
		},
	}
}

// serveWebsite runs the web server until ctx is cancelled
func serveWebsite(ctx context.Context, a *app.App) error {
	a.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.ServerAddress(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Config.PrintServerStartMessage()
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
