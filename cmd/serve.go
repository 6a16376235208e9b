package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/api"
	"github.com/ytsubs/ytsubs/internal/clock/system"
	"github.com/ytsubs/ytsubs/internal/ranking"
)

// newServeCmd creates the 'serve' subcommand, which exposes the ranked feed
// over HTTP.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ranked feed over HTTP",
		Long: `Starts an HTTP server exposing the ranked feed as JSON and HTML,
plus health and metrics endpoints. The feed is re-ranked on every request,
so a crawl running alongside shows up immediately.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := a.Logger()
	cfg := a.Config()

	engine := ranking.NewEngine(a.Store(), system.New(), cfg.Feed.Window(), logger)
	server := api.NewServer(engine, a.Store(), api.Config{APIKey: cfg.Server.APIKey}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-cmd.Context().Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}
