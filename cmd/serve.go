package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/api"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/dispatcher"
	queuemem "github.com/pagelens/pagelens/internal/queue/memory"
	"github.com/pagelens/pagelens/internal/worker"
)

// appServices is the slice of the app container the server needs. Narrowed
// to an interface so tests can wire fakes.
type appServices interface {
	Logger() *zap.Logger
	Config() config.Config
	Queue() *queuemem.Queue
	Workers() []*worker.Worker
	JobStore() analysis.JobStore
	ReportStore() analysis.ReportStore
	IDs() analysis.IDGenerator
	Clock() analysis.Clock
	Registry() *prometheus.Registry
}

// newServeCmd creates the 'serve' subcommand: the HTTP API plus the
// background worker pool.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis API server and worker pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), appInstance)
		},
	}
}

func runServer(ctx context.Context, a appServices) error {
	logger := a.Logger()
	cfg := a.Config()

	d := dispatcher.New(a.Queue(), a.Workers())
	server := api.NewServer(
		a.JobStore(),
		a.ReportStore(),
		d,
		a.IDs(),
		a.Clock(),
		cfg,
		logger,
		a.Registry(),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workersDone := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(workersDone)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		stop()
		<-workersDone
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	<-workersDone
	return nil
}
