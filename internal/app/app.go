// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/clock/system"
	"github.com/pagelens/pagelens/internal/config"
	iduuid "github.com/pagelens/pagelens/internal/id/uuid"
	"github.com/pagelens/pagelens/internal/llm"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/pipeline"
	"github.com/pagelens/pagelens/internal/progress"
	"github.com/pagelens/pagelens/internal/progress/sinks"
	queuemem "github.com/pagelens/pagelens/internal/queue/memory"
	"github.com/pagelens/pagelens/internal/scraper"
	"github.com/pagelens/pagelens/internal/steps"
	"github.com/pagelens/pagelens/internal/storage/local"
	storemem "github.com/pagelens/pagelens/internal/storage/memory"
	"github.com/pagelens/pagelens/internal/storage/postgres"
	"github.com/pagelens/pagelens/internal/worker"
)

// App holds the shared, long-lived services for the application. It is
// initialized once at startup and handed to the commands that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	hub      *progress.Hub
	llm      llm.Client
	scraper  *scraper.Scraper
	renderer *scraper.Renderer
	jobs     analysis.JobStore
	reports  analysis.ReportStore
	queue    *queuemem.Queue
	clock    analysis.Clock
	ids      analysis.IDGenerator
	pgStore  *postgres.ReportStore
}

// New creates and initializes an App from the configuration. It fails fast
// if any critical service cannot be built.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		jobs:     storemem.NewJobStore(),
		queue:    queuemem.NewQueue(cfg.Worker.QueueDepth),
		clock:    system.New(),
		ids:      iduuid.New(),
	}

	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	a.hub = progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
	)

	client, err := llm.NewHTTPClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLMTimeout(),
		MaxRetries:  cfg.LLM.MaxRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	a.llm = client

	if err := a.initScraper(); err != nil {
		return nil, err
	}
	if err := a.initReportStore(ctx); err != nil {
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.Bool("postgres", cfg.DB.DSN != ""),
	)
	return a, nil
}

func (a *App) initScraper() error {
	fetcher := scraper.NewFetcher(a.cfg.Scraper.UserAgent, a.cfg.ScrapeTimeout())

	opts := []scraper.Option{}
	blobs, err := a.buildBlobStore()
	if err != nil {
		return err
	}
	if blobs != nil {
		opts = append(opts, scraper.WithBlobStore(blobs))
	}

	if a.cfg.Headless.Enabled {
		renderer, err := scraper.NewRenderer(scraper.RendererConfig{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.Scraper.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("init renderer: %w", err)
		}
		a.renderer = renderer
		opts = append(opts, scraper.WithRenderer(renderer, scraper.NewHeuristic(a.cfg.Headless.PromotionThresh)))
	}

	a.scraper = scraper.New(fetcher, a.logger, opts...)
	return nil
}

func (a *App) buildBlobStore() (analysis.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case "memory":
		return storemem.NewBlobStore(), nil
	case "local":
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init blob store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

func (a *App) initReportStore(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		a.reports = storemem.NewReportStore()
		return nil
	}
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	store, err := postgres.NewReportStore(pool)
	if err != nil {
		return fmt.Errorf("init report store: %w", err)
	}
	a.pgStore = store
	a.reports = store
	return nil
}

// RunnerFactory builds pipeline runners honoring a per-job error policy
// override.
func (a *App) RunnerFactory() worker.RunnerFactory {
	return func(onStepError string) (worker.Runner, error) {
		policy := a.cfg.Pipeline.OnStepError
		if onStepError != "" {
			policy = onStepError
		}
		return pipeline.New(
			steps.Chain(a.llm),
			pipeline.Config{
				Concurrency: a.cfg.Pipeline.Concurrency,
				OnStepError: pipeline.ErrorPolicy(policy),
				Placeholder: a.cfg.Pipeline.Placeholder,
			},
			a.logger,
			a.hub,
		)
	}
}

// Workers builds the worker pool sized by the configuration.
func (a *App) Workers() []*worker.Worker {
	workers := make([]*worker.Worker, 0, a.cfg.Worker.Count)
	for i := 0; i < a.cfg.Worker.Count; i++ {
		workers = append(workers, worker.New(
			a.queue,
			a.jobs,
			a.reports,
			a.scraper,
			a.RunnerFactory(),
			a.clock,
			a.ids,
			a.logger,
		))
	}
	return workers
}

// Accessors for the wired services.

func (a *App) Config() config.Config             { return a.cfg }
func (a *App) Logger() *zap.Logger               { return a.logger }
func (a *App) Registry() *prometheus.Registry    { return a.registry }
func (a *App) Hub() *progress.Hub                { return a.hub }
func (a *App) LLM() llm.Client                   { return a.llm }
func (a *App) Scraper() *scraper.Scraper         { return a.scraper }
func (a *App) JobStore() analysis.JobStore       { return a.jobs }
func (a *App) ReportStore() analysis.ReportStore { return a.reports }
func (a *App) Queue() *queuemem.Queue            { return a.queue }
func (a *App) Clock() analysis.Clock             { return a.clock }
func (a *App) IDs() analysis.IDGenerator         { return a.ids }

// Close releases all held resources in reverse initialization order.
func (a *App) Close() {
	a.queue.Close()
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.hub != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.hub.Close(closeCtx); err != nil {
			a.logger.Warn("progress hub close", zap.Error(err))
		}
		cancel()
	}
	_ = a.logger.Sync()
}
