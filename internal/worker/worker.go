// Package worker implements the analysis job execution loop.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/pipeline"
)

// Runner executes the analysis chain over a seed record.
type Runner interface {
	Execute(ctx context.Context, seed analysis.Record) (pipeline.Result, error)
}

// RunnerFactory builds a Runner honoring the job's step-error policy.
// An empty policy means the server default.
type RunnerFactory func(onStepError string) (Runner, error)

// Worker consumes queue items and executes the scrape-and-analyze pipeline.
type Worker struct {
	queue   analysis.Queue
	jobs    analysis.JobStore
	reports analysis.ReportStore
	scraper analysis.Scraper
	runners RunnerFactory
	clock   analysis.Clock
	ids     analysis.IDGenerator
	logger  *zap.Logger
}

// New constructs a Worker.
func New(
	queue analysis.Queue,
	jobs analysis.JobStore,
	reports analysis.ReportStore,
	scraper analysis.Scraper,
	runners RunnerFactory,
	clock analysis.Clock,
	ids analysis.IDGenerator,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:   queue,
		jobs:    jobs,
		reports: reports,
		scraper: scraper,
		runners: runners,
		clock:   clock,
		ids:     ids,
		logger:  logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item analysis.QueueItem) {
	job, err := w.jobs.GetJob(ctx, item.JobID)
	if err != nil {
		w.logger.Error("load job failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	if job.Status == analysis.JobStatusCanceled {
		w.logger.Info("skipping canceled job", zap.String("job_id", item.JobID))
		return
	}

	if err := w.jobs.UpdateJobStatus(ctx, item.JobID, analysis.JobStatusRunning, ""); err != nil {
		w.logger.Error("update job status failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}

	runner, err := w.runners(item.Params.OnStepError)
	if err != nil {
		w.failJob(ctx, item.JobID, "configure pipeline: "+err.Error())
		return
	}

	text := w.scraper.Scrape(ctx, item.Params.URL)
	seed := analysis.NewRecord(item.Params.URL, text)

	result, runErr := runner.Execute(ctx, seed)

	// The report persists even for aborted runs so the partial record stays
	// retrievable.
	reportID, err := w.ids.NewID()
	if err != nil {
		w.failJob(ctx, item.JobID, "generate report id: "+err.Error())
		return
	}
	report := analysis.Report{
		ID:        reportID,
		JobID:     item.JobID,
		URL:       item.Params.URL,
		CreatedAt: w.clock.Now().UTC(),
		Record:    result.Record,
		Steps:     result.Steps,
	}
	if err := w.reports.SaveReport(ctx, report); err != nil {
		w.failJob(ctx, item.JobID, "save report: "+err.Error())
		return
	}
	if err := w.jobs.AttachReport(ctx, item.JobID, reportID); err != nil {
		w.logger.Error("attach report failed", zap.String("job_id", item.JobID), zap.Error(err))
	}

	if runErr != nil {
		w.failJob(ctx, item.JobID, runErr.Error())
		return
	}
	if err := w.jobs.UpdateJobStatus(ctx, item.JobID, analysis.JobStatusSucceeded, ""); err != nil {
		w.logger.Error("final job status update failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
}

func (w *Worker) failJob(ctx context.Context, jobID, errText string) {
	w.logger.Warn("analysis job failed", zap.String("job_id", jobID), zap.String("error", errText))
	if err := w.jobs.UpdateJobStatus(ctx, jobID, analysis.JobStatusFailed, errText); err != nil {
		w.logger.Error("fail job status update", zap.String("job_id", jobID), zap.Error(err))
	}
}
