// Package api exposes the HTTP interface for the analysis service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/dispatcher"
)

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router     chi.Router
	jobStore   analysis.JobStore
	reports    analysis.ReportStore
	dispatcher *dispatcher.Dispatcher
	idGen      analysis.IDGenerator
	clock      analysis.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The registry
// backs the /metrics endpoint; pass nil to disable it.
func NewServer(
	jobStore analysis.JobStore,
	reports analysis.ReportStore,
	dispatcher *dispatcher.Dispatcher,
	idGen analysis.IDGenerator,
	clock analysis.Clock,
	cfg config.Config,
	logger *zap.Logger,
	registry *prometheus.Registry,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobStore:   jobStore,
		reports:    reports,
		dispatcher: dispatcher,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.ServerTimeout()))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.submitAnalysis)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/status", s.getJobStatus)
				r.Get("/result", s.getJobResult)
				r.Post("/cancel", s.cancelJob)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type analysisRequest struct {
	URL         string            `json:"url"`
	OnStepError string            `json:"on_step_error"`
	Tags        map[string]string `json:"tags"`
}

func (s *Server) submitAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.toJobParameters(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := s.enqueueJob(r.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.ReportID == "" {
		s.writeError(w, http.StatusConflict, "job has no result yet")
		return
	}
	report, err := s.reports.GetReport(r.Context(), job.ReportID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch report")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job, "report": report})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	switch job.Status {
	case analysis.JobStatusSucceeded, analysis.JobStatusFailed, analysis.JobStatusCanceled:
		s.writeError(w, http.StatusConflict, fmt.Sprintf("job already %s", job.Status))
		return
	}
	if err := s.jobStore.UpdateJobStatus(r.Context(), jobID, analysis.JobStatusCanceled, "canceled via API"); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(analysis.JobStatusCanceled),
	})
}

func (s *Server) enqueueJob(ctx context.Context, params analysis.JobParameters) (string, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.clock.Now()
	job := analysis.Job{
		ID:         jobID,
		Status:     analysis.JobStatusQueued,
		Submitted:  now,
		Parameters: params,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := analysis.QueueItem{
		JobID:     jobID,
		Params:    params,
		Attempt:   1,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

func (s *Server) toJobParameters(req analysisRequest) (analysis.JobParameters, error) {
	if req.URL == "" {
		return analysis.JobParameters{}, errors.New("url required")
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return analysis.JobParameters{}, errors.New("url must be absolute http or https")
	}
	switch req.OnStepError {
	case "", "abort", "continue":
	default:
		return analysis.JobParameters{}, errors.New("on_step_error must be abort or continue")
	}
	return analysis.JobParameters{
		URL:         req.URL,
		OnStepError: req.OnStepError,
		Tags:        req.Tags,
	}, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
