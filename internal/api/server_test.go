package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/dispatcher"
	queuemem "github.com/pagelens/pagelens/internal/queue/memory"
	storemem "github.com/pagelens/pagelens/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type staticIDs struct{ id string }

func (g staticIDs) NewID() (string, error) { return g.id, nil }

type testServer struct {
	server  *Server
	jobs    *storemem.JobStore
	reports *storemem.ReportStore
	queue   *queuemem.Queue
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(&cfg)
	}

	ts := &testServer{
		jobs:    storemem.NewJobStore(),
		reports: storemem.NewReportStore(),
		queue:   queuemem.NewQueue(8),
	}
	ts.server = NewServer(
		ts.jobs,
		ts.reports,
		dispatcher.New(ts.queue, nil),
		staticIDs{id: "job-fixed"},
		fixedClock{now: time.Unix(1700000000, 0).UTC()},
		cfg,
		zap.NewNop(),
		prometheus.NewRegistry(),
	)
	return ts
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAnalysis(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := doJSON(t, ts.server.Handler(), http.MethodPost, "/v1/analyses", map[string]any{
		"url": "https://example.com/article",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "job-fixed", resp["job_id"])

	job, err := ts.jobs.GetJob(context.Background(), "job-fixed")
	require.NoError(t, err)
	require.Equal(t, analysis.JobStatusQueued, job.Status)
	require.Equal(t, "https://example.com/article", job.Parameters.URL)

	item, err := ts.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-fixed", item.JobID)
	require.Equal(t, 1, item.Attempt)
}

func TestSubmitAnalysisValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	h := ts.server.Handler()

	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing url", map[string]any{}, "url required"},
		{"relative url", map[string]any{"url": "/local/path"}, "absolute http"},
		{"bad scheme", map[string]any{"url": "ftp://example.com"}, "absolute http"},
		{"bad policy", map[string]any{"url": "https://example.com", "on_step_error": "retry"}, "on_step_error"},
	}
	for _, tc := range cases {
		rec := doJSON(t, h, http.MethodPost, "/v1/analyses", tc.body)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
		require.Contains(t, rec.Body.String(), tc.want, tc.name)
	}
}

func TestGetJobStatus(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	require.NoError(t, ts.jobs.CreateJob(context.Background(), analysis.Job{
		ID:     "job-1",
		Status: analysis.JobStatusRunning,
	}))

	rec := doJSON(t, ts.server.Handler(), http.MethodGet, "/v1/analyses/job-1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"running"`)

	rec = doJSON(t, ts.server.Handler(), http.MethodGet, "/v1/analyses/missing/status", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobResult(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	ctx := context.Background()

	rec := analysis.NewRecord("https://example.com", "body")
	rec, err := rec.Merge(analysis.Update{
		analysis.FieldClassification: analysis.Scalar("Technology"),
	})
	require.NoError(t, err)
	require.NoError(t, ts.reports.SaveReport(ctx, analysis.Report{
		ID:     "report-1",
		JobID:  "job-1",
		URL:    "https://example.com",
		Record: rec,
	}))
	require.NoError(t, ts.jobs.CreateJob(ctx, analysis.Job{
		ID:       "job-1",
		Status:   analysis.JobStatusSucceeded,
		ReportID: "report-1",
	}))

	res := doJSON(t, ts.server.Handler(), http.MethodGet, "/v1/analyses/job-1/result", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Technology")
}

func TestGetJobResultBeforeCompletion(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	require.NoError(t, ts.jobs.CreateJob(context.Background(), analysis.Job{
		ID:     "job-1",
		Status: analysis.JobStatusRunning,
	}))

	rec := doJSON(t, ts.server.Handler(), http.MethodGet, "/v1/analyses/job-1/result", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelJob(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	ctx := context.Background()
	require.NoError(t, ts.jobs.CreateJob(ctx, analysis.Job{
		ID:     "job-1",
		Status: analysis.JobStatusQueued,
	}))

	rec := doJSON(t, ts.server.Handler(), http.MethodPost, "/v1/analyses/job-1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	job, err := ts.jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, analysis.JobStatusCanceled, job.Status)

	// Terminal jobs refuse a second cancel.
	rec = doJSON(t, ts.server.Handler(), http.MethodPost, "/v1/analyses/job-1/cancel", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	h := ts.server.Handler()

	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/readyz", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/metrics", nil).Code)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	rec := doJSON(t, ts.server.Handler(), http.MethodGet, "/healthz", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKey = "secret"
	})
	h := ts.server.Handler()

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Query parameter fallback.
	req = httptest.NewRequest(http.MethodGet, "/healthz?api_key=secret", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
