package analysis

import (
	"context"
	"time"
)

// JobStore persists job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string) error
	AttachReport(ctx context.Context, jobID, reportID string) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// ReportStore persists completed analysis reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report Report) error
	GetReport(ctx context.Context, reportID string) (Report, error)
}

// BlobStore writes raw artifacts (the scrape dump) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Queue provides enqueue/dequeue semantics for analysis jobs.
type Queue interface {
	Enqueue(ctx context.Context, job QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Scraper fetches a URL and returns cleaned plain text. It never fails:
// any fetch or parse error degrades to empty content, and the pipeline is
// expected to run on the empty seed.
type Scraper interface {
	Scrape(ctx context.Context, url string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job and report IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
