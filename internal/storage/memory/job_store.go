package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pagelens/pagelens/internal/analysis"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// JobStore provides an in-memory JobStore implementation.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]analysis.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]analysis.Job),
	}
}

// CreateJob stores a new job in queued status.
func (s *JobStore) CreateJob(_ context.Context, job analysis.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus updates status and timestamps for a job.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status analysis.JobStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.ErrorText = errText
	now := time.Now().UTC()
	if status == analysis.JobStatusRunning && job.Started == nil {
		job.Started = &now
	}
	if isTerminal(status) && job.Finished == nil {
		job.Finished = &now
	}
	s.jobs[jobID] = job
	return nil
}

// AttachReport links a completed report to its job.
func (s *JobStore) AttachReport(_ context.Context, jobID, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.ReportID = reportID
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (analysis.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return analysis.Job{}, ErrNotFound
	}
	return job, nil
}

func isTerminal(status analysis.JobStatus) bool {
	switch status {
	case analysis.JobStatusSucceeded, analysis.JobStatusFailed, analysis.JobStatusCanceled:
		return true
	default:
		return false
	}
}
