package analysis

import "time"

// JobStatus represents the lifecycle state of an analysis job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobParameters captures per-job knobs requested by the client.
type JobParameters struct {
	URL         string            `json:"url"`
	OnStepError string            `json:"on_step_error,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Job is the metadata persisted for each submitted analysis request.
type Job struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	Submitted  time.Time     `json:"submitted_at"`
	Started    *time.Time    `json:"started_at,omitempty"`
	Finished   *time.Time    `json:"finished_at,omitempty"`
	ErrorText  string        `json:"error_text,omitempty"`
	ReportID   string        `json:"report_id,omitempty"`
	Parameters JobParameters `json:"parameters"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    JobParameters
	Attempt   int
	Submitted int64
}

// Report is the persisted result of one completed analysis run.
type Report struct {
	ID        string        `json:"id"`
	JobID     string        `json:"job_id,omitempty"`
	URL       string        `json:"url"`
	CreatedAt time.Time     `json:"created_at"`
	Record    Record        `json:"record"`
	Steps     []StepOutcome `json:"steps"`
}
