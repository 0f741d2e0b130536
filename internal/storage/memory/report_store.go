package memory

import (
	"context"
	"sync"

	"github.com/pagelens/pagelens/internal/analysis"
)

// ReportStore keeps completed reports in-memory.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]analysis.Report
}

// NewReportStore constructs a ReportStore.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]analysis.Report),
	}
}

// SaveReport persists a report, overwriting any previous version.
func (s *ReportStore) SaveReport(_ context.Context, report analysis.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report.Record = report.Record.Clone()
	s.reports[report.ID] = report
	return nil
}

// GetReport returns a stored report by ID.
func (s *ReportStore) GetReport(_ context.Context, reportID string) (analysis.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[reportID]
	if !ok {
		return analysis.Report{}, ErrNotFound
	}
	report.Record = report.Record.Clone()
	return report, nil
}
