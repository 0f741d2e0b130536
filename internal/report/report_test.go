package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/analysis"
)

func sampleReport(t *testing.T) analysis.Report {
	t.Helper()
	rec := analysis.NewRecord("https://example.com", "body text")
	rec, err := rec.Merge(analysis.Update{
		analysis.FieldClassification: analysis.Scalar("Technology"),
		analysis.FieldSummary:        analysis.Scalar("A page about examples."),
		analysis.FieldTags:           analysis.List([]string{"examples", "web"}),
		analysis.FieldSentiment:      analysis.Scalar("Score: 0, Explanation: neutral."),
	})
	require.NoError(t, err)

	return analysis.Report{
		ID:        "report-1",
		JobID:     "job-1",
		URL:       "https://example.com",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Record:    rec,
		Steps: []analysis.StepOutcome{
			{Name: "classify_content", Status: analysis.StepSucceeded, Duration: time.Second},
			{Name: "summarize_content", Status: analysis.StepFailed, Error: "model unavailable"},
		},
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewMarkdownWriter(&buf).Write(sampleReport(t))
	require.NoError(t, err)
	require.Positive(t, n)

	out := buf.String()
	require.Contains(t, out, "# Page Analysis Report")
	require.Contains(t, out, "`https://example.com`")
	require.Contains(t, out, "## Classification")
	require.Contains(t, out, "Technology")
	require.Contains(t, out, "- examples")
	require.Contains(t, out, "1 of 2 steps failed")
	require.Contains(t, out, "model unavailable")
	// Unpopulated fields render as (none) rather than vanishing.
	require.Contains(t, out, "(none)")
}

func TestMarkdownWriterEmptyRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, err := NewMarkdownWriter(&buf).Write(analysis.Report{
		ID:     "r",
		URL:    "https://example.com",
		Record: analysis.NewRecord("https://example.com", ""),
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "no steps ran")
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, err := NewJSONWriter(&buf).Write(sampleReport(t))
	require.NoError(t, err)

	var decoded analysis.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "report-1", decoded.ID)
	require.Equal(t, "Technology", decoded.Record.Classification)
	require.Len(t, decoded.Steps, 2)
}
