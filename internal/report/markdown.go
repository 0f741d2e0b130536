// Package report renders completed analysis reports for humans and machines.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/pagelens/pagelens/internal/analysis"
)

// MarkdownWriter outputs reports in Markdown format for documentation and
// sharing.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the full report and returns its length in bytes.
func (w *MarkdownWriter) Write(report analysis.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeRecord(md, report.Record)
	w.writeSteps(md, report.Steps)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report analysis.Report) {
	md.H1("Page Analysis Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + report.URL + "`"},
			{"Report ID", report.ID},
			{"Generated", report.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", statusText(report.Steps)},
		},
	})
	md.PlainText("")
}

func statusText(steps []analysis.StepOutcome) string {
	failed := 0
	for _, s := range steps {
		if s.Status == analysis.StepFailed {
			failed++
		}
	}
	switch {
	case len(steps) == 0:
		return "no steps ran"
	case failed == 0:
		return "complete"
	default:
		return fmt.Sprintf("%d of %d steps failed", failed, len(steps))
	}
}

func (w *MarkdownWriter) writeRecord(md *markdown.Markdown, rec analysis.Record) {
	md.H2("Classification")
	md.PlainText(orNone(rec.Classification))
	md.PlainText("")

	md.H2("Summary")
	md.PlainText(orNone(rec.Summary))
	md.PlainText("")

	md.H2("Tags")
	writeList(md, rec.Tags)

	md.H2("Related Topics")
	writeList(md, rec.RelatedTopics)

	md.H2("Sentiment")
	md.PlainText(orNone(rec.Sentiment))
	md.PlainText("")

	md.H2("Key Phrases")
	writeList(md, rec.KeyPhrases)

	md.H2("Readability")
	md.PlainText(orNone(rec.Readability))
	md.PlainText("")

	md.H2("Facts to Verify")
	writeList(md, rec.FactsToVerify)

	md.H2("Structure")
	md.PlainText(orNone(rec.Structure))
	md.PlainText("")
}

func (w *MarkdownWriter) writeSteps(md *markdown.Markdown, steps []analysis.StepOutcome) {
	if len(steps) == 0 {
		return
	}
	md.H2("Step Outcomes")
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		note := s.Error
		if note == "" {
			note = "-"
		}
		rows = append(rows, []string{s.Name, string(s.Status), s.Duration.String(), note})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Step", "Status", "Duration", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeList(md *markdown.Markdown, items []string) {
	if len(items) == 0 {
		md.PlainText("(none)")
		md.PlainText("")
		return
	}
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		cleaned = append(cleaned, strings.TrimSpace(item))
	}
	md.BulletList(cleaned...)
	md.PlainText("")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
