package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pagelens/pagelens/internal/analysis"
)

// JSONWriter outputs reports as indented JSON.
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

// Write renders the report as JSON.
func (w *JSONWriter) Write(report analysis.Report) (int, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	n, err := w.output.Write(data)
	if err != nil {
		return n, fmt.Errorf("write report: %w", err)
	}
	return n, nil
}
