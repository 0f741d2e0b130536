package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func noopRun(_ context.Context, _ Record) (Update, error) {
	return Update{}, nil
}

func TestValidateChain(t *testing.T) {
	t.Parallel()

	seed := SeedFields()

	tests := []struct {
		name    string
		steps   []Step
		wantErr string
	}{
		{
			name: "valid chain with downstream dependency",
			steps: []Step{
				{Name: "extract_content_tags", Inputs: []Field{FieldScrapedContent}, Outputs: []Field{FieldTags}, Run: noopRun},
				{Name: "suggest_related_topics", Inputs: []Field{FieldScrapedContent, FieldTags}, Outputs: []Field{FieldRelatedTopics}, Run: noopRun},
			},
		},
		{
			name: "input provided by later step is rejected",
			steps: []Step{
				{Name: "suggest_related_topics", Inputs: []Field{FieldScrapedContent, FieldTags}, Outputs: []Field{FieldRelatedTopics}, Run: noopRun},
				{Name: "extract_content_tags", Inputs: []Field{FieldScrapedContent}, Outputs: []Field{FieldTags}, Run: noopRun},
			},
			wantErr: "no seed field or earlier step provides",
		},
		{
			name: "duplicate output owner is rejected",
			steps: []Step{
				{Name: "a", Inputs: []Field{FieldScrapedContent}, Outputs: []Field{FieldSummary}, Run: noopRun},
				{Name: "b", Inputs: []Field{FieldScrapedContent}, Outputs: []Field{FieldSummary}, Run: noopRun},
			},
			wantErr: `both write "summary"`,
		},
		{
			name: "seed field as output is rejected",
			steps: []Step{
				{Name: "a", Inputs: []Field{FieldScrapedContent}, Outputs: []Field{FieldScrapedContent}, Run: noopRun},
			},
			wantErr: "writes seed field",
		},
		{
			name:    "unnamed step is rejected",
			steps:   []Step{{Inputs: []Field{FieldScrapedContent}, Outputs: []Field{FieldSummary}, Run: noopRun}},
			wantErr: "has no name",
		},
		{
			name:    "missing run function is rejected",
			steps:   []Step{{Name: "a", Inputs: []Field{FieldScrapedContent}, Outputs: []Field{FieldSummary}}},
			wantErr: "has no run function",
		},
		{
			name:    "missing outputs are rejected",
			steps:   []Step{{Name: "a", Inputs: []Field{FieldScrapedContent}, Run: noopRun}},
			wantErr: "declares no outputs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateChain(seed, tt.steps)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
