// Package steps defines the nine LLM-backed analysis steps and their fixed
// chain order.
package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/llm"
)

// Step names, fixed by the chain order in Chain.
const (
	NameClassify      = "classify_content"
	NameSummarize     = "summarize_content"
	NameExtractTags   = "extract_content_tags"
	NameSuggestTopics = "suggest_related_topics"
	NameSentiment     = "analyze_sentiment"
	NameKeyPhrases    = "extract_key_phrases"
	NameReadability   = "analyze_readability"
	NameCheckFacts    = "check_facts"
	NameStructure     = "analyze_structure"
)

// List-valued steps split the trimmed completion on a fixed delimiter. The
// split is naive on purpose: no quoting awareness, and a delimiter-free
// response degrades to a single-element list.
const (
	commaDelimiter   = ", "
	newlineDelimiter = "\n"
)

// Chain returns the nine steps in their fixed execution order. Every step
// reads the scraped content; suggest_related_topics additionally reads the
// tags produced earlier in the chain.
func Chain(client llm.Client) []analysis.Step {
	return []analysis.Step{
		Classify(client),
		Summarize(client),
		ExtractTags(client),
		SuggestRelatedTopics(client),
		AnalyzeSentiment(client),
		ExtractKeyPhrases(client),
		AnalyzeReadability(client),
		CheckFacts(client),
		AnalyzeStructure(client),
	}
}

// Classify categorizes the content into one of a fixed set of categories.
func Classify(client llm.Client) analysis.Step {
	return contentStep(client, NameClassify, FieldPromptClassify, analysis.FieldClassification)
}

// Summarize produces a 2-3 sentence summary.
func Summarize(client llm.Client) analysis.Step {
	return contentStep(client, NameSummarize, FieldPromptSummarize, analysis.FieldSummary)
}

// ExtractTags pulls 5-7 topical tags as a comma-separated list.
func ExtractTags(client llm.Client) analysis.Step {
	return contentListStep(client, NameExtractTags, FieldPromptTags, analysis.FieldTags, commaDelimiter)
}

// SuggestRelatedTopics proposes follow-up topics based on the content and
// the tags extracted earlier. This is the only step with a dependency beyond
// the seed content, satisfied by chain order.
func SuggestRelatedTopics(client llm.Client) analysis.Step {
	return analysis.Step{
		Name:    NameSuggestTopics,
		Inputs:  []analysis.Field{analysis.FieldScrapedContent, analysis.FieldTags},
		Outputs: []analysis.Field{analysis.FieldRelatedTopics},
		Run: func(ctx context.Context, rec analysis.Record) (analysis.Update, error) {
			prompt := fmt.Sprintf(FieldPromptTopics, rec.ScrapedContent, strings.Join(rec.Tags, ", "))
			raw, err := client.Complete(ctx, prompt)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", NameSuggestTopics, err)
			}
			return analysis.Update{
				analysis.FieldRelatedTopics: analysis.List(splitList(raw, commaDelimiter)),
			}, nil
		},
	}
}

// AnalyzeSentiment scores the sentiment with a free-text explanation.
func AnalyzeSentiment(client llm.Client) analysis.Step {
	return contentStep(client, NameSentiment, FieldPromptSentiment, analysis.FieldSentiment)
}

// ExtractKeyPhrases pulls key phrases and quotes, one per line.
func ExtractKeyPhrases(client llm.Client) analysis.Step {
	return contentListStep(client, NameKeyPhrases, FieldPromptKeyPhrases, analysis.FieldKeyPhrases, newlineDelimiter)
}

// AnalyzeReadability rates complexity and suggests a target audience.
func AnalyzeReadability(client llm.Client) analysis.Step {
	return contentStep(client, NameReadability, FieldPromptReadability, analysis.FieldReadability)
}

// CheckFacts flags claims that need verification, one per line.
func CheckFacts(client llm.Client) analysis.Step {
	return contentListStep(client, NameCheckFacts, FieldPromptFacts, analysis.FieldFactsToVerify, newlineDelimiter)
}

// AnalyzeStructure describes the organization of the content.
func AnalyzeStructure(client llm.Client) analysis.Step {
	return contentStep(client, NameStructure, FieldPromptStructure, analysis.FieldStructure)
}

// contentStep builds a scalar-output step whose prompt takes only the
// scraped content.
func contentStep(client llm.Client, name, promptTmpl string, output analysis.Field) analysis.Step {
	return analysis.Step{
		Name:    name,
		Inputs:  []analysis.Field{analysis.FieldScrapedContent},
		Outputs: []analysis.Field{output},
		Run: func(ctx context.Context, rec analysis.Record) (analysis.Update, error) {
			raw, err := client.Complete(ctx, fmt.Sprintf(promptTmpl, rec.ScrapedContent))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return analysis.Update{output: analysis.Scalar(strings.TrimSpace(raw))}, nil
		},
	}
}

// contentListStep builds a list-output step whose prompt takes only the
// scraped content.
func contentListStep(client llm.Client, name, promptTmpl string, output analysis.Field, delimiter string) analysis.Step {
	return analysis.Step{
		Name:    name,
		Inputs:  []analysis.Field{analysis.FieldScrapedContent},
		Outputs: []analysis.Field{output},
		Run: func(ctx context.Context, rec analysis.Record) (analysis.Update, error) {
			raw, err := client.Complete(ctx, fmt.Sprintf(promptTmpl, rec.ScrapedContent))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return analysis.Update{output: analysis.List(splitList(raw, delimiter))}, nil
		},
	}
}

// splitList trims the raw completion, then splits on the delimiter. Order of
// operations matters: trimming happens once, before the split, so interior
// items keep their surrounding whitespace exactly as returned.
func splitList(raw, delimiter string) []string {
	return strings.Split(strings.TrimSpace(raw), delimiter)
}
