// Package analysis defines core types shared across subsystems.
package analysis

import "fmt"

// Field names a slot in the analysis Record.
type Field string

// Seed fields present before any step runs, and the nine output fields,
// one per step.
const (
	FieldURL            Field = "url"
	FieldScrapedContent Field = "scraped_content"
	FieldClassification Field = "classification"
	FieldSummary        Field = "summary"
	FieldTags           Field = "tags"
	FieldRelatedTopics  Field = "related_topics"
	FieldSentiment      Field = "sentiment"
	FieldKeyPhrases     Field = "key_phrases"
	FieldReadability    Field = "readability"
	FieldFactsToVerify  Field = "facts_to_verify"
	FieldStructure      Field = "structure"
)

// SeedFields are the Record fields populated before the first step runs.
func SeedFields() []Field {
	return []Field{FieldURL, FieldScrapedContent}
}

var listFields = map[Field]bool{
	FieldTags:          true,
	FieldRelatedTopics: true,
	FieldKeyPhrases:    true,
	FieldFactsToVerify: true,
}

// IsListField reports whether the field holds an ordered string sequence
// rather than a single string.
func IsListField(f Field) bool {
	return listFields[f]
}

// Value is the payload for one field: scalar fields use Text, list fields
// use List. Exactly one side is meaningful for a given field.
type Value struct {
	Text string   `json:"text,omitempty"`
	List []string `json:"list,omitempty"`
}

// Scalar wraps a string payload.
func Scalar(text string) Value {
	return Value{Text: text}
}

// List wraps an ordered string sequence payload.
func List(items []string) Value {
	return Value{List: items}
}

// Update is the partial record a single step contributes. Keys are disjoint
// across steps by construction, so merging is add-or-overwrite per key.
type Update map[Field]Value

// Record is the single evolving structure carrying all analysis results for
// one pipeline run. It is a value type: Merge returns a new Record, and the
// original is never mutated, so a snapshot handed to a step stays stable
// even while other steps complete.
type Record struct {
	URL            string   `json:"url"`
	ScrapedContent string   `json:"scraped_content"`
	Classification string   `json:"classification,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	RelatedTopics  []string `json:"related_topics,omitempty"`
	Sentiment      string   `json:"sentiment,omitempty"`
	KeyPhrases     []string `json:"key_phrases,omitempty"`
	Readability    string   `json:"readability,omitempty"`
	FactsToVerify  []string `json:"facts_to_verify,omitempty"`
	Structure      string   `json:"structure,omitempty"`

	written map[Field]bool
}

// NewRecord seeds a Record for one run.
func NewRecord(url, scrapedContent string) Record {
	rec := Record{URL: url, ScrapedContent: scrapedContent}
	rec.written = map[Field]bool{
		FieldURL:            true,
		FieldScrapedContent: true,
	}
	return rec
}

// Has reports whether the field has been written.
func (r Record) Has(f Field) bool {
	return r.written[f]
}

// Get returns the current value of a field and whether it has been written.
func (r Record) Get(f Field) (Value, bool) {
	if !r.written[f] {
		return Value{}, false
	}
	switch f {
	case FieldURL:
		return Scalar(r.URL), true
	case FieldScrapedContent:
		return Scalar(r.ScrapedContent), true
	case FieldClassification:
		return Scalar(r.Classification), true
	case FieldSummary:
		return Scalar(r.Summary), true
	case FieldTags:
		return List(r.Tags), true
	case FieldRelatedTopics:
		return List(r.RelatedTopics), true
	case FieldSentiment:
		return Scalar(r.Sentiment), true
	case FieldKeyPhrases:
		return List(r.KeyPhrases), true
	case FieldReadability:
		return Scalar(r.Readability), true
	case FieldFactsToVerify:
		return List(r.FactsToVerify), true
	case FieldStructure:
		return Scalar(r.Structure), true
	default:
		return Value{}, false
	}
}

// Merge returns a copy of the Record with every key in the update set to the
// corresponding value. Overwrite semantics; merging the same update twice
// yields the same Record as merging it once. Unknown fields are an error
// because no step may invent a slot the Record does not carry.
func (r Record) Merge(update Update) (Record, error) {
	out := r.clone()
	for field, value := range update {
		if err := out.set(field, value); err != nil {
			return Record{}, err
		}
	}
	return out, nil
}

// Clone returns a deep copy safe to hand to a concurrently running step.
func (r Record) Clone() Record {
	return r.clone()
}

func (r Record) clone() Record {
	out := r
	out.Tags = cloneStrings(r.Tags)
	out.RelatedTopics = cloneStrings(r.RelatedTopics)
	out.KeyPhrases = cloneStrings(r.KeyPhrases)
	out.FactsToVerify = cloneStrings(r.FactsToVerify)
	out.written = make(map[Field]bool, len(r.written))
	for f := range r.written {
		out.written[f] = true
	}
	return out
}

func (r *Record) set(f Field, v Value) error {
	switch f {
	case FieldURL:
		r.URL = v.Text
	case FieldScrapedContent:
		r.ScrapedContent = v.Text
	case FieldClassification:
		r.Classification = v.Text
	case FieldSummary:
		r.Summary = v.Text
	case FieldTags:
		r.Tags = cloneStrings(v.List)
	case FieldRelatedTopics:
		r.RelatedTopics = cloneStrings(v.List)
	case FieldSentiment:
		r.Sentiment = v.Text
	case FieldKeyPhrases:
		r.KeyPhrases = cloneStrings(v.List)
	case FieldReadability:
		r.Readability = v.Text
	case FieldFactsToVerify:
		r.FactsToVerify = cloneStrings(v.List)
	case FieldStructure:
		r.Structure = v.Text
	default:
		return fmt.Errorf("unknown record field %q", f)
	}
	if r.written == nil {
		r.written = make(map[Field]bool)
	}
	r.written[f] = true
	return nil
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
