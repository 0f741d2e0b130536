// Package llm provides the completion client used by the analysis steps.
package llm

import "context"

// Client produces a completion for a rendered prompt. One call per step,
// synchronous, no streaming; retry behavior is internal to the
// implementation and invisible to callers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
