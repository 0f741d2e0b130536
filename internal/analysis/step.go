package analysis

import (
	"context"
	"fmt"
	"time"
)

// RunFunc is the body of a step: given a snapshot of the current Record it
// returns the partial update for the field(s) the step owns.
type RunFunc func(ctx context.Context, rec Record) (Update, error)

// Step is one LLM-backed analysis unit with declared input/output fields.
// A step may read only its declared inputs and must write exactly its
// declared outputs.
type Step struct {
	Name    string
	Inputs  []Field
	Outputs []Field
	Run     RunFunc
}

// ValidateChain checks a step chain at construction time: every step's
// declared inputs must be covered by the seed fields plus the outputs of all
// earlier steps, and no two steps may write the same field. A bad chain is a
// configuration error, surfaced before the first run rather than during one.
func ValidateChain(seed []Field, steps []Step) error {
	available := make(map[Field]bool, len(seed))
	for _, f := range seed {
		available[f] = true
	}
	owners := make(map[Field]string)

	for i, step := range steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i)
		}
		if step.Run == nil {
			return fmt.Errorf("step %q has no run function", step.Name)
		}
		if len(step.Outputs) == 0 {
			return fmt.Errorf("step %q declares no outputs", step.Name)
		}
		for _, in := range step.Inputs {
			if !available[in] {
				return fmt.Errorf(
					"step %q reads %q, which no seed field or earlier step provides",
					step.Name, in,
				)
			}
		}
		for _, out := range step.Outputs {
			if owner, taken := owners[out]; taken {
				return fmt.Errorf(
					"steps %q and %q both write %q", owner, step.Name, out,
				)
			}
			if available[out] {
				return fmt.Errorf("step %q writes seed field %q", step.Name, out)
			}
			owners[out] = step.Name
			available[out] = true
		}
	}
	return nil
}

// StepStatus is the outcome classification for one executed step.
type StepStatus string

// Step outcome values recorded per run.
const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// StepOutcome records what happened to a single step during a run.
type StepOutcome struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}
