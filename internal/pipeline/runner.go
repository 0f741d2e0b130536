// Package pipeline executes analysis step chains over a seed record.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/progress"
)

// ErrorPolicy decides what the runner does when a step fails.
type ErrorPolicy string

// Supported error policies.
const (
	// PolicyAbort stops the run at the first step failure and returns the
	// partial record. This is the default.
	PolicyAbort ErrorPolicy = "abort"
	// PolicyContinue substitutes a placeholder for the failed step's fields
	// and keeps going.
	PolicyContinue ErrorPolicy = "continue"
)

const defaultPlaceholder = "(analysis unavailable)"

// Config controls Runner behavior.
type Config struct {
	// Concurrency caps how many steps run at once. 1 preserves the strict
	// sequential left-to-right semantics; higher values schedule a step as
	// soon as its declared inputs are merged. The final record is identical
	// either way because updates merge in declaration order.
	Concurrency int
	// OnStepError selects the failure policy.
	OnStepError ErrorPolicy
	// Placeholder is the value substituted under PolicyContinue.
	Placeholder string
}

// Result is the outcome of one pipeline execution.
type Result struct {
	Record analysis.Record        `json:"record"`
	Steps  []analysis.StepOutcome `json:"steps"`
}

// Runner executes a validated step chain. Construct with New; the zero
// value is not usable.
type Runner struct {
	steps   []analysis.Step
	cfg     Config
	logger  *zap.Logger
	emitter progress.Emitter
}

// New validates the chain against the seed fields and builds a Runner.
// Chain problems (an input no earlier step provides, two steps writing the
// same field) fail here, at configuration time.
func New(steps []analysis.Step, cfg Config, logger *zap.Logger, emitter progress.Emitter) (*Runner, error) {
	if err := analysis.ValidateChain(analysis.SeedFields(), steps); err != nil {
		return nil, fmt.Errorf("validate step chain: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	switch cfg.OnStepError {
	case "":
		cfg.OnStepError = PolicyAbort
	case PolicyAbort, PolicyContinue:
	default:
		return nil, fmt.Errorf("unknown error policy %q", cfg.OnStepError)
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = defaultPlaceholder
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	return &Runner{
		steps:   append([]analysis.Step(nil), steps...),
		cfg:     cfg,
		logger:  logger,
		emitter: emitter,
	}, nil
}

// Execute runs the chain over the seed record and returns the final record
// with per-step outcomes. Under PolicyAbort a step failure returns the
// partial result and a non-nil error; under PolicyContinue the error is nil
// and failures are visible in the outcomes.
func (r *Runner) Execute(ctx context.Context, seed analysis.Record) (Result, error) {
	runID := progress.UUIDToBytes(uuid.New())
	start := time.Now()
	r.emit(progress.Event{
		RunID: runID,
		TS:    start.UTC(),
		Stage: progress.StageRunStart,
		URL:   seed.URL,
	})

	res, err := r.execute(ctx, runID, seed)

	evt := progress.Event{
		RunID: runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageRunDone,
		URL:   seed.URL,
		Dur:   time.Since(start),
	}
	if err != nil {
		evt.Stage = progress.StageRunError
		evt.Note = err.Error()
	}
	r.emit(evt)
	return res, err
}

func (r *Runner) execute(ctx context.Context, runID [16]byte, seed analysis.Record) (Result, error) {
	if r.cfg.Concurrency == 1 {
		return r.executeSequential(ctx, runID, seed)
	}
	return r.executeConcurrent(ctx, runID, seed)
}

func (r *Runner) executeSequential(ctx context.Context, runID [16]byte, seed analysis.Record) (Result, error) {
	rec := seed
	outcomes := make([]analysis.StepOutcome, 0, len(r.steps))

	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			return Result{Record: rec, Steps: outcomes}, fmt.Errorf("run canceled: %w", err)
		}
		sr := r.runStep(ctx, runID, step, rec)
		outcomes = append(outcomes, sr.outcome)

		if sr.err != nil && r.cfg.OnStepError == PolicyAbort {
			return Result{Record: rec, Steps: outcomes}, fmt.Errorf("step %s: %w", step.Name, sr.err)
		}

		merged, err := rec.Merge(sr.update)
		if err != nil {
			return Result{Record: rec, Steps: outcomes}, fmt.Errorf("merge %s update: %w", step.Name, err)
		}
		rec = merged
	}
	return Result{Record: rec, Steps: outcomes}, nil
}

// executeConcurrent runs the chain in waves: every step whose declared
// inputs are already merged runs in the current wave, bounded by
// Concurrency. Completed updates merge in declaration order so the final
// record matches a sequential run regardless of completion order.
func (r *Runner) executeConcurrent(ctx context.Context, runID [16]byte, seed analysis.Record) (Result, error) {
	rec := seed
	outcomes := make([]analysis.StepOutcome, 0, len(r.steps))
	remaining := append([]analysis.Step(nil), r.steps...)

	for len(remaining) > 0 {
		ready, deferred := partitionReady(rec, remaining)
		if len(ready) == 0 {
			// Unreachable after chain validation.
			return Result{Record: rec, Steps: outcomes}, fmt.Errorf(
				"pipeline stalled: %d steps with unsatisfied inputs", len(remaining),
			)
		}

		results := make([]stepResult, len(ready))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Concurrency)
		for i, step := range ready {
			g.Go(func() error {
				results[i] = r.runStep(gctx, runID, step, rec)
				if results[i].err != nil && r.cfg.OnStepError == PolicyAbort {
					return results[i].err
				}
				return nil
			})
		}
		groupErr := g.Wait()

		// Merge in declaration order, stopping at the first failure under
		// the abort policy -- identical to where a sequential run stops.
		for i, sr := range results {
			outcomes = append(outcomes, sr.outcome)
			if sr.err != nil && r.cfg.OnStepError == PolicyAbort {
				return Result{Record: rec, Steps: outcomes}, fmt.Errorf("step %s: %w", ready[i].Name, sr.err)
			}
			merged, err := rec.Merge(sr.update)
			if err != nil {
				return Result{Record: rec, Steps: outcomes}, fmt.Errorf("merge %s update: %w", ready[i].Name, err)
			}
			rec = merged
		}
		if groupErr != nil {
			// Abort policy with a failure that produced no outcome (context
			// cancellation raced the scheduler).
			return Result{Record: rec, Steps: outcomes}, groupErr
		}
		remaining = deferred
	}
	return Result{Record: rec, Steps: outcomes}, nil
}

type stepResult struct {
	update  analysis.Update
	outcome analysis.StepOutcome
	err     error
}

// runStep executes one step over a snapshot of the record, emitting progress
// events and substituting the placeholder update on failure.
func (r *Runner) runStep(ctx context.Context, runID [16]byte, step analysis.Step, rec analysis.Record) stepResult {
	r.emit(progress.Event{
		RunID: runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageStepStart,
		Step:  step.Name,
		URL:   rec.URL,
	})

	start := time.Now()
	update, err := step.Run(ctx, rec.Clone())
	dur := time.Since(start)

	outcome := analysis.StepOutcome{
		Name:     step.Name,
		Status:   analysis.StepSucceeded,
		Duration: dur,
	}
	evt := progress.Event{
		RunID: runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageStepDone,
		Step:  step.Name,
		URL:   rec.URL,
		Dur:   dur,
	}
	if err != nil {
		outcome.Status = analysis.StepFailed
		outcome.Error = err.Error()
		evt.Stage = progress.StageStepError
		evt.Note = err.Error()
		update = r.placeholderUpdate(step)
		r.logger.Warn("analysis step failed",
			zap.String("step", step.Name),
			zap.String("url", rec.URL),
			zap.Error(err),
		)
	}
	r.emit(evt)
	return stepResult{update: update, outcome: outcome, err: err}
}

func (r *Runner) placeholderUpdate(step analysis.Step) analysis.Update {
	update := make(analysis.Update, len(step.Outputs))
	for _, out := range step.Outputs {
		if analysis.IsListField(out) {
			update[out] = analysis.List([]string{r.cfg.Placeholder})
		} else {
			update[out] = analysis.Scalar(r.cfg.Placeholder)
		}
	}
	return update
}

func (r *Runner) emit(evt progress.Event) {
	r.emitter.Emit(evt)
}

// partitionReady splits steps into those whose declared inputs are all
// present in the record and those still waiting, preserving declaration
// order in both halves.
func partitionReady(rec analysis.Record, steps []analysis.Step) (ready, deferred []analysis.Step) {
	for _, step := range steps {
		if inputsSatisfied(rec, step) {
			ready = append(ready, step)
		} else {
			deferred = append(deferred, step)
		}
	}
	return ready, deferred
}

func inputsSatisfied(rec analysis.Record, step analysis.Step) bool {
	for _, in := range step.Inputs {
		if !rec.Has(in) {
			return false
		}
	}
	return true
}
