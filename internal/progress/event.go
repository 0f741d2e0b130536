// Package progress defines the event stream emitted by analysis runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages. Run stages bound a whole pipeline execution;
// step stages mark individual analysis steps inside it.
const (
	StageRunStart  Stage = "RUN_START"
	StageRunDone   Stage = "RUN_DONE"
	StageRunError  Stage = "RUN_ERROR"
	StageStepStart Stage = "STEP_START"
	StageStepDone  Stage = "STEP_DONE"
	StageStepError Stage = "STEP_ERROR"
)

// Event captures a single milestone of an analysis run.
type Event struct {
	// RunID uniquely identifies a pipeline run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which run or step milestone occurred.
	Stage Stage
	// Step is the step name; required for step stages.
	Step string
	// URL is the page under analysis.
	URL string
	// Dur captures execution latency for step and run completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageStepStart, StageStepDone, StageStepError:
		if e.Step == "" {
			return fmt.Errorf("%s requires a step name", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
