package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	copy(out, s.batches)
	return out
}

func (s *stubSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func sampleEvent(stage Stage) Event {
	evt := Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: stage,
		URL:   "http://example.com",
	}
	switch stage {
	case StageStepStart, StageStepDone, StageStepError:
		evt.Step = "classify_content"
	}
	return evt
}

// TestHubBatchBySize verifies the hub flushes once the batch size limit is reached.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     8,
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Minute,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageRunStart))
	hub.Emit(sampleEvent(StageStepDone))
	require.Eventually(t, func() bool {
		batches := sink.Batches()
		return len(batches) == 1 && len(batches[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies the timer-based flush kicks in when the batch is small.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 10,
		MaxBatchWait:   25 * time.Millisecond,
	}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageRunStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubDropsInvalidEvents asserts events failing validation never reach sinks.
func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(Event{}) // missing run id and timestamp
	hub.Emit(Event{RunID: UUIDToBytes(uuid.New()), TS: time.Now(), Stage: StageStepDone}) // missing step

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

// TestHubCloseDrainsAndClosesSinks verifies buffered events flush on close.
func TestHubCloseDrainsAndClosesSinks(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{
		BufferSize:     16,
		MaxBatchEvents: 100,
		MaxBatchWait:   time.Minute,
	}, sink)

	for range 5 {
		hub.Emit(sampleEvent(StageStepDone))
	}
	require.NoError(t, hub.Close(context.Background()))

	total := 0
	for _, batch := range sink.Batches() {
		total += len(batch)
	}
	require.Equal(t, 5, total)
	require.True(t, sink.Closed())

	// Emit after close is a no-op.
	hub.Emit(sampleEvent(StageRunStart))
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := sampleEvent(StageStepDone)
	require.NoError(t, valid.Validate())

	missingStep := valid
	missingStep.Step = ""
	require.Error(t, missingStep.Validate())

	unknown := valid
	unknown.Stage = Stage("WAT")
	require.Error(t, unknown.Validate())

	negative := valid
	negative.Dur = -time.Second
	require.Error(t, negative.Validate())
}
