package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/analysis"
)

func TestQueueRoundTrip(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()

	item := analysis.QueueItem{
		JobID:  "job-1",
		Params: analysis.JobParameters{URL: "https://example.com"},
	}
	require.NoError(t, q.Enqueue(ctx, item))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, item, got)
}

func TestEnqueueBlocksUntilContextEnds(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, analysis.QueueItem{JobID: "a"}))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(short, analysis.QueueItem{JobID: "b"})
	require.ErrorContains(t, err, "enqueue canceled")
}

func TestDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(short)
	require.ErrorContains(t, err, "dequeue canceled")
}

func TestCloseDrainsThenReportsClosed(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, analysis.QueueItem{JobID: "a"}))

	q.Close()
	q.Close() // idempotent

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", got.JobID)

	_, err = q.Dequeue(ctx)
	require.ErrorIs(t, err, ErrClosed)
}
