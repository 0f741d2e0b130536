package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/analysis"
	queuemem "github.com/pagelens/pagelens/internal/queue/memory"
)

func TestEnqueueProxiesToQueue(t *testing.T) {
	t.Parallel()

	q := queuemem.NewQueue(1)
	d := New(q, nil)

	item := analysis.QueueItem{JobID: "job-1"}
	require.NoError(t, d.Enqueue(context.Background(), item))

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, item, got)
}

func TestEnqueueWrapsError(t *testing.T) {
	t.Parallel()

	q := queuemem.NewQueue(0)
	d := New(q, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Enqueue(ctx, analysis.QueueItem{JobID: "job-1"})
	require.ErrorContains(t, err, "queue enqueue")
}

func TestRunReturnsAfterCancel(t *testing.T) {
	t.Parallel()

	d := New(queuemem.NewQueue(1), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
