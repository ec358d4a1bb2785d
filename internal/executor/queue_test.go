package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/serialcore/internal/serialqueue"
)

// recordingContext performs work serially and counts how often it was asked to.
type recordingContext struct {
	q *serialqueue.Queue

	mu       sync.Mutex
	performs int
}

func (c *recordingContext) Perform(fn func()) {
	c.mu.Lock()
	c.performs++
	c.mu.Unlock()
	c.q.Async(fn)
}

func TestQueueExecutorRunsInSubmissionOrder(t *testing.T) {
	t.Parallel()

	q := serialqueue.New("jobs")
	e := NewQueueExecutor(q)

	var log []int
	for i := 0; i < 300; i++ {
		e.Enqueue(func() { log = append(log, i) })
	}
	q.Close()

	require.Len(t, log, 300)
	for i, v := range log {
		require.Equal(t, i, v)
	}
}

func TestQueueExecutorSharesQueueOrdering(t *testing.T) {
	t.Parallel()

	q := serialqueue.New("shared")
	defer q.Close()
	e := NewQueueExecutor(q)

	var log []string
	e.Enqueue(func() { log = append(log, "executor-1") })
	q.Async(func() { log = append(log, "direct") })
	e.Enqueue(func() { log = append(log, "executor-2") })
	q.Sync(func() {})

	require.Equal(t, []string{"executor-1", "direct", "executor-2"}, log)
}

func TestAwaitOnQueueExecutor(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := serialqueue.New("await")
	defer q.Close()
	e := NewQueueExecutor(q)

	got, err := Await(ctx, e, func() (string, error) { return "queued", nil })
	require.NoError(t, err)
	require.Equal(t, "queued", got)

	_, err = Await(ctx, e, func() (string, error) { return "", errCustomBoom })
	require.Same(t, errCustomBoom, err)
}

func TestGraphExecutorUsesContextPerform(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	gc := &recordingContext{q: serialqueue.New("graph")}
	defer gc.q.Close()
	e := NewGraphExecutor(gc)

	var log []int
	for i := 0; i < 50; i++ {
		e.Enqueue(func() { log = append(log, i) })
	}
	got, err := Await(ctx, e, func() ([]int, error) { return log, nil })
	require.NoError(t, err)
	require.Len(t, got, 50)
	for i, v := range got {
		require.Equal(t, i, v)
	}

	gc.mu.Lock()
	defer gc.mu.Unlock()
	require.Equal(t, 51, gc.performs)
}

func TestNilJobPanics(t *testing.T) {
	t.Parallel()

	q := serialqueue.New("nil")
	defer q.Close()
	require.Panics(t, func() { NewQueueExecutor(q).Enqueue(nil) })
	require.Panics(t, func() { NewQueueExecutor(nil) })
}
