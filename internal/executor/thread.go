package executor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jask/serialcore/internal/future"
)

var (
	_ Executor = (*ThreadExecutor)(nil)
	_ Isolated = (*ThreadExecutor)(nil)
	_ Executor = (*QueueExecutor)(nil)
	_ Executor = (*GraphExecutor)(nil)
)

// Stats is a snapshot of a ThreadExecutor's counters.
type Stats struct {
	Enqueued     uint64
	Executed     uint64
	Rejected     uint64
	DroppedTicks uint64
}

// Option configures a ThreadExecutor.
type Option func(*thread)

// WithPriority sets the scheduling class of the dedicated thread.
func WithPriority(p Priority) Option {
	return func(t *thread) { t.priority = p }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *thread) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// ThreadExecutor owns a long-lived OS thread running an event loop and runs
// every job it accepts on that thread, in submission order.
//
// Lifecycle: starting (NewThreadExecutor) -> running -> stopping (Close) ->
// stopped (thread exited). An executor dropped without Close is stopped when
// the garbage collector reclaims it, without joining the thread.
type ThreadExecutor struct {
	t *thread
}

// thread is the state shared between the executor handle and the loop
// goroutine. It must not reference the ThreadExecutor so that the handle can
// become unreachable while the loop still runs.
type thread struct {
	name     string
	priority Priority
	logger   *slog.Logger

	keepAlive atomic.Bool
	loop      *loop
	stopOnce  sync.Once
	exited    chan struct{}

	timersMu sync.Mutex
	timers   map[uuid.UUID]*Timer

	enqueued     atomic.Uint64
	executed     atomic.Uint64
	rejected     atomic.Uint64
	droppedTicks atomic.Uint64
}

// NewThreadExecutor starts a dedicated thread called name and waits until its
// loop is ready to accept work. If ctx ends first the thread is torn down in
// the background and an error wrapping ErrStartup is returned.
func NewThreadExecutor(ctx context.Context, name string, opts ...Option) (*ThreadExecutor, error) {
	t := &thread{
		name:   name,
		logger: slog.Default(),
		exited: make(chan struct{}),
		timers: make(map[uuid.UUID]*Timer),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("executor", "thread", "thread", name)
	t.keepAlive.Store(true)

	published := future.New[*loop]()
	go t.main(published)

	if _, err := published.Wait(ctx); err != nil {
		go func() {
			_, _ = published.Wait(context.Background())
			t.stop()
		}()
		return nil, fmt.Errorf("%w: %s: %w", ErrStartup, name, err)
	}

	e := &ThreadExecutor{t: t}
	runtime.AddCleanup(e, func(t *thread) { t.stop() }, t)
	return e, nil
}

func (t *thread) main(published *future.Future[*loop]) {
	// The goroutine stays locked until it exits, which also retires the OS
	// thread together with the name and nice value applied below.
	runtime.LockOSThread()
	defer close(t.exited)

	tid := currentThreadID()
	logger := t.logger.With("tid", tid)
	if err := setThreadName(t.name); err != nil {
		logger.Warn("Could not name thread.", "error", err)
	}
	if nice := t.priority.Nice(); nice != 0 {
		if err := setThreadNice(nice); err != nil {
			logger.Warn("Could not apply thread priority.", "priority", t.priority.String(), "error", err)
		} else {
			logger.Debug("Thread priority applied.", "priority", t.priority.String(), "nice", nice)
		}
	}

	t.loop = newLoop(tid)
	published.ResumeReturning(t.loop)
	logger.Debug("Thread loop started.")

	t.loop.run(&t.keepAlive, t.execute)
	logger.Debug("Thread loop stopped.", "executed", t.executed.Load())
}

func (t *thread) execute(job Job) {
	defer t.executed.Add(1)
	job()
}

func (t *thread) post(job Job) bool {
	if !t.loop.post(job) {
		t.rejected.Add(1)
		return false
	}
	t.enqueued.Add(1)
	return true
}

// stop clears the keep-alive flag, stops timers and closes the loop. It does
// not wait for the thread to exit.
func (t *thread) stop() {
	t.stopOnce.Do(func() {
		t.logger.Debug("Stopping thread loop.")
		t.keepAlive.Store(false)
		t.stopTimers()
		t.loop.close()
	})
}

// isolated compares thread ids. Once the thread has exited its id may be
// reused by the kernel, so an exited thread is never considered current.
func (t *thread) isolated() bool {
	select {
	case <-t.exited:
		return false
	default:
	}
	return currentThreadID() == t.loop.tid
}

// Name returns the thread name given at construction.
func (e *ThreadExecutor) Name() string {
	return e.t.name
}

// Priority returns the scheduling class requested for the thread.
func (e *ThreadExecutor) Priority() Priority {
	return e.t.priority
}

// Enqueue posts job to the dedicated loop. A job submitted after Close is
// dropped and logged; use TryEnqueue to observe the rejection.
func (e *ThreadExecutor) Enqueue(job Job) {
	if err := e.TryEnqueue(job); err != nil {
		e.t.logger.Error("Job rejected.", "error", err)
	}
}

// TryEnqueue posts job to the dedicated loop or returns ErrClosed.
func (e *ThreadExecutor) TryEnqueue(job Job) error {
	mustJob(job)
	if !e.t.post(job) {
		return ErrClosed
	}
	return nil
}

// IsIsolated reports whether the caller is running on the dedicated thread.
func (e *ThreadExecutor) IsIsolated() bool {
	return e.t.isolated()
}

// CheckIsolated panics unless the caller is running on the dedicated thread.
func (e *ThreadExecutor) CheckIsolated() {
	if !e.t.isolated() {
		panic(fmt.Sprintf("executor: expected to run on thread %q (tid %d), running on tid %d",
			e.t.name, e.t.loop.tid, currentThreadID()))
	}
}

// Stats returns a snapshot of the executor's counters.
func (e *ThreadExecutor) Stats() Stats {
	return Stats{
		Enqueued:     e.t.enqueued.Load(),
		Executed:     e.t.executed.Load(),
		Rejected:     e.t.rejected.Load(),
		DroppedTicks: e.t.droppedTicks.Load(),
	}
}

// Done returns a channel closed once the dedicated thread has exited.
func (e *ThreadExecutor) Done() <-chan struct{} {
	return e.t.exited
}

// Close stops the executor. Jobs accepted before Close still run; later
// submissions are rejected. Close waits for the thread to exit unless it is
// called from the thread itself. It is safe to call more than once.
func (e *ThreadExecutor) Close() error {
	e.t.stop()
	if !e.t.isolated() {
		<-e.t.exited
		e.t.logger.Debug("Thread executor closed.")
	}
	return nil
}
