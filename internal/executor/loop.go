package executor

import (
	"sync"
	"sync/atomic"
)

// loop is the event loop owned by a dedicated thread. Any goroutine may post
// to it; only the owning thread runs it.
type loop struct {
	tid int

	mu      sync.Mutex
	pending []Job
	closed  bool
	wake    chan struct{}
}

func newLoop(tid int) *loop {
	return &loop{tid: tid, wake: make(chan struct{}, 1)}
}

// post appends job unless the loop has been closed.
func (l *loop) post(job Job) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, job)
	l.mu.Unlock()
	l.signal()
	return true
}

// close rejects further posts and wakes the loop so it can notice.
func (l *loop) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

func (l *loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *loop) take() []Job {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.pending
	l.pending = nil
	return batch
}

// run drives the loop while keepAlive is set. keepAlive is checked once per
// iteration, so a single iteration may still run after it is cleared. Jobs
// posted before close are run before run returns; posts after close are
// rejected, so the final drain terminates.
func (l *loop) run(keepAlive *atomic.Bool, exec func(Job)) {
	for keepAlive.Load() {
		<-l.wake
		for _, job := range l.take() {
			exec(job)
		}
	}
	for batch := l.take(); len(batch) > 0; batch = l.take() {
		for _, job := range batch {
			exec(job)
		}
	}
}
