// Package serialqueue implements a labelled FIFO queue drained by a single
// goroutine. Work submitted to one Queue never runs concurrently with other
// work submitted to the same Queue and runs in submission order.
package serialqueue

import (
	"errors"
	"sync"
)

// ErrClosed is the panic value raised when work is submitted to a closed queue.
var ErrClosed = errors.New("serialqueue: queue is closed")

// Queue is an unbounded serial FIFO queue.
type Queue struct {
	label string

	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// New starts a queue with the given label.
func New(label string) *Queue {
	q := &Queue{
		label:   label,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.drain()
	return q
}

// Label returns the queue's label.
func (q *Queue) Label() string {
	return q.label
}

// Async appends fn to the queue and returns immediately.
// Submitting to a closed queue panics with ErrClosed.
func (q *Queue) Async(fn func()) {
	if fn == nil {
		panic("serialqueue: nil func")
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		panic(ErrClosed)
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Sync appends fn to the queue and blocks until it has run.
// Calling Sync from work already running on q deadlocks.
func (q *Queue) Sync(fn func()) {
	done := make(chan struct{})
	q.Async(func() {
		defer close(done)
		fn()
	})
	<-done
}

// Close stops accepting work and blocks until everything already queued has
// run. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	q.mu.Unlock()
	<-q.stopped
}

func (q *Queue) drain() {
	defer close(q.stopped)
	for range q.wake {
		for {
			q.mu.Lock()
			batch := q.pending
			q.pending = nil
			closed := q.closed
			q.mu.Unlock()

			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
			for i, fn := range batch {
				batch[i] = nil
				fn()
			}
		}
	}
}
