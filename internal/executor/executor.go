// Package executor provides serial executors that pin units of work to a
// single serialization domain: an externally owned FIFO queue, the native
// serial access mechanism of a database context, or a dedicated OS thread
// owned by the executor.
//
// Work is submitted as a Job with Enqueue (fire-and-forget) or as a
// value-returning block with Await / Run, which hand the result back through
// a single-slot future. Cancelling the context passed to Await or Run stops
// the wait only: a job that has been submitted always runs to completion and
// nothing it committed is reclaimed here.
package executor

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrClosed is returned when work is submitted to an executor that has
	// been closed.
	ErrClosed = errors.New("executor: closed")

	// ErrStartup is returned when a dedicated thread executor could not be
	// brought up before its context ended.
	ErrStartup = errors.New("executor: startup aborted")
)

// Job is a single-use unit of work. An executor runs each Job it accepts
// exactly once.
type Job func()

// Executor accepts jobs and runs them one at a time, in submission order.
type Executor interface {
	Enqueue(job Job)
}

// Isolated is implemented by executors that can tell whether the calling
// code is running inside their serialization domain.
type Isolated interface {
	IsIsolated() bool
	CheckIsolated()
}

// SerialQueue is an externally owned FIFO queue that runs submitted funcs one
// at a time.
type SerialQueue interface {
	Async(fn func())
}

// GraphContext is an externally owned transactional context whose native
// scheduling is already serial.
type GraphContext interface {
	Perform(fn func())
}

// PanicError carries a panic recovered from a block passed to Await or Run.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("executor: block panicked: %v", e.Value)
}

func callBlock[T any](block func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return block()
}

func mustJob(job Job) {
	if job == nil {
		panic("executor: nil job")
	}
}
