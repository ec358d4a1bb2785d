// Package future provides a single-slot, one-shot result cell used to hand a
// value from a producer running on any goroutine or OS thread back to a
// single waiter.
//
// A Future is written exactly once with Resume and read exactly once with
// Wait. Both rules are contract rules: breaking either one panics.
package future

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrAlreadyResumed is the panic value raised when Resume is called on a
	// future that already holds a result.
	ErrAlreadyResumed = errors.New("future: resumed more than once")

	// ErrAlreadyConsumed is the panic value raised when a second reader tries
	// to take a result that has already been handed out.
	ErrAlreadyConsumed = errors.New("future: result already consumed")
)

// Result pairs a value with the error produced alongside it.
type Result[T any] struct {
	Value T
	Err   error
}

// Future is a single-writer/single-reader result cell.
//
// The zero value is not usable; create one with New.
type Future[T any] struct {
	resumed  atomic.Bool
	consumed atomic.Bool
	done     chan struct{}
	result   Result[T]
}

// New returns an empty future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resume stores the result and wakes the waiter. It panics with
// ErrAlreadyResumed if the future was already resumed.
func (f *Future[T]) Resume(value T, err error) {
	if !f.resumed.CompareAndSwap(false, true) {
		panic(ErrAlreadyResumed)
	}
	f.result = Result[T]{Value: value, Err: err}
	close(f.done)
}

// ResumeReturning resumes the future with a successful value.
func (f *Future[T]) ResumeReturning(value T) {
	f.Resume(value, nil)
}

// ResumeThrowing resumes the future with a failure.
func (f *Future[T]) ResumeThrowing(err error) {
	var zero T
	f.Resume(zero, err)
}

// Ready reports whether a result has been stored and not yet consumed.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return !f.consumed.Load()
	default:
		return false
	}
}

// Done returns a channel that is closed once the future has been resumed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks the calling goroutine until the future is resumed or ctx is
// done, whichever happens first.
//
// On resume it takes ownership of the stored result and returns the value or
// the stored error exactly as the producer supplied it. If ctx ends first,
// Wait returns ctx.Err() and the result stays in the future; the producer is
// not interrupted. A future that is never resumed keeps Wait blocked until ctx
// ends, so callers that need bounded latency must pass a deadline.
//
// Taking the result twice panics with ErrAlreadyConsumed.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	if !f.consumed.CompareAndSwap(false, true) {
		panic(ErrAlreadyConsumed)
	}
	r := f.result
	f.result = Result[T]{}
	return r.Value, r.Err
}
