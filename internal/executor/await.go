package executor

import (
	"context"

	"github.com/jask/serialcore/internal/future"
)

type tryEnqueuer interface {
	TryEnqueue(job Job) error
}

// Await runs block on ex and waits for its result.
//
// An error returned by block reaches the caller unchanged; a panic in block
// comes back as *PanicError. If ctx ends first Await returns ctx.Err() while
// block still runs to completion on ex.
func Await[T any](ctx context.Context, ex Executor, block func() (T, error)) (T, error) {
	f := future.New[T]()
	job := Job(func() {
		f.Resume(callBlock(block))
	})

	if te, ok := ex.(tryEnqueuer); ok {
		if err := te.TryEnqueue(job); err != nil {
			var zero T
			return zero, err
		}
	} else {
		ex.Enqueue(job)
	}
	return f.Wait(ctx)
}

// Run moves block onto the dedicated thread of e and waits for its result
// without occupying the dedicated thread while waiting. Errors and panics are
// reported the same way as Await. Run on a closed executor returns ErrClosed.
func Run[T any](ctx context.Context, e *ThreadExecutor, block func() (T, error)) (T, error) {
	return Await[T](ctx, e, block)
}
