package database

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"

	"github.com/jask/serialcore/internal/serialqueue"
)

// ErrOutsidePerform is returned by Context.DB when it is used from outside
// a Perform block.
var ErrOutsidePerform = errors.New("database: context used outside Perform")

// Context serializes all access to a sqlite handle. Work passed to Perform
// runs one block at a time, in submission order, on the context's own queue,
// so every block sees the store without concurrent mutation from other
// blocks. The context does not own db.
type Context struct {
	db    *sql.DB
	queue *serialqueue.Queue

	// depth is non-zero only while a Perform block is running.
	depth atomic.Int32
}

// NewContext wraps db. label names the context's queue.
func NewContext(db *sql.DB, label string) *Context {
	return &Context{db: db, queue: serialqueue.New(label)}
}

// Perform schedules fn on the context's queue and returns immediately.
func (c *Context) Perform(fn func()) {
	c.queue.Async(func() {
		c.depth.Add(1)
		defer c.depth.Add(-1)
		fn()
	})
}

// PerformAndWait runs fn on the context's queue and blocks until it returns.
// Calling it from inside a Perform block deadlocks.
func (c *Context) PerformAndWait(fn func()) {
	done := make(chan struct{})
	c.Perform(func() {
		defer close(done)
		fn()
	})
	<-done
}

// DB returns the wrapped handle. It is only valid inside a Perform block.
func (c *Context) DB() (*sql.DB, error) {
	if c.depth.Load() == 0 {
		return nil, ErrOutsidePerform
	}
	return c.db, nil
}

// WithTx runs fn in a transaction on the wrapped handle. It must be called
// from inside a Perform block.
func (c *Context) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	return WithTx(ctx, db, fn)
}

// Close stops accepting work and waits for queued blocks to finish. It does
// not close the wrapped handle.
func (c *Context) Close() {
	c.queue.Close()
}
