package executor

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var errInterval = errors.New("executor: timer interval must be positive")

// Timer is a periodic callback attached to a ThreadExecutor's loop.
type Timer struct {
	id       uuid.UUID
	interval time.Duration
	owner    *thread

	pending  atomic.Bool
	fired    atomic.Uint64
	stopped  atomic.Bool
	stopOnce sync.Once
	quit     chan struct{}
}

// Schedule attaches fn to the loop, calling it on the dedicated thread every
// interval with the tick time. A tick that comes due while the previous one
// is still queued or running is skipped and counted in Stats().DroppedTicks,
// so a slow callback never builds a backlog.
func (e *ThreadExecutor) Schedule(interval time.Duration, fn func(now time.Time)) (*Timer, error) {
	if interval <= 0 {
		return nil, errInterval
	}
	if fn == nil {
		panic("executor: nil timer func")
	}

	tm := &Timer{
		id:       uuid.New(),
		interval: interval,
		owner:    e.t,
		quit:     make(chan struct{}),
	}

	t := e.t
	t.timersMu.Lock()
	if !t.keepAlive.Load() {
		t.timersMu.Unlock()
		return nil, ErrClosed
	}
	t.timers[tm.id] = tm
	t.timersMu.Unlock()

	go tm.tick(fn)
	t.logger.Debug("Timer attached.", "timer", tm.id.String(), "interval", interval)
	return tm, nil
}

func (tm *Timer) tick(fn func(time.Time)) {
	ticker := time.NewTicker(tm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.quit:
			return
		case now := <-ticker.C:
			if !tm.pending.CompareAndSwap(false, true) {
				tm.owner.droppedTicks.Add(1)
				continue
			}
			ok := tm.owner.post(func() {
				defer tm.pending.Store(false)
				if tm.stopped.Load() {
					return
				}
				fn(now)
				tm.fired.Add(1)
			})
			if !ok {
				return
			}
		}
	}
}

// ID identifies the timer in logs.
func (tm *Timer) ID() uuid.UUID {
	return tm.id
}

// Fired returns how many times the callback has run.
func (tm *Timer) Fired() uint64 {
	return tm.fired.Load()
}

// Stop detaches the timer. Once Stop returns no further callback starts; a
// callback already running finishes. Stop is idempotent.
func (tm *Timer) Stop() {
	tm.stopOnce.Do(func() {
		tm.stopped.Store(true)
		close(tm.quit)

		t := tm.owner
		t.timersMu.Lock()
		delete(t.timers, tm.id)
		t.timersMu.Unlock()
		t.logger.Debug("Timer stopped.", "timer", tm.id.String(), "fired", tm.fired.Load())
	})
}

func (t *thread) stopTimers() {
	t.timersMu.Lock()
	timers := make([]*Timer, 0, len(t.timers))
	for _, tm := range t.timers {
		timers = append(timers, tm)
	}
	t.timersMu.Unlock()

	for _, tm := range timers {
		tm.Stop()
	}
}
