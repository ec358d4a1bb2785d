package executor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsOnDedicatedThread(t *testing.T) {
	t.Parallel()

	e := newTestThread(t, "frames")

	var ticks, offThread atomic.Int32
	tm, err := e.Schedule(5*time.Millisecond, func(time.Time) {
		if !e.IsIsolated() {
			offThread.Add(1)
		}
		ticks.Add(1)
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, tm.ID())

	require.Eventually(t, func() bool { return ticks.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)
	tm.Stop()
	tm.Stop()

	// A callback already running when Stop returned may still finish.
	time.Sleep(10 * time.Millisecond)
	stopped := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, stopped, ticks.Load())
	require.Zero(t, offThread.Load())
	require.Equal(t, uint64(stopped), tm.Fired())
}

func TestScheduleCoalescesSlowTicks(t *testing.T) {
	t.Parallel()

	e := newTestThread(t, "slow")

	var ticks atomic.Int32
	tm, err := e.Schedule(time.Millisecond, func(time.Time) {
		ticks.Add(1)
		time.Sleep(20 * time.Millisecond)
	})
	require.NoError(t, err)
	defer tm.Stop()

	require.Eventually(t, func() bool { return e.Stats().DroppedTicks > 0 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestCloseStopsTimers(t *testing.T) {
	t.Parallel()

	e := newTestThread(t, "close-timers")

	var ticks atomic.Int32
	_, err := e.Schedule(2*time.Millisecond, func(time.Time) { ticks.Add(1) })
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, 2*time.Second, 2*time.Millisecond)

	require.NoError(t, e.Close())
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, after, ticks.Load())

	_, err = e.Schedule(time.Millisecond, func(time.Time) {})
	require.ErrorIs(t, err, ErrClosed)
}

func TestScheduleRejectsBadInterval(t *testing.T) {
	t.Parallel()

	e := newTestThread(t, "interval")
	_, err := e.Schedule(0, func(time.Time) {})
	require.Error(t, err)
}
