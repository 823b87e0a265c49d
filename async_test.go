package futures

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/futures/metrics"
)

func TestAsync_BasicGet(t *testing.T) {
	f := Async[int](func() int { return 42 })

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.False(t, f.Valid(), "unique handle must be consumed by Get")
}

func TestAsync_TaskError(t *testing.T) {
	boom := errors.New("boom")
	f := Async[int](func() (int, error) { return 0, boom })

	_, err := f.Get()
	require.ErrorIs(t, err, boom)
}

func TestAsync_TaskPanicIsCaptured(t *testing.T) {
	f := Async[int](func() int { panic("kaboom") })

	_, err := f.Get()
	require.ErrorIs(t, err, ErrTaskPanicked)
}

func TestAsync_InvalidTaskPanics(t *testing.T) {
	require.PanicsWithError(t, ErrInvalidTask.Error(), func() {
		Async[int]("nope")
	})
}

func TestAsync_WaitThenReady(t *testing.T) {
	f := Async[int](func() int {
		time.Sleep(5 * time.Millisecond)
		return 1
	})
	f.Wait()
	require.True(t, f.IsReady())
}

func TestAsync_StopTokenCooperativeCancellation(t *testing.T) {
	f := Async[int](func(tok StopToken) int {
		for !tok.StopRequested() {
			runtime.Gosched()
		}
		return 7
	})

	time.Sleep(10 * time.Millisecond)
	require.True(t, f.RequestStop())

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestSchedule_LaunchesOnFirstWait(t *testing.T) {
	var started int32
	f := Schedule[int](func() int {
		atomic.AddInt32(&started, 1)
		return 11
	})

	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&started), "deferred task must not start on its own")

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 11, v)
	require.EqualValues(t, 1, atomic.LoadInt32(&started))
}

func TestSchedule_WaitForLaunches(t *testing.T) {
	f := Schedule[int](func() int { return 3 })
	// The timed wait is the first waiter; it must trigger the launch.
	for f.WaitFor(50*time.Millisecond) != StatusReady {
	}
	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestMakeReadyFuture_RoundTrip(t *testing.T) {
	f := MakeReadyFuture("value")
	require.True(t, f.IsReady())

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, "value", v)
}

func TestMakeExceptionalFuture(t *testing.T) {
	boom := errors.New("bad")
	f := MakeExceptionalFuture[int](boom)
	require.True(t, f.IsReady())

	_, err := f.Get()
	require.ErrorIs(t, err, boom)
}

func TestAsync_RecordsMetrics(t *testing.T) {
	p := metrics.NewBasicProvider()
	f := Async[int](func() int { return 1 }, WithMetrics(p))
	_, err := f.Get()
	require.NoError(t, err)

	require.EqualValues(t, 1, p.CounterValue("futures_tasks_started_total"))
	require.EqualValues(t, 1, p.CounterValue("futures_tasks_completed_total"))
	require.EqualValues(t, 1, p.HistogramCount("futures_task_duration_seconds"))
}

func TestAsync_WithExecutor(t *testing.T) {
	ex := &manualExecutor{}
	f := Async[int](func() int { return 5 }, WithExecutor(ex))

	require.False(t, f.IsReady())
	require.Equal(t, 1, ex.pending())

	ex.drain()
	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 5, v)
}
