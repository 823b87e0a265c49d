package futures

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// manualExecutor queues everything and runs nothing until drained. Gives
// tests deterministic control over scheduling.
type manualExecutor struct {
	mu  sync.Mutex
	fns []func()
}

func (e *manualExecutor) Post(fn func())     { e.enqueue(fn) }
func (e *manualExecutor) Dispatch(fn func()) { fn() }
func (e *manualExecutor) Defer(fn func())    { e.enqueue(fn) }

func (e *manualExecutor) enqueue(fn func()) {
	e.mu.Lock()
	e.fns = append(e.fns, fn)
	e.mu.Unlock()
}

// drain runs queued callables, including ones queued while draining.
func (e *manualExecutor) drain() {
	for {
		e.mu.Lock()
		if len(e.fns) == 0 {
			e.mu.Unlock()
			return
		}
		fn := e.fns[0]
		e.fns = e.fns[1:]
		e.mu.Unlock()
		fn()
	}
}

func (e *manualExecutor) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fns)
}

func TestContinuationList_RunsInInsertionOrder(t *testing.T) {
	l := &continuationList{}
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.emplace(nil, func() { got = append(got, i) }))
	}

	require.True(t, l.requestRun())
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestContinuationList_RequestRunOnce(t *testing.T) {
	l := &continuationList{}
	require.True(t, l.requestRun())
	require.False(t, l.requestRun())
}

func TestContinuationList_EmplaceAfterRunGoesThroughExecutor(t *testing.T) {
	l := &continuationList{}
	l.requestRun()

	ex := &manualExecutor{}
	ran := false
	require.False(t, l.emplace(ex, func() { ran = true }))
	require.False(t, ran, "late continuation must not run in-band")
	require.Equal(t, 1, ex.pending())

	ex.drain()
	require.True(t, ran)
	require.Empty(t, l.entries, "list must stay empty after run was requested")
}

func TestContinuationList_CallbackMayEmplace(t *testing.T) {
	l := &continuationList{}
	ex := &manualExecutor{}

	var order []string
	l.emplace(ex, func() {
		order = append(order, "first")
		// The list already ran; this must be rerouted, not linked.
		l.emplace(ex, func() { order = append(order, "late") })
	})
	l.emplace(ex, func() { order = append(order, "second") })

	l.requestRun()
	require.Equal(t, []string{"first", "second"}, order)

	ex.drain()
	require.Equal(t, []string{"first", "second", "late"}, order)
}
