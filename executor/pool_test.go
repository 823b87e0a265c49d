package executor

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(2)

	var wg sync.WaitGroup
	var current, peak int32
	gate := make(chan struct{})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		p.Post(func() {
			defer wg.Done()
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			<-gate
			atomic.AddInt32(&current, -1)
		})
	}

	close(gate)
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPool_DispatchRunsInlineWhenFree(t *testing.T) {
	p := NewPool(1)
	ran := false
	p.Dispatch(func() { ran = true })
	require.True(t, ran, "dispatch must run inline when a slot is free")
}

func TestPool_DeferEventuallyRuns(t *testing.T) {
	p := NewPool(1)
	var wg sync.WaitGroup
	wg.Add(1)
	p.Defer(func() { wg.Done() })
	wg.Wait()
}

func TestPool_ZeroCapacityDefaultsToCPUs(t *testing.T) {
	p := NewPool(0)
	var wg sync.WaitGroup
	wg.Add(1)
	p.Post(func() { wg.Done() })
	wg.Wait()
}

func TestInline_DispatchRunsOnCaller(t *testing.T) {
	e := NewInline()
	ran := false
	e.Dispatch(func() { ran = true })
	require.True(t, ran)
}

func TestInline_PostRunsElsewhere(t *testing.T) {
	e := NewInline()
	var wg sync.WaitGroup
	wg.Add(2)
	e.Post(func() { wg.Done() })
	e.Defer(func() { wg.Done() })
	wg.Wait()
}

func TestDefault_IsASingleton(t *testing.T) {
	require.Same(t, Default(), Default())
}

func TestHardwareConcurrency_Positive(t *testing.T) {
	require.Greater(t, HardwareConcurrency(), 0)
}
