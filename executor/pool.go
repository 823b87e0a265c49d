package executor

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently executing callables with a weighted
// semaphore. Submission never blocks the caller: each callable runs on its
// own goroutine once it acquires a slot.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a pool allowing up to capacity concurrent callables.
// A capacity of zero selects the number of CPUs.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(capacity))}
}

// Post enqueues fn; it runs once a slot frees up.
func (p *Pool) Post(fn func()) {
	go p.run(fn)
}

// Dispatch runs fn inline when a slot is immediately available, otherwise
// falls back to Post.
func (p *Pool) Dispatch(fn func()) {
	if p.sem.TryAcquire(1) {
		defer p.sem.Release(1)
		fn()
		return
	}
	p.Post(fn)
}

// Defer enqueues fn behind work that is already runnable.
func (p *Pool) Defer(fn func()) {
	go func() {
		runtime.Gosched()
		p.run(fn)
	}()
}

func (p *Pool) run(fn func()) {
	// Acquire with Background never returns an error.
	_ = p.sem.Acquire(context.Background(), 1)
	defer p.sem.Release(1)
	fn()
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide pool, sized by the number of CPUs and
// created on first use.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = NewPool(runtime.NumCPU())
	})
	return defaultPool
}
