package futures

import "time"

// WhenAllFuture is the proxy future produced by WhenAll: ready once every
// leaf is. Like the disjunction proxy, it derives readiness from the leaves
// and allocates no cell of its own.
type WhenAllFuture[T any] struct {
	leaves []*Future[T]
}

// WhenAll builds a conjunction proxy over fs. An empty fs yields an
// immediately ready proxy with an empty result.
func WhenAll[T any](fs ...*Future[T]) *WhenAllFuture[T] {
	leaves := make([]*Future[T], len(fs))
	copy(leaves, fs)
	return &WhenAllFuture[T]{leaves: leaves}
}

// Valid reports whether the proxy still owns its leaves.
func (w *WhenAllFuture[T]) Valid() bool {
	return w != nil && w.leaves != nil
}

// IsReady reports whether every leaf holds a result.
func (w *WhenAllFuture[T]) IsReady() bool {
	if !w.Valid() {
		return false
	}
	for _, f := range w.leaves {
		if f.Valid() && !f.IsReady() {
			return false
		}
	}
	return true
}

// Wait blocks until every leaf is ready.
func (w *WhenAllFuture[T]) Wait() {
	if !w.Valid() {
		return
	}
	for _, f := range w.leaves {
		f.Wait()
	}
}

// WaitFor blocks until every leaf is ready or d elapses; the deadline is
// shared across the leaves.
func (w *WhenAllFuture[T]) WaitFor(d time.Duration) Status {
	if !w.Valid() {
		return StatusTimeout
	}
	deadline := time.Now().Add(d)
	for _, f := range w.leaves {
		if !f.Valid() {
			continue
		}
		if f.WaitFor(time.Until(deadline)) == StatusTimeout {
			return StatusTimeout
		}
	}
	return StatusReady
}

// WaitUntil blocks until every leaf is ready or the deadline passes.
func (w *WhenAllFuture[T]) WaitUntil(t time.Time) Status {
	return w.WaitFor(time.Until(t))
}

// Get waits, then moves the ready leaves out, invalidating the proxy.
func (w *WhenAllFuture[T]) Get() ([]*Future[T], error) {
	if !w.Valid() {
		return nil, ErrNoState
	}
	w.Wait()
	return w.Release(), nil
}

// Release moves the leaves out without waiting, invalidating the proxy.
func (w *WhenAllFuture[T]) Release() []*Future[T] {
	if !w.Valid() {
		return nil
	}
	leaves := w.leaves
	w.leaves = nil
	return leaves
}

// And merges one more leaf into the conjunction, flattening: the result is an
// n+1-way conjunction, not a nested two-way one. The receiver is consumed.
func (w *WhenAllFuture[T]) And(f *Future[T]) *WhenAllFuture[T] {
	return WhenAll(append(w.Release(), f)...)
}

// AndAll merges two conjunctions into one flat one. Both inputs are consumed.
func (w *WhenAllFuture[T]) AndAll(o *WhenAllFuture[T]) *WhenAllFuture[T] {
	return WhenAll(append(w.Release(), o.Release()...)...)
}

// Close releases the proxy, joining any leaves it still owns.
func (w *WhenAllFuture[T]) Close() {
	if w == nil {
		return
	}
	for _, f := range w.leaves {
		f.Join()
	}
	w.leaves = nil
}
