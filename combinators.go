package futures

import (
	"time"

	"github.com/ygrebnov/futures/executor"
)

// Heterogeneous conjunctions and disjunctions over two and three futures of
// distinct value types. Their results are tuples (of futures) and AnyResult2/
// AnyResult3 records, feeding the tuple and wait-any unwrapping rules.

// WhenAllFuture2 is a conjunction proxy over two futures of distinct types.
type WhenAllFuture2[A, B any] struct {
	first  *Future[A]
	second *Future[B]
	taken  bool
}

// WhenAll2 builds a conjunction proxy over two heterogeneous futures.
func WhenAll2[A, B any](a *Future[A], b *Future[B]) *WhenAllFuture2[A, B] {
	return &WhenAllFuture2[A, B]{first: a, second: b}
}

func (w *WhenAllFuture2[A, B]) Valid() bool { return w != nil && !w.taken }

func (w *WhenAllFuture2[A, B]) IsReady() bool {
	return w.Valid() && w.first.IsReady() && w.second.IsReady()
}

func (w *WhenAllFuture2[A, B]) Wait() {
	if !w.Valid() {
		return
	}
	w.first.Wait()
	w.second.Wait()
}

func (w *WhenAllFuture2[A, B]) WaitFor(d time.Duration) Status {
	if !w.Valid() {
		return StatusTimeout
	}
	deadline := time.Now().Add(d)
	if w.first.WaitFor(time.Until(deadline)) == StatusTimeout {
		return StatusTimeout
	}
	return w.second.WaitFor(time.Until(deadline))
}

// WaitUntil blocks until both leaves are ready or the deadline passes.
func (w *WhenAllFuture2[A, B]) WaitUntil(t time.Time) Status {
	return w.WaitFor(time.Until(t))
}

// Get waits, then moves both leaves out as a tuple of futures.
func (w *WhenAllFuture2[A, B]) Get() (Tuple2[*Future[A], *Future[B]], error) {
	if !w.Valid() {
		return Tuple2[*Future[A], *Future[B]]{}, ErrNoState
	}
	w.Wait()
	w.taken = true
	return MakeTuple2(w.first, w.second), nil
}

// WhenAllFuture3 is a conjunction proxy over three futures of distinct types.
type WhenAllFuture3[A, B, C any] struct {
	first  *Future[A]
	second *Future[B]
	third  *Future[C]
	taken  bool
}

// WhenAll3 builds a conjunction proxy over three heterogeneous futures.
func WhenAll3[A, B, C any](a *Future[A], b *Future[B], c *Future[C]) *WhenAllFuture3[A, B, C] {
	return &WhenAllFuture3[A, B, C]{first: a, second: b, third: c}
}

func (w *WhenAllFuture3[A, B, C]) Valid() bool { return w != nil && !w.taken }

func (w *WhenAllFuture3[A, B, C]) IsReady() bool {
	return w.Valid() && w.first.IsReady() && w.second.IsReady() && w.third.IsReady()
}

func (w *WhenAllFuture3[A, B, C]) Wait() {
	if !w.Valid() {
		return
	}
	w.first.Wait()
	w.second.Wait()
	w.third.Wait()
}

func (w *WhenAllFuture3[A, B, C]) WaitFor(d time.Duration) Status {
	if !w.Valid() {
		return StatusTimeout
	}
	deadline := time.Now().Add(d)
	if w.first.WaitFor(time.Until(deadline)) == StatusTimeout {
		return StatusTimeout
	}
	if w.second.WaitFor(time.Until(deadline)) == StatusTimeout {
		return StatusTimeout
	}
	return w.third.WaitFor(time.Until(deadline))
}

// WaitUntil blocks until every leaf is ready or the deadline passes.
func (w *WhenAllFuture3[A, B, C]) WaitUntil(t time.Time) Status {
	return w.WaitFor(time.Until(t))
}

// Get waits, then moves the three leaves out as a tuple of futures.
func (w *WhenAllFuture3[A, B, C]) Get() (Tuple3[*Future[A], *Future[B], *Future[C]], error) {
	if !w.Valid() {
		return Tuple3[*Future[A], *Future[B], *Future[C]]{}, ErrNoState
	}
	w.Wait()
	w.taken = true
	return MakeTuple3(w.first, w.second, w.third), nil
}

// AnyResult2 is the outcome of a two-way heterogeneous disjunction.
type AnyResult2[A, B any] struct {
	Index  int
	First  *Future[A]
	Second *Future[B]
}

func (r AnyResult2[A, B]) anyIndex() int { return r.Index }

func (r AnyResult2[A, B]) anyLeaves() []anyFuture {
	return []anyFuture{r.First, r.Second}
}

// WhenAnyFuture2 is a disjunction proxy over two futures of distinct types.
type WhenAnyFuture2[A, B any] struct {
	core   *anyCore
	first  *Future[A]
	second *Future[B]
	taken  bool
	sc     shutdownCoordinator
}

// WhenAny2 builds a disjunction proxy over two heterogeneous futures.
func WhenAny2[A, B any](a *Future[A], b *Future[B]) *WhenAnyFuture2[A, B] {
	w := &WhenAnyFuture2[A, B]{core: newAnyCore([]anyFuture{a, b}), first: a, second: b}
	w.sc = shutdownCoordinator{
		signalCancel:  w.core.requestNotifiersStop,
		joinNotifiers: w.core.joinNotifiers,
	}
	return w
}

func (w *WhenAnyFuture2[A, B]) Valid() bool { return w != nil && !w.taken }

func (w *WhenAnyFuture2[A, B]) IsReady() bool { return w.Valid() && w.core.isReady() }

func (w *WhenAnyFuture2[A, B]) Wait() {
	if w.Valid() {
		w.core.wait()
	}
}

func (w *WhenAnyFuture2[A, B]) WaitFor(d time.Duration) Status {
	if !w.Valid() {
		return StatusTimeout
	}
	return w.core.waitFor(d)
}

// WaitUntil blocks until some leaf is ready or the deadline passes.
func (w *WhenAnyFuture2[A, B]) WaitUntil(t time.Time) Status {
	return w.WaitFor(time.Until(t))
}

// Get waits, then moves the leaves out together with the winning index.
func (w *WhenAnyFuture2[A, B]) Get() (AnyResult2[A, B], error) {
	if !w.Valid() {
		return AnyResult2[A, B]{Index: IndexNone}, ErrNoState
	}
	w.core.wait()
	idx := w.core.readyIndex()
	w.taken = true
	w.sc.Close()
	return AnyResult2[A, B]{Index: idx, First: w.first, Second: w.second}, nil
}

// Close cancels and joins the notifiers, then joins leaves still owned.
func (w *WhenAnyFuture2[A, B]) Close() {
	if w == nil {
		return
	}
	w.sc.Close()
	if !w.taken {
		w.taken = true
		w.first.Join()
		w.second.Join()
	}
}

// thenProxy attaches a continuation to a combinator proxy: a polling wrapper
// is deferred on ex that waits via waitFn, assembles the parent value via
// valueFn, and applies the resolved continuation.
func thenProxy[P, U any](ex executor.Executor, cfg *config, waitFn func(), valueFn func() P, fn any) *Future[U] {
	inv := resolveInvoker[P, U](fn)
	ccfg := childConfig(cfg, ex)

	cs := newState[U](ccfg, phaseLaunched)
	cs.conts = &continuationList{}
	fl := flagContinuable
	var token StopToken
	if inv.wantsToken {
		cs.stop = NewStopSource()
		token = cs.stop.Token()
		fl |= flagStoppable
	}

	ccfg.instruments.continuations.Add(1)
	ccfg.executor.Defer(func() {
		waitFn()
		v := valueFn()
		cs.apply(func() (U, error) { return inv.call(v, token) })
	})
	return newFuture(cs, fl)
}

// proxyConfig picks a configuration for a proxy continuation from the first
// leaf that has one.
func proxyConfig(leaves ...anyFuture) *config {
	for _, leaf := range leaves {
		if leaf == nil {
			continue
		}
		if cfg := leaf.conf(); cfg != nil {
			return cfg
		}
	}
	return nil
}

// ThenAll attaches a continuation to a homogeneous conjunction. The
// continuation sees the leaf sequence per the sequence-of-futures rule
// (typically func([]T) U). The proxy is consumed.
func ThenAll[U, T any](w *WhenAllFuture[T], fn any) *Future[U] {
	if !w.Valid() {
		panic(ErrNoState)
	}
	leaves := w.Release()
	erased := make([]anyFuture, len(leaves))
	for i, f := range leaves {
		erased[i] = f
	}
	return thenProxy[[]*Future[T], U](nil, proxyConfig(erased...), func() {
		for _, f := range leaves {
			f.Wait()
		}
	}, func() []*Future[T] { return leaves }, fn)
}

// ThenAll2 attaches a continuation to a two-way heterogeneous conjunction,
// typically func(A, B) U via the tuple-of-futures rule.
func ThenAll2[U, A, B any](w *WhenAllFuture2[A, B], fn any) *Future[U] {
	if !w.Valid() {
		panic(ErrNoState)
	}
	a, b := w.first, w.second
	w.taken = true
	return thenProxy[Tuple2[*Future[A], *Future[B]], U](nil, proxyConfig(a, b), func() {
		a.Wait()
		b.Wait()
	}, func() Tuple2[*Future[A], *Future[B]] { return MakeTuple2(a, b) }, fn)
}

// ThenAll3 attaches a continuation to a three-way heterogeneous conjunction,
// typically func(A, B, C) U via the tuple-of-futures rule.
func ThenAll3[U, A, B, C any](w *WhenAllFuture3[A, B, C], fn any) *Future[U] {
	if !w.Valid() {
		panic(ErrNoState)
	}
	a, b, c := w.first, w.second, w.third
	w.taken = true
	return thenProxy[Tuple3[*Future[A], *Future[B], *Future[C]], U](nil, proxyConfig(a, b, c), func() {
		a.Wait()
		b.Wait()
		c.Wait()
	}, func() Tuple3[*Future[A], *Future[B], *Future[C]] { return MakeTuple3(a, b, c) }, fn)
}

// ThenAny attaches a continuation to a homogeneous disjunction. The
// continuation sees an AnyResult per the wait-any rules: func(int,
// []*Future[T]) U, func(*Future[T]) U, or func(T) U. The proxy is consumed.
func ThenAny[U, T any](w *WhenAnyFuture[T], fn any) *Future[U] {
	if !w.Valid() {
		panic(ErrNoState)
	}
	core := w.core
	leaves := w.Release()
	erased := make([]anyFuture, len(leaves))
	for i, f := range leaves {
		erased[i] = f
	}
	return thenProxy[AnyResult[T], U](nil, proxyConfig(erased...), core.wait, func() AnyResult[T] {
		idx := core.readyIndex()
		if len(leaves) == 0 {
			idx = IndexNone
		}
		return AnyResult[T]{Index: idx, Tasks: leaves}
	}, fn)
}

// ThenAny2 attaches a continuation to a two-way heterogeneous disjunction;
// the explode form is func(int, *Future[A], *Future[B]) U.
func ThenAny2[U, A, B any](w *WhenAnyFuture2[A, B], fn any) *Future[U] {
	if !w.Valid() {
		panic(ErrNoState)
	}
	core, a, b := w.core, w.first, w.second
	w.taken = true
	return thenProxy[AnyResult2[A, B], U](nil, proxyConfig(a, b), core.wait, func() AnyResult2[A, B] {
		return AnyResult2[A, B]{Index: core.readyIndex(), First: a, Second: b}
	}, fn)
}
