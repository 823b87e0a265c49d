package futures

import (
	"sync/atomic"
	"time"

	"github.com/ygrebnov/futures/executor"
)

// flags records a handle's capabilities. The future families exposed by the
// constructors differ only in which flags are set.
type flags uint8

const (
	// flagContinuable marks states carrying a lazy continuation list.
	flagContinuable flags = 1 << iota
	// flagStoppable marks states carrying a stop source.
	flagStoppable
	// flagDeferred marks states whose task launches on first wait.
	flagDeferred
	// flagShared marks handles whose Get does not consume the state.
	flagShared
	// flagDetached suppresses the wait in Join.
	flagDetached
)

// sharedCell counts the live handles over a shared state, so only the last
// Join waits.
type sharedCell struct {
	refs atomic.Int32
}

// Future is a handle over one operation state. A future is valid while it
// refers to a state; Get on a unique (non-shared) future consumes it.
//
// The zero Future is invalid.
type Future[T any] struct {
	st *state[T]
	fl flags
	sh *sharedCell // non-nil iff flagShared
}

func newFuture[T any](st *state[T], fl flags) *Future[T] {
	return &Future[T]{st: st, fl: fl}
}

// Valid reports whether the handle refers to a state.
func (f *Future[T]) Valid() bool {
	return f != nil && f.st != nil
}

// IsReady reports whether the result is already available. False on invalid
// handles.
func (f *Future[T]) IsReady() bool {
	return f.Valid() && f.st.isReady()
}

// Wait blocks until the result is available, launching a deferred task if
// needed. No-op on invalid handles.
func (f *Future[T]) Wait() {
	if !f.Valid() {
		return
	}
	f.st.wait()
}

// WaitFor blocks until the result is available or d elapses, measured on the
// monotonic clock from the call. Invalid handles report StatusTimeout.
func (f *Future[T]) WaitFor(d time.Duration) Status {
	if !f.Valid() {
		return StatusTimeout
	}
	return f.st.waitFor(d)
}

// WaitUntil blocks until the result is available or the deadline passes.
func (f *Future[T]) WaitUntil(t time.Time) Status {
	return f.WaitFor(time.Until(t))
}

// Get waits and returns the stored value or error. On a unique future, Get
// moves the result out and invalidates the handle; on a shared future it is
// idempotent. Get on an invalid handle returns ErrNoState.
func (f *Future[T]) Get() (T, error) {
	if !f.Valid() {
		var zero T
		return zero, ErrNoState
	}
	v, err := f.st.get()
	if f.fl&flagShared == 0 {
		f.release()
	}
	return v, err
}

// Err waits and returns the stored error, if any, without consuming the
// handle.
func (f *Future[T]) Err() error {
	if !f.Valid() {
		return ErrNoState
	}
	f.st.wait()
	return f.st.err
}

// Share converts a unique future into a shared one, transferring the state
// into a reference-counted cell. Idempotent on already-shared handles.
func (f *Future[T]) Share() *Future[T] {
	if !f.Valid() {
		return &Future[T]{}
	}
	if f.fl&flagShared != 0 {
		return f
	}
	sf := &Future[T]{st: f.st, fl: f.fl | flagShared, sh: &sharedCell{}}
	sf.sh.refs.Store(1)
	f.st = nil
	return sf
}

// Clone mints another handle over the same shared state. On unique handles it
// returns the receiver unchanged.
func (f *Future[T]) Clone() *Future[T] {
	if !f.Valid() || f.fl&flagShared == 0 {
		return f
	}
	f.sh.refs.Add(1)
	return &Future[T]{st: f.st, fl: f.fl, sh: f.sh}
}

// Detach suppresses the wait in Join.
func (f *Future[T]) Detach() {
	if f != nil {
		f.fl |= flagDetached
	}
}

// Join releases the handle, waiting for the result first unless the handle
// was detached. On shared handles only the last reference waits.
func (f *Future[T]) Join() {
	if !f.Valid() {
		return
	}
	wait := f.fl&flagDetached == 0
	if f.fl&flagShared != 0 && f.sh.refs.Add(-1) != 0 {
		wait = false
	}
	if wait {
		f.st.wait()
	}
	f.release()
}

// StopSource returns the future's stop source; the zero source if the future
// is not stoppable.
func (f *Future[T]) StopSource() StopSource {
	if !f.Valid() {
		return StopSource{}
	}
	return f.st.stop
}

// StopToken derives a token observing the future's stop source.
func (f *Future[T]) StopToken() StopToken {
	return f.StopSource().Token()
}

// RequestStop requests cooperative cancellation of the underlying task.
func (f *Future[T]) RequestStop() bool {
	return f.StopSource().RequestStop()
}

// NotifyWhenReady registers ch (which should be buffered) for one signal when
// the result becomes available, returning a handle for UnnotifyWhenReady.
func (f *Future[T]) NotifyWhenReady(ch chan<- struct{}) int {
	if !f.Valid() {
		return -1
	}
	return f.st.notifyWhenReady(ch)
}

// UnnotifyWhenReady removes a registration made by NotifyWhenReady.
func (f *Future[T]) UnnotifyWhenReady(h int) {
	if f.Valid() {
		f.st.unnotifyWhenReady(h)
	}
}

// And combines two futures into a conjunction proxy.
func (f *Future[T]) And(other *Future[T]) *WhenAllFuture[T] {
	return WhenAll(f, other)
}

// Or combines two futures into a disjunction proxy.
func (f *Future[T]) Or(other *Future[T]) *WhenAnyFuture[T] {
	return WhenAny(f, other)
}

func (f *Future[T]) release() {
	f.st = nil
	f.sh = nil
}

// shared reports whether the handle observes rather than owns the state.
func (f *Future[T]) shared() bool { return f.fl&flagShared != 0 }

// anyFuture is the type-erased leaf view used by the combinators and the
// structured continuation rules.
type anyFuture interface {
	Valid() bool
	IsReady() bool
	Wait()
	WaitFor(d time.Duration) Status
	lazyContinuable() bool
	emplaceContinuation(ex executor.Executor, fn func()) bool
	getAny() (any, error)
	conf() *config
}

func (f *Future[T]) lazyContinuable() bool {
	return f.Valid() && f.st.conts != nil
}

// emplaceContinuation appends fn to the state's continuation list. Reports
// false when the leaf is not lazily continuable or the list already ran (in
// which case fn was handed to ex).
func (f *Future[T]) emplaceContinuation(ex executor.Executor, fn func()) bool {
	if !f.Valid() || f.st.conts == nil {
		return false
	}
	return f.st.conts.emplace(ex, fn)
}

func (f *Future[T]) getAny() (any, error) {
	v, err := f.Get()
	return v, err
}

func (f *Future[T]) conf() *config {
	if !f.Valid() {
		return nil
	}
	return f.st.cfg
}
