package futures

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
)

// stopState is the shared cancellation cell behind StopSource and StopToken.
//
// A single atomic word packs the stop-requested bit, a lock bit, and the two
// handle refcounts. The lock bit guards the intrusive callback list; it is
// acquired by spinning (yielding to the scheduler between rounds) and never
// held across a callback invocation,
// so callbacks may register and unregister callbacks themselves.
type stopState struct {
	// control packs, from the high bit down:
	//   bit 63    stop requested (never clears once set)
	//   bit 62    list lock
	//   bits 31..61  source handle count (31 bits)
	//   bits 0..30   token handle count (31 bits)
	control atomic.Uint64

	// done is closed when stop is requested, so holders can select on it.
	done chan struct{}

	// Callback list head and the record currently being invoked by the drain
	// loop. Both are guarded by the lock bit.
	head      *stopCallback
	executing *stopCallback

	// drainer identifies the goroutine running the drain loop, so Unregister
	// can tell a reentrant call (from inside the executing callback) apart
	// from a concurrent one.
	drainer atomic.Uint64
}

const (
	stopRequestedBit = uint64(1) << 63
	stopLockBit      = uint64(1) << 62
	sourceCountShift = 31
	countMask        = (uint64(1) << 31) - 1
	sourceCountUnit  = uint64(1) << sourceCountShift
	tokenCountUnit   = uint64(1)
)

// stopCallback is one registered stop callback. Records are linked into the
// state's intrusive list until they run or are unregistered.
type stopCallback struct {
	fn   func()
	prev *stopCallback
	next *stopCallback

	// linked is true while the record is reachable from the list head.
	linked bool

	// removed, when non-nil, points at the drain loop's local flag. The
	// executing callback sets it through Unregister to tell the loop the
	// record was pulled out from under it.
	removed *bool

	// finished is closed once the callback has returned; Unregister from
	// another goroutine blocks on it.
	finished chan struct{}
}

func newStopState() *stopState {
	s := &stopState{done: make(chan struct{})}
	s.control.Store(sourceCountUnit) // one source, zero tokens
	return s
}

// lock spins on the lock bit. The list is only ever held for pointer surgery,
// so contention windows are tiny; yield to the scheduler between rounds.
func (s *stopState) lock() {
	for i := 0; ; i++ {
		old := s.control.Load()
		if old&stopLockBit == 0 && s.control.CompareAndSwap(old, old|stopLockBit) {
			return
		}
		if i%16 == 15 {
			runtime.Gosched()
		}
	}
}

func (s *stopState) unlock() {
	for {
		old := s.control.Load()
		if s.control.CompareAndSwap(old, old&^stopLockBit) {
			return
		}
	}
}

func (s *stopState) stopRequested() bool {
	return s.control.Load()&stopRequestedBit != 0
}

// stopPossible reports whether a stop request can still be observed: either
// one has already been made, or at least one source is alive to make one.
func (s *stopState) stopPossible() bool {
	c := s.control.Load()
	return c&stopRequestedBit != 0 || (c>>sourceCountShift)&countMask > 0
}

func (s *stopState) addToken()  { s.control.Add(tokenCountUnit) }
func (s *stopState) addSource() { s.control.Add(sourceCountUnit) }

// requestStop latches the stop-requested bit and drains the callback list.
// Exactly one caller across all handles observes true. The lock is released
// around each callback invocation.
func (s *stopState) requestStop() bool {
	s.lock()
	c := s.control.Load()
	if c&stopRequestedBit != 0 || (c>>sourceCountShift)&countMask == 0 {
		s.unlock()
		return false
	}
	for {
		old := s.control.Load()
		if s.control.CompareAndSwap(old, old|stopRequestedBit) {
			break
		}
	}
	s.drainer.Store(goid())
	for s.head != nil {
		cb := s.head
		s.head = cb.next
		if s.head != nil {
			s.head.prev = nil
		}
		cb.linked = false
		var removed bool
		cb.removed = &removed
		s.executing = cb
		s.unlock()
		cb.fn()
		s.lock()
		s.executing = nil
		if !removed {
			cb.removed = nil
			close(cb.finished)
		}
	}
	s.drainer.Store(0)
	close(s.done)
	s.unlock()
	return true
}

// addCallback links cb unless stop was already requested, in which case cb
// runs inline and is not linked. Reports whether cb was linked.
func (s *stopState) addCallback(cb *stopCallback) bool {
	s.lock()
	if s.control.Load()&stopRequestedBit != 0 {
		s.unlock()
		cb.fn()
		close(cb.finished)
		return false
	}
	cb.linked = true
	cb.next = s.head
	if s.head != nil {
		s.head.prev = cb
	}
	s.head = cb
	s.unlock()
	return true
}

// removeCallback unlinks cb if it has not run yet. If cb is mid-execution on
// another goroutine, it blocks until the callback returns. If called from
// inside cb itself, it flags the record as removed and returns immediately so
// the drain loop does not touch it again.
func (s *stopState) removeCallback(cb *stopCallback) bool {
	s.lock()
	if cb.linked {
		if cb.prev != nil {
			cb.prev.next = cb.next
		} else if s.head == cb {
			s.head = cb.next
		}
		if cb.next != nil {
			cb.next.prev = cb.prev
		}
		cb.linked = false
		s.unlock()
		return true
	}
	if s.executing == cb {
		if s.drainer.Load() == goid() {
			*cb.removed = true
			s.unlock()
			return false
		}
		s.unlock()
		<-cb.finished
		return false
	}
	s.unlock()
	return false
}

// StopSource issues stop requests on a shared cancellation cell. The zero
// value has no cell: StopPossible reports false and RequestStop is a no-op.
// Copies share the cell.
type StopSource struct {
	st *stopState
}

// NewStopSource creates an independent cancellation cell with one source and
// no tokens.
func NewStopSource() StopSource {
	return StopSource{st: newStopState()}
}

// RequestStop requests a stop. It reports true exactly once across all
// concurrent callers on the same cell; registered callbacks run before it
// returns.
func (s StopSource) RequestStop() bool {
	if s.st == nil {
		return false
	}
	return s.st.requestStop()
}

// StopRequested reports whether a stop has been requested on the cell.
func (s StopSource) StopRequested() bool {
	return s.st != nil && s.st.stopRequested()
}

// StopPossible reports whether a stop request can still be made or observed.
func (s StopSource) StopPossible() bool {
	return s.st != nil && s.st.stopPossible()
}

// Token derives an observer handle for the same cell.
func (s StopSource) Token() StopToken {
	if s.st == nil {
		return StopToken{}
	}
	s.st.addToken()
	return StopToken{st: s.st}
}

// valid reports whether the source refers to a cell.
func (s StopSource) valid() bool { return s.st != nil }

// share registers another co-owning source handle on the same cell.
func (s StopSource) share() StopSource {
	if s.st != nil {
		s.st.addSource()
	}
	return s
}

// StopToken observes stop requests on a shared cancellation cell. The zero
// value observes nothing.
type StopToken struct {
	st *stopState
}

// StopRequested reports whether a stop has been requested.
func (t StopToken) StopRequested() bool {
	return t.st != nil && t.st.stopRequested()
}

// StopPossible reports whether a stop request can still be made or observed.
func (t StopToken) StopPossible() bool {
	return t.st != nil && t.st.stopPossible()
}

// Done returns a channel closed once stop is requested, for use in select
// loops. For the zero token it returns nil, which blocks forever.
func (t StopToken) Done() <-chan struct{} {
	if t.st == nil {
		return nil
	}
	return t.st.done
}

// Register arranges for fn to run when stop is requested. If stop was already
// requested, fn runs inline and the registration reports linked == false.
// The returned registration must not be reused across tokens.
func (t StopToken) Register(fn func()) (*StopRegistration, bool) {
	cb := &stopCallback{fn: fn, finished: make(chan struct{})}
	if t.st == nil {
		return &StopRegistration{}, false
	}
	linked := t.st.addCallback(cb)
	return &StopRegistration{st: t.st, cb: cb}, linked
}

// StopRegistration identifies one registered stop callback.
type StopRegistration struct {
	st *stopState
	cb *stopCallback
}

// Unregister removes the callback if it has not run. If the callback is
// currently executing on another goroutine, Unregister blocks until it
// returns. Calling Unregister from inside the callback itself is allowed and
// returns immediately. Reports whether the callback was prevented from
// running.
func (r *StopRegistration) Unregister() bool {
	if r.st == nil {
		return false
	}
	return r.st.removeCallback(r.cb)
}

// goid returns the current goroutine's id. Only the rare Unregister paths pay
// for the stack parse; the drain loop records its id once per stop request.
func goid() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine <id> [...": cut the prefix, parse up to the next space.
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
