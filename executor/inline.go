package executor

import "runtime"

// Inline runs dispatched work on the calling goroutine and posted work on
// fresh goroutines. The futures core only posts and defers, so continuations
// scheduled through Inline run on fresh goroutines too.
type Inline struct{}

// NewInline returns an inline executor. Inline has zero size, so whether two
// pointers returned here compare equal is unspecified; use a shared value if
// identity matters.
func NewInline() *Inline { return &Inline{} }

// Post runs fn on a new goroutine.
func (e *Inline) Post(fn func()) { go fn() }

// Dispatch runs fn inline.
func (e *Inline) Dispatch(fn func()) { fn() }

// Defer runs fn on a new goroutine after yielding to pending work.
func (e *Inline) Defer(fn func()) {
	go func() {
		runtime.Gosched()
		fn()
	}()
}
