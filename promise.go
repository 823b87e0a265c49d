package futures

// Promise is the producer side of a manually fulfilled future. Exactly one
// of SetValue or SetError may succeed; Close before either stores a
// broken-promise error so consumers never block forever.
type Promise[T any] struct {
	st *state[T]
}

// NewPromise creates a promise with a fresh, unfulfilled state.
func NewPromise[T any](opts ...Option) *Promise[T] {
	cfg := newConfig(opts)
	return &Promise[T]{st: newState[T](cfg, phaseLaunched)}
}

// Future returns the consumer handle. It may be called once; further calls
// fail with ErrFutureAlreadyRetrieved.
func (p *Promise[T]) Future() (*Future[T], error) {
	if p.st == nil {
		return nil, ErrNoState
	}
	if err := p.st.markRetrieved(); err != nil {
		return nil, err
	}
	return newFuture(p.st, 0), nil
}

// SetValue fulfills the promise with v.
func (p *Promise[T]) SetValue(v T) error {
	if p.st == nil {
		return ErrNoState
	}
	return p.st.setValue(v)
}

// SetError fulfills the promise with err.
func (p *Promise[T]) SetError(err error) error {
	if p.st == nil {
		return ErrNoState
	}
	return p.st.setError(err)
}

// Close releases the producer handle. If the promise was never fulfilled the
// state receives ErrBrokenPromise.
func (p *Promise[T]) Close() {
	if p.st == nil {
		return
	}
	p.st.abandon()
	p.st = nil
}

// PackagedTask couples a task with a future and defers execution to an
// explicit Run call.
type PackagedTask[T any] struct {
	st   *state[T]
	run  taskFunc[T]
	tok  StopToken
	done bool
}

// NewPackagedTask wraps fn (any shape accepted by Async) for manual
// invocation.
func NewPackagedTask[T any](fn any, opts ...Option) (*PackagedTask[T], error) {
	cfg := newConfig(opts)
	run, wantsToken, err := newTask[T](fn)
	if err != nil {
		return nil, err
	}
	st := newState[T](cfg, phaseLaunched)
	st.conts = &continuationList{}
	pt := &PackagedTask[T]{st: st, run: run}
	if wantsToken {
		st.stop = NewStopSource()
		pt.tok = st.stop.Token()
	}
	return pt, nil
}

// Future returns the consumer handle. It may be called once; further calls
// fail with ErrFutureAlreadyRetrieved.
func (t *PackagedTask[T]) Future() (*Future[T], error) {
	if t.st == nil {
		return nil, ErrNoState
	}
	if err := t.st.markRetrieved(); err != nil {
		return nil, err
	}
	fl := flagContinuable
	if t.st.stop.valid() {
		fl |= flagStoppable
	}
	return newFuture(t.st, fl), nil
}

// Run executes the task on the calling goroutine and stores its outcome.
// The task runs at most once; later calls fail with
// ErrPromiseAlreadySatisfied.
func (t *PackagedTask[T]) Run() error {
	if t.st == nil {
		return ErrNoState
	}
	if t.done {
		return ErrPromiseAlreadySatisfied
	}
	t.done = true
	run, tok := t.run, t.tok
	t.st.apply(func() (T, error) { return run(tok) })
	return nil
}

// Close releases the producer handle. If the task never ran, the state
// receives ErrBrokenPromise.
func (t *PackagedTask[T]) Close() {
	if t.st == nil {
		return
	}
	if !t.done {
		t.st.abandon()
	}
	t.st = nil
}
