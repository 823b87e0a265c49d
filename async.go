package futures

// Async submits fn to the configured executor and returns a continuable
// future for its result. If fn accepts a StopToken the future is also
// stoppable: RequestStop on it flags the token handed to fn.
//
// Async panics with ErrInvalidTask when fn matches none of the accepted task
// shapes (see newTask); the mismatch is a programmer error detected at
// construction.
func Async[T any](fn any, opts ...Option) *Future[T] {
	cfg := newConfig(opts)
	run, wantsToken, err := newTask[T](fn)
	if err != nil {
		panic(err)
	}

	st := newState[T](cfg, phaseLaunched)
	st.conts = &continuationList{}
	fl := flagContinuable
	var token StopToken
	if wantsToken {
		st.stop = NewStopSource()
		token = st.stop.Token()
		fl |= flagStoppable
	}

	cfg.instruments.tasksStarted.Add(1)
	cfg.executor.Post(func() {
		st.apply(func() (T, error) { return run(token) })
	})
	return newFuture(st, fl)
}

// Schedule wraps fn in a deferred future: nothing runs until the future is
// first waited on, at which point fn is posted to the configured executor.
// Like Async, the future is stoppable when fn accepts a StopToken.
func Schedule[T any](fn any, opts ...Option) *Future[T] {
	cfg := newConfig(opts)
	run, wantsToken, err := newTask[T](fn)
	if err != nil {
		panic(err)
	}

	st := newState[T](cfg, phaseDeferred)
	st.conts = &continuationList{}
	fl := flagContinuable | flagDeferred
	var token StopToken
	if wantsToken {
		st.stop = NewStopSource()
		token = st.stop.Token()
		fl |= flagStoppable
	}

	st.task = func() {
		cfg.instruments.tasksStarted.Add(1)
		st.apply(func() (T, error) { return run(token) })
	}
	return newFuture(st, fl)
}

// MakeReadyFuture wraps v in an already-ready future. The result carries no
// continuation list, stop source, or executor.
func MakeReadyFuture[T any](v T) *Future[T] {
	return newFuture(newReadyState(v, nil), 0)
}

// MakeExceptionalFuture wraps err in an already-ready future.
func MakeExceptionalFuture[T any](err error) *Future[T] {
	var zero T
	return newFuture(newReadyState(zero, err), 0)
}
