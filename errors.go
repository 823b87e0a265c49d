package futures

import "errors"

const Namespace = "futures"

var (
	// ErrNoState reports an operation on a handle that does not refer to a
	// shared operation state (released, consumed, or zero value).
	ErrNoState = errors.New(Namespace + ": no associated state")

	// ErrPromiseAlreadySatisfied reports a second SetValue or SetError on the
	// same state.
	ErrPromiseAlreadySatisfied = errors.New(Namespace + ": promise already satisfied")

	// ErrBrokenPromise is stored in the state when a producer handle is closed
	// before supplying a result.
	ErrBrokenPromise = errors.New(Namespace + ": broken promise")

	// ErrFutureAlreadyRetrieved reports a second Future() call on the same
	// promise or packaged task.
	ErrFutureAlreadyRetrieved = errors.New(Namespace + ": future already retrieved")

	// ErrInvalidTask reports a task function whose signature is not one of the
	// supported shapes.
	ErrInvalidTask = errors.New(Namespace + ": invalid task type")

	// ErrInvalidContinuation reports a continuation function that matches none
	// of the unwrapping rules for the parent future's value type.
	ErrInvalidContinuation = errors.New(Namespace + ": invalid continuation type")

	// ErrTaskPanicked wraps a recovered panic from a task or continuation body.
	ErrTaskPanicked = errors.New(Namespace + ": task execution panicked")
)
