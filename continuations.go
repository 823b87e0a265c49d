package futures

import (
	"sync"

	"github.com/ygrebnov/futures/executor"
)

// continuationList is an append-once / fire-once list of nullary callbacks.
//
// Two locks: runMu guards the run-requested flag, mu guards the slice. They
// are always taken in that order. Once run has been requested the list stays
// empty; late arrivals are handed to the executor instead of being linked.
type continuationList struct {
	runMu        sync.Mutex
	runRequested bool

	mu      sync.Mutex
	entries []func()
}

// emplace appends fn unless run was already requested, in which case fn is
// posted to ex and emplace reports false. Out-of-band callbacks are not
// ordered relative to the in-band ones.
func (l *continuationList) emplace(ex executor.Executor, fn func()) bool {
	l.runMu.Lock()
	if l.runRequested {
		l.runMu.Unlock()
		if ex != nil {
			ex.Post(fn)
		} else {
			go fn()
		}
		return false
	}
	l.mu.Lock()
	l.entries = append(l.entries, fn)
	l.mu.Unlock()
	l.runMu.Unlock()
	return true
}

// requestRun flips the run-requested flag and invokes every callback in
// insertion order, then clears the list. Reports false if run was already
// requested.
func (l *continuationList) requestRun() bool {
	l.runMu.Lock()
	if l.runRequested {
		l.runMu.Unlock()
		return false
	}
	l.runRequested = true
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()
	l.runMu.Unlock()
	for _, fn := range entries {
		fn()
	}
	return true
}
