package futures

import "sync"

// shutdownCoordinator encapsulates the teardown sequence for a combinator
// proxy. It is a wiring helper: it owns nothing; it orchestrates cancellation
// and joins in a deterministic order.
//
// Close is safe for concurrent calls; the sequence executes exactly once.
type shutdownCoordinator struct {
	signalCancel  func()
	joinNotifiers func()
	releaseState  func()

	once sync.Once
}

// Close executes the teardown sequence exactly once:
// 1) flag every notifier's cancel token
// 2) wait for goroutine-backed notifiers to drain
// 3) release any remaining coordinator state
func (sc *shutdownCoordinator) Close() {
	sc.once.Do(func() {
		if sc.signalCancel != nil {
			sc.signalCancel()
		}
		if sc.joinNotifiers != nil {
			sc.joinNotifiers()
		}
		if sc.releaseState != nil {
			sc.releaseState()
		}
	})
}
