package futures

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/futures/executor"
)

// IndexNone is the AnyResult index reported by an empty disjunction.
const IndexNone = -1

// Tuning constants for the hybrid wait-any strategy. These are heuristics,
// not semantics: they trade caller latency against notifier setup cost.
const (
	// busySlotInitial is the first per-leaf probe duration. Starting at a
	// single nanosecond keeps the first pass over the leaves effectively a
	// readiness scan.
	busySlotInitial = time.Nanosecond

	// busySlotGrowthNum/Den grow the probe slot by 25% per probe, so the poll
	// decays smoothly from spinning toward sleeping.
	busySlotGrowthNum = 5
	busySlotGrowthDen = 4

	// busySlotCeiling bounds the probe slot, divided by the leaf count at
	// run time: one full pass over the leaves should never cost more than
	// roughly the price of spawning a notifier goroutine.
	busySlotCeiling = 20 * time.Microsecond

	// busyBudgetPerLeaf scales the polling phase with the number of leaves;
	// more leaves make notifier setup proportionally more expensive, so
	// polling is given more room first.
	busyBudgetPerLeaf = 100 * time.Millisecond

	// busyFirstPassCeiling caps the polling phase regardless of leaf count.
	// Past this point waiting is clearly long-lived and notifiers amortize.
	busyFirstPassCeiling = 5 * time.Second

	// notifierSlice bounds each blocking wait inside a notifier goroutine so
	// it can observe its cancel flag and the shared cell periodically.
	notifierSlice = time.Second

	// Start-gate backoff: how long to keep polling while spawned notifiers
	// have not reported in yet. Waiting on the cell before any notifier runs
	// could block forever.
	startGateBase      = 20 * time.Microsecond
	startGateCap       = time.Second
	startGateGrowthNum = 3
	startGateGrowthDen = 2
)

// notifyCell is the shared notification cell: a latch set by the first
// notifier that observes a ready leaf. Polling passes do not latch it.
type notifyCell struct {
	mu       sync.Mutex
	notified bool
	ch       chan struct{}
}

func newNotifyCell() *notifyCell {
	return &notifyCell{ch: make(chan struct{})}
}

func (c *notifyCell) latch() {
	c.mu.Lock()
	if !c.notified {
		c.notified = true
		close(c.ch)
	}
	c.mu.Unlock()
}

func (c *notifyCell) isNotified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notified
}

func (c *notifyCell) waitFor(d time.Duration) Status {
	if c.isNotified() {
		return StatusReady
	}
	if d <= 0 {
		return StatusTimeout
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.ch:
		return StatusReady
	case <-timer.C:
		return StatusTimeout
	}
}

// notifierRecord tracks one notifier: its completion latch, a cancel flag
// consulted between wait slices, and a start flag gating cell waits.
type notifierRecord struct {
	done    chan struct{}
	cancel  atomic.Bool
	started atomic.Bool

	// goroutineBacked notifiers are joined on Close; lazy ones are plain
	// continuations and hold no resources worth joining.
	goroutineBacked bool
}

// anyCore implements the disjunction wait algorithm over type-erased leaves.
// It allocates no result cell for the disjunction itself, only the notifier
// coordination state.
type anyCore struct {
	leaves []anyFuture
	cell   *notifyCell

	mu        sync.Mutex
	notifiers []*notifierRecord
	lazySet   bool
	threadSet bool
}

func newAnyCore(leaves []anyFuture) *anyCore {
	return &anyCore{leaves: leaves, cell: newNotifyCell()}
}

// readyIndex scans for the first ready leaf; IndexNone when none is.
func (c *anyCore) readyIndex() int {
	for i, leaf := range c.leaves {
		if leaf.Valid() && leaf.IsReady() {
			return i
		}
	}
	return IndexNone
}

func (c *anyCore) isReady() bool {
	if len(c.leaves) == 0 {
		return true
	}
	return c.cell.isNotified() || c.readyIndex() != IndexNone
}

// lazyCount counts the leaves supporting lazy continuations, precisely.
func (c *anyCore) lazyCount() int {
	n := 0
	for _, leaf := range c.leaves {
		if leaf.lazyContinuable() {
			n++
		}
	}
	return n
}

func (c *anyCore) notifiersStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.notifiers {
		if rec.started.Load() {
			return true
		}
	}
	return false
}

func (c *anyCore) wait() {
	c.waitCommon(0, false)
}

func (c *anyCore) waitFor(d time.Duration) Status {
	return c.waitCommon(d, true)
}

// waitCommon is the strategy selector: trivial short-circuits, the lazy-only
// fast path, then the busy/notifier hybrid.
func (c *anyCore) waitCommon(d time.Duration, timed bool) Status {
	switch len(c.leaves) {
	case 0:
		return StatusReady
	case 1:
		if timed {
			return c.leaves[0].WaitFor(d)
		}
		c.leaves[0].Wait()
		return StatusReady
	}

	lazy := c.lazyCount()
	if lazy > 0 {
		c.setupLazyNotifiers()
	}
	if lazy == len(c.leaves) {
		// Every leaf signals the cell by continuation; just block on it.
		if timed {
			return c.cell.waitFor(d)
		}
		return c.cellWaitUnbounded()
	}

	// Polling budget: proportional to the leaf count, capped.
	budget := busyBudgetPerLeaf * time.Duration(len(c.leaves))
	if budget > busyFirstPassCeiling {
		budget = busyFirstPassCeiling
	}

	// Too many leaves: notifier goroutines would outnumber the CPUs; polling
	// is the cheaper strategy at that scale. A deadline below the budget is
	// also served by polling alone.
	stayBusy := len(c.leaves) >= executor.HardwareConcurrency()
	if timed && d <= budget {
		stayBusy = true
	}
	if stayBusy {
		return c.busyWaitFor(d, timed)
	}

	start := time.Now()
	if s := c.busyWaitFor(budget, true); s == StatusReady {
		return StatusReady
	}
	if timed {
		remaining := d - time.Since(start)
		if remaining <= 0 {
			return StatusTimeout
		}
		return c.notifierWaitFor(remaining, true)
	}
	return c.notifierWaitFor(0, false)
}

// busyWaitFor polls the non-lazy leaves with a geometrically growing
// per-probe slot, consulting the notification cell between probes.
func (c *anyCore) busyWaitFor(d time.Duration, timed bool) Status {
	start := time.Now()
	n := len(c.leaves)
	slot := busySlotInitial
	maxSlot := busySlotCeiling / time.Duration(n)
	if maxSlot < busySlotInitial {
		maxSlot = busySlotInitial
	}
	lazyArmed := c.lazyCount() > 0
	for {
		if lazyArmed && c.notifiersStarted() {
			if c.cell.waitFor(slot) == StatusReady {
				return StatusReady
			}
		}
		polled := 0
		for _, leaf := range c.leaves {
			if !leaf.Valid() || leaf.lazyContinuable() {
				continue
			}
			polled++
			if leaf.WaitFor(slot) == StatusReady {
				return StatusReady
			}
			if slot < maxSlot {
				slot = slot*busySlotGrowthNum/busySlotGrowthDen + time.Nanosecond
				if slot > maxSlot {
					slot = maxSlot
				}
			}
			// A slower leaf may have been overtaken by another completing.
			if c.readyIndex() != IndexNone {
				return StatusReady
			}
			if timed && time.Since(start) >= d {
				return StatusTimeout
			}
		}
		if polled == 0 {
			// Nothing left to probe directly; pace the cell checks instead.
			time.Sleep(slot)
			if slot < maxSlot {
				slot = slot*busySlotGrowthNum/busySlotGrowthDen + time.Nanosecond
			}
		}
		if timed && time.Since(start) >= d {
			return StatusTimeout
		}
	}
}

// notifierWaitFor installs goroutine notifiers on the non-lazy leaves and
// blocks on the cell. Until at least one notifier has reported in, it keeps
// polling with its own backoff: a cell wait before any notifier runs could
// miss a completion forever.
func (c *anyCore) notifierWaitFor(d time.Duration, timed bool) Status {
	start := time.Now()
	c.setupGoroutineNotifiers()

	gate := startGateBase
	for !c.notifiersStarted() {
		remaining := gate
		if timed {
			left := d - time.Since(start)
			if left <= 0 {
				return StatusTimeout
			}
			if left < remaining {
				remaining = left
			}
		}
		if c.busyWaitFor(remaining, true) == StatusReady {
			return StatusReady
		}
		gate = gate * startGateGrowthNum / startGateGrowthDen
		if gate > startGateCap {
			gate = startGateCap
		}
	}

	if timed {
		remaining := d - time.Since(start)
		if remaining <= 0 {
			return StatusTimeout
		}
		return c.cell.waitFor(remaining)
	}
	return c.cellWaitUnbounded()
}

// cellWaitUnbounded blocks on the cell in bounded slices, re-scanning the
// leaves between slices in case a completion raced the notifier setup.
func (c *anyCore) cellWaitUnbounded() Status {
	for {
		if c.cell.waitFor(notifierSlice) == StatusReady {
			return StatusReady
		}
		if c.readyIndex() != IndexNone {
			return StatusReady
		}
	}
}

// setupLazyNotifiers emplaces a continuation on every lazily continuable
// leaf. Installed at most once.
func (c *anyCore) setupLazyNotifiers() {
	c.mu.Lock()
	if c.lazySet {
		c.mu.Unlock()
		return
	}
	c.lazySet = true
	c.mu.Unlock()

	for _, leaf := range c.leaves {
		if !leaf.Valid() || !leaf.lazyContinuable() {
			continue
		}
		rec := &notifierRecord{done: make(chan struct{})}
		rec.started.Store(true)
		cell := c.cell
		leaf.emplaceContinuation(leafExecutor(leaf), func() {
			if !rec.cancel.Load() {
				cell.latch()
			}
			close(rec.done)
		})
		c.mu.Lock()
		c.notifiers = append(c.notifiers, rec)
		c.mu.Unlock()
	}
}

// setupGoroutineNotifiers spawns one watcher goroutine per non-lazy leaf.
// Notifiers never go through an executor: the tasks being watched may be
// occupying all of its capacity, and a notifier stuck behind them would
// never report. Installed at most once.
func (c *anyCore) setupGoroutineNotifiers() {
	c.mu.Lock()
	if c.threadSet {
		c.mu.Unlock()
		return
	}
	c.threadSet = true
	c.mu.Unlock()

	for _, leaf := range c.leaves {
		if !leaf.Valid() || leaf.lazyContinuable() {
			continue
		}
		rec := &notifierRecord{done: make(chan struct{}), goroutineBacked: true}
		c.mu.Lock()
		c.notifiers = append(c.notifiers, rec)
		c.mu.Unlock()
		if ins := instrumentsOf(leaf.conf()); ins != nil {
			ins.notifierGoroutines.Add(1)
		}
		go c.runNotifier(rec, leaf)
	}
}

// runNotifier watches one leaf: report in, honor cancellation, and latch the
// cell when the leaf is ready or when the leaf is gone. Waits are sliced so
// the cancel flag and the cell are re-checked periodically.
func (c *anyCore) runNotifier(rec *notifierRecord, leaf anyFuture) {
	defer close(rec.done)
	rec.started.Store(true)
	if rec.cancel.Load() {
		return
	}
	if !leaf.Valid() || leaf.IsReady() {
		c.cell.latch()
		return
	}
	for {
		if leaf.WaitFor(notifierSlice) == StatusReady {
			c.cell.latch()
			return
		}
		if rec.cancel.Load() {
			return
		}
		if c.cell.isNotified() {
			return
		}
	}
}

// requestNotifiersStop flags every notifier without waiting. Used when the
// leaves are about to be handed to a merged disjunction.
func (c *anyCore) requestNotifiersStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.notifiers {
		rec.cancel.Store(true)
	}
}

// joinNotifiers waits for every goroutine-backed notifier to finish.
func (c *anyCore) joinNotifiers() {
	c.mu.Lock()
	notifiers := c.notifiers
	c.mu.Unlock()
	for _, rec := range notifiers {
		if rec.goroutineBacked {
			<-rec.done
		}
	}
}

func leafExecutor(leaf anyFuture) executor.Executor {
	if ex := executorOf(leaf.conf()); ex != nil {
		return ex
	}
	return executor.Default()
}

// AnyResult is the outcome of a homogeneous disjunction: the index of the
// first leaf observed ready and the leaf collection, moved out of the proxy.
type AnyResult[T any] struct {
	Index int
	Tasks []*Future[T]
}

func (r AnyResult[T]) anyIndex() int { return r.Index }

func (r AnyResult[T]) anyLeaves() []anyFuture {
	leaves := make([]anyFuture, len(r.Tasks))
	for i, f := range r.Tasks {
		leaves[i] = f
	}
	return leaves
}

// anyResultMarker lets the continuation dispatcher recognize wait-any result
// types.
type anyResultMarker interface {
	anyIndex() int
	anyLeaves() []anyFuture
}

// WhenAnyFuture is the proxy future produced by WhenAny. It owns its leaves
// and the notifier coordination; it has no result cell of its own.
type WhenAnyFuture[T any] struct {
	core   *anyCore
	leaves []*Future[T]
	sc     shutdownCoordinator
}

// WhenAny builds a disjunction proxy over fs: it becomes ready as soon as any
// leaf does. An empty fs yields an immediately ready proxy with IndexNone.
func WhenAny[T any](fs ...*Future[T]) *WhenAnyFuture[T] {
	leaves := make([]*Future[T], len(fs))
	copy(leaves, fs)
	erased := make([]anyFuture, len(fs))
	for i, f := range fs {
		erased[i] = f
	}
	w := &WhenAnyFuture[T]{core: newAnyCore(erased), leaves: leaves}
	w.sc = shutdownCoordinator{
		signalCancel:  w.core.requestNotifiersStop,
		joinNotifiers: w.core.joinNotifiers,
	}
	return w
}

// Valid reports whether the proxy still owns its leaves.
func (w *WhenAnyFuture[T]) Valid() bool {
	return w != nil && w.leaves != nil
}

// IsReady reports whether some leaf already holds a result.
func (w *WhenAnyFuture[T]) IsReady() bool {
	return w.Valid() && w.core.isReady()
}

// Wait blocks until some leaf is ready.
func (w *WhenAnyFuture[T]) Wait() {
	if w.Valid() {
		w.core.wait()
	}
}

// WaitFor blocks until some leaf is ready or d elapses. If any leaf becomes
// ready, WaitFor returns within a bounded extra delay that depends only on
// the tuning constants, never on the other leaves.
func (w *WhenAnyFuture[T]) WaitFor(d time.Duration) Status {
	if !w.Valid() {
		return StatusTimeout
	}
	return w.core.waitFor(d)
}

// WaitUntil blocks until some leaf is ready or the deadline passes.
func (w *WhenAnyFuture[T]) WaitUntil(t time.Time) Status {
	return w.WaitFor(time.Until(t))
}

// Get waits, then moves the leaves out together with the index of the first
// leaf observed ready. The proxy is invalidated and its notifiers are shut
// down.
func (w *WhenAnyFuture[T]) Get() (AnyResult[T], error) {
	if !w.Valid() {
		return AnyResult[T]{Index: IndexNone}, ErrNoState
	}
	w.core.wait()
	idx := w.core.readyIndex()
	if len(w.leaves) == 0 {
		idx = IndexNone
	}
	tasks := w.Release()
	w.Close()
	return AnyResult[T]{Index: idx, Tasks: tasks}, nil
}

// Release moves the leaves out without waiting, invalidating the proxy.
func (w *WhenAnyFuture[T]) Release() []*Future[T] {
	if !w.Valid() {
		return nil
	}
	leaves := w.leaves
	w.leaves = nil
	return leaves
}

// Or merges one more leaf into the disjunction, flattening: the result is an
// n+1-way disjunction, not a nested two-way one. The receiver is consumed.
func (w *WhenAnyFuture[T]) Or(f *Future[T]) *WhenAnyFuture[T] {
	w.core.requestNotifiersStop()
	return WhenAny(append(w.Release(), f)...)
}

// OrAny merges two disjunctions into one flat one. Both inputs are consumed.
func (w *WhenAnyFuture[T]) OrAny(o *WhenAnyFuture[T]) *WhenAnyFuture[T] {
	w.core.requestNotifiersStop()
	o.core.requestNotifiersStop()
	return WhenAny(append(w.Release(), o.Release()...)...)
}

// Close cancels the notifiers and waits for the goroutine-backed ones. Leaves
// still owned are joined so no watched computation outlives the proxy
// unobserved. Safe to call more than once.
func (w *WhenAnyFuture[T]) Close() {
	if w == nil {
		return
	}
	w.sc.Close()
	for _, f := range w.leaves {
		f.Join()
	}
	w.leaves = nil
}
