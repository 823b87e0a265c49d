package futures

import (
	"github.com/ygrebnov/futures/executor"
	"github.com/ygrebnov/futures/metrics"
)

// config holds the scheduling configuration shared by a future and every
// state derived from it (continuations inherit the parent's config).
type config struct {
	// executor runs tasks, deferred launches, and continuation trampolines.
	// Default: executor.Default().
	executor executor.Executor

	// metrics receives task, continuation, and notifier instrumentation.
	// Default: metrics.NewNoopProvider().
	metrics metrics.Provider

	// instruments are resolved once per config from the provider.
	instruments *instruments
}

// instruments caches the instrument handles the core records into.
type instruments struct {
	tasksStarted       metrics.Counter
	tasksCompleted     metrics.Counter
	taskDuration       metrics.Histogram
	continuations      metrics.Counter
	notifierGoroutines metrics.Counter
}

func newInstruments(p metrics.Provider) *instruments {
	return &instruments{
		tasksStarted: p.Counter("futures_tasks_started_total",
			metrics.WithDescription("tasks submitted to an executor"), metrics.WithUnit("1")),
		tasksCompleted: p.Counter("futures_tasks_completed_total",
			metrics.WithDescription("tasks that stored a value or an error"), metrics.WithUnit("1")),
		taskDuration: p.Histogram("futures_task_duration_seconds",
			metrics.WithDescription("task body execution time"), metrics.WithUnit("seconds")),
		continuations: p.Counter("futures_continuations_total",
			metrics.WithDescription("continuations attached via Then"), metrics.WithUnit("1")),
		notifierGoroutines: p.Counter("futures_notifier_goroutines_total",
			metrics.WithDescription("notifier goroutines spawned by wait-any"), metrics.WithUnit("1")),
	}
}

// executorOf is a nil-safe accessor: value-only states carry no config.
func executorOf(c *config) executor.Executor {
	if c == nil {
		return nil
	}
	return c.executor
}

// instrumentsOf is a nil-safe accessor for the config's instrument handles.
func instrumentsOf(c *config) *instruments {
	if c == nil {
		return nil
	}
	return c.instruments
}

// validateConfig performs lightweight invariant checks and fills defaults.
func validateConfig(c *config) error {
	if c.executor == nil {
		c.executor = executor.Default()
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNoopProvider()
	}
	if c.instruments == nil {
		c.instruments = newInstruments(c.metrics)
	}
	return nil
}
