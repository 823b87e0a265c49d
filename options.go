package futures

import (
	"github.com/ygrebnov/futures/executor"
	"github.com/ygrebnov/futures/metrics"
)

// Option configures Async, Schedule, and the producer-side constructors.
type Option func(*configOptions)

// internal builder state for options assembly.
type configOptions struct {
	cfg config
}

// WithExecutor submits the task and its continuations through ex instead of
// the shared default pool.
func WithExecutor(ex executor.Executor) Option {
	return func(co *configOptions) {
		if ex == nil {
			panic("nil executor option")
		}
		co.cfg.executor = ex
	}
}

// WithMetrics records task and continuation activity through p.
func WithMetrics(p metrics.Provider) Option {
	return func(co *configOptions) {
		if p == nil {
			panic("nil metrics provider option")
		}
		co.cfg.metrics = p
		co.cfg.instruments = nil // re-resolved against p
	}
}

func newConfig(opts []Option) *config {
	co := configOptions{cfg: defaultConfig()}
	for _, opt := range opts {
		if opt == nil {
			panic("nil futures option")
		}
		opt(&co)
	}
	if err := validateConfig(&co.cfg); err != nil {
		panic(err)
	}
	return &co.cfg
}
