package futures

import "github.com/ygrebnov/futures/metrics"

// defaultConfig centralizes default values for config. The executor default
// is resolved lazily in validateConfig so that merely importing the package
// does not spin up the shared pool.
func defaultConfig() config {
	return config{
		executor: nil, // resolved to executor.Default() by validateConfig
		metrics:  metrics.NewNoopProvider(),
	}
}
