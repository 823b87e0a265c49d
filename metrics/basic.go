package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// BasicProvider is an in-memory Provider suitable for tests, examples, and
// lightweight introspection. Instruments are created on first use and reused
// by name; metadata from options is stored but otherwise unused.
type BasicProvider struct {
	mu          sync.Mutex
	counters    map[string]*BasicCounter
	updowns     map[string]*BasicCounter
	histograms  map[string]*BasicHistogram
	descriptors map[string]InstrumentConfig
}

// NewBasicProvider constructs an empty BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:    make(map[string]*BasicCounter),
		updowns:     make(map[string]*BasicCounter),
		histograms:  make(map[string]*BasicHistogram),
		descriptors: make(map[string]InstrumentConfig),
	}
}

// Counter returns the monotonic counter registered under name.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = &BasicCounter{}
		p.counters[name] = c
		p.descriptors[name] = applyOptions(opts)
	}
	return c
}

// UpDownCounter returns the bidirectional counter registered under name.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.updowns[name]
	if !ok {
		c = &BasicCounter{}
		p.updowns[name] = c
		p.descriptors[name] = applyOptions(opts)
	}
	return c
}

// Histogram returns the histogram registered under name.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		h = &BasicHistogram{min: math.Inf(1), max: math.Inf(-1)}
		p.histograms[name] = h
		p.descriptors[name] = applyOptions(opts)
	}
	return h
}

// CounterValue reports the current value of the named counter; zero if it
// was never used.
func (p *BasicProvider) CounterValue(name string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c.Value()
	}
	if c, ok := p.updowns[name]; ok {
		return c.Value()
	}
	return 0
}

// HistogramCount reports how many measurements the named histogram received.
func (p *BasicProvider) HistogramCount(name string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h.Count()
	}
	return 0
}

func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// BasicCounter is an atomic int64 instrument; it backs both counter kinds.
type BasicCounter struct {
	v atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.v.Add(n) }

// Value returns the current count.
func (c *BasicCounter) Value() int64 { return c.v.Load() }

// BasicHistogram accumulates count, sum, min, and max of its measurements.
type BasicHistogram struct {
	mu    sync.Mutex
	count uint64
	sum   float64
	min   float64
	max   float64
}

func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	if v < h.min {
		h.min = v
	}
	if v > h.max {
		h.max = v
	}
}

// Count returns the number of recorded measurements.
func (h *BasicHistogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Sum returns the sum of recorded measurements.
func (h *BasicHistogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}
