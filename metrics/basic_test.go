package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicProvider_CounterReuseByName(t *testing.T) {
	p := NewBasicProvider()
	c1 := p.Counter("tasks", WithDescription("d"), WithUnit("1"))
	c2 := p.Counter("tasks")
	require.Same(t, c1.(*BasicCounter), c2.(*BasicCounter))

	c1.Add(2)
	c2.Add(3)
	require.EqualValues(t, 5, p.CounterValue("tasks"))
}

func TestBasicProvider_UpDownCounter(t *testing.T) {
	p := NewBasicProvider()
	c := p.UpDownCounter("inflight")
	c.Add(3)
	c.Add(-1)
	require.EqualValues(t, 2, p.CounterValue("inflight"))
}

func TestBasicProvider_Histogram(t *testing.T) {
	p := NewBasicProvider()
	h := p.Histogram("duration", WithUnit("seconds"))
	h.Record(0.5)
	h.Record(1.5)

	bh := h.(*BasicHistogram)
	require.EqualValues(t, 2, bh.Count())
	require.InDelta(t, 2.0, bh.Sum(), 1e-9)
	require.EqualValues(t, 2, p.HistogramCount("duration"))
}

func TestBasicProvider_ConcurrentUse(t *testing.T) {
	p := NewBasicProvider()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Counter("n").Add(1)
				p.Histogram("h").Record(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 800, p.CounterValue("n"))
	require.EqualValues(t, 800, p.HistogramCount("h"))
}

func TestBasicProvider_UnknownInstrumentsAreZero(t *testing.T) {
	p := NewBasicProvider()
	require.EqualValues(t, 0, p.CounterValue("missing"))
	require.EqualValues(t, 0, p.HistogramCount("missing"))
}

func TestNoopProvider_Discards(t *testing.T) {
	p := NewNoopProvider()
	p.Counter("x").Add(1)
	p.UpDownCounter("y").Add(-1)
	p.Histogram("z").Record(3.14)
}
