package cache

import "sync/atomic"

// counters tracks request and miss totals without locking.
type counters struct {
	requests atomic.Uint64
	misses   atomic.Uint64
}

func (c *counters) hit() { c.requests.Add(1) }

func (c *counters) miss() {
	c.requests.Add(1)
	c.misses.Add(1)
}

func (c *counters) Requests() uint64 { return c.requests.Load() }

func (c *counters) Misses() uint64 { return c.misses.Load() }

func (c *counters) MissRatio() float64 {
	requests := c.requests.Load()
	if requests == 0 {
		return 0
	}
	return float64(c.misses.Load()) / float64(requests)
}

func (c *counters) resetCounters() {
	c.requests.Store(0)
	c.misses.Store(0)
}
