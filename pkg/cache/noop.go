package cache

// Noop stores nothing. Every lookup is a miss and GetOrLoad calls the loader
// every time, so concurrent misses are not coalesced.
type Noop[K comparable, V any] struct {
	counters
}

func NewNoop[K comparable, V any]() *Noop[K, V] {
	return &Noop[K, V]{}
}

func (c *Noop[K, V]) Get(K) (V, bool) {
	c.miss()
	var zero V
	return zero, false
}

func (c *Noop[K, V]) Put(K, V) {}

func (c *Noop[K, V]) GetOrLoad(key K, loader Loader[K, V]) (V, error) {
	c.miss()
	if loader == nil {
		var zero V
		return zero, ErrNilLoader
	}
	return loader(key)
}

func (c *Noop[K, V]) Len() int { return 0 }

func (c *Noop[K, V]) Reset() { c.resetCounters() }
