package cache

// Statistics is exposed by every cache for operational monitoring.
type Statistics interface {
	// Len returns the number of entries currently held.
	Len() int
	// Requests returns the cumulative number of lookups.
	Requests() uint64
	// Misses returns the cumulative number of lookups that found nothing.
	Misses() uint64
	// MissRatio returns Misses / Requests, or 0 before the first request.
	MissRatio() float64
	// Reset removes every entry and zeroes the counters.
	Reset()
}

// Cache is the read-only tier.
type Cache[K comparable, V any] interface {
	Statistics
	Get(key K) (V, bool)
}

// PutCache adds explicit population.
type PutCache[K comparable, V any] interface {
	Cache[K, V]
	Put(key K, value V)
}

// Loader produces the value for key on a cache miss. Loaders must be
// idempotent: depending on the backend they may run more than once for
// concurrent misses on the same key.
type Loader[K comparable, V any] func(key K) (V, error)

// LoadingCache returns cached values and falls back to a caller supplied
// loader on a miss. A successful loader result is always stored and returned;
// loader errors are returned and never cached.
type LoadingCache[K comparable, V any] interface {
	PutCache[K, V]
	GetOrLoad(key K, loader Loader[K, V]) (V, error)
}
