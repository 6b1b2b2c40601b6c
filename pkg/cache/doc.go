// Package cache defines the cache abstraction used by the dataset and the
// matching engine, together with the backends that implement it.
//
// The abstraction is split into capability tiers so that a backend only
// implements what it supports:
//
//   - Cache: Get(key) plus Statistics
//   - PutCache: adds Put(key, value)
//   - LoadingCache: adds GetOrLoad(key, loader)
//
// Every cache reports Len, Requests, Misses and MissRatio and can be Reset,
// which clears both the entries and the counters.
//
// # Backends
//
//   - LRU: generic, mutex guarded, size bounded, evicts the least recently
//     used entry. GetOrLoad coalesces concurrent misses for a key through
//     golang.org/x/sync/singleflight, so the loader runs once per key.
//   - Noop: a pass-through; every access is a miss and the loader runs on
//     every call.
//   - Redis: an external LoadingCache for string keys backed by go-redis,
//     encoding values with a Codec (JSON by default). Coalescing applies
//     within a process only.
//
// New selects an in-process backend from a Policy and capacity, which is how
// the dataset builds one cache per entity collection:
//
//	nodes, err := cache.New[int32, *dataset.Node](cache.PolicyLRU, 50_000)
//
// # Loaders
//
// Loaders must be idempotent. A successful loader result is stored and
// returned to every waiting caller; a loader error is returned to the callers
// of that flight and nothing is stored, so a later call retries.
package cache
