// Package ratelimiter provides token bucket rate limiting with in-memory
// and Redis storage, plus HTTP helpers.
//
// A bucket holds up to Capacity tokens and gains RefillRate tokens every
// RefillInterval. A request takes one or more tokens; when the bucket holds
// fewer than requested the request is refused and nothing is taken, so a
// refused client is not pushed further into debt.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       100,
//		RefillRate:     10,
//		RefillInterval: time.Second,
//	})
//
//	mux.Handle("/", ratelimiter.Middleware(limiter, clientip.Key, nil)(h))
//
// Use NewRedisStore when several instances must share one limit. Check
// takes a variable number of tokens, for endpoints whose cost depends on
// the request body.
package ratelimiter
