package ratelimiter

import (
	"context"
	"time"
)

// Store defines the interface for rate limit storage backends.
type Store interface {
	// ConsumeTokens refills the bucket of key and takes tokens from it when
	// enough are available. A denied call leaves the bucket untouched and
	// reports remaining as the (negative) shortfall; resetAt is then the
	// time the request would fit.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}

// refill applies the token bucket arithmetic shared by the stores and
// returns the new token count, refill time and result.
func refill(tokens int, lastRefill, now time.Time, n int, config Config) (int, time.Time, int, time.Time) {
	// cap intervals to keep the multiplication in range
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervals := int(min(int64(now.Sub(lastRefill)/config.RefillInterval), maxIntervals))
	if intervals > 0 {
		tokens = min(tokens+intervals*config.RefillRate, config.Capacity)
		lastRefill = now
	}

	if tokens >= n {
		tokens -= n
		return tokens, lastRefill, tokens, lastRefill.Add(config.RefillInterval)
	}
	short := n - tokens
	wait := (short + config.RefillRate - 1) / config.RefillRate
	return tokens, lastRefill, -short, lastRefill.Add(time.Duration(wait) * config.RefillInterval)
}
