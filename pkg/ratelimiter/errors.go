package ratelimiter

import "errors"

var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTokenCount indicates that the requested token count is
	// not positive or exceeds the bucket capacity.
	ErrInvalidTokenCount = errors.New("invalid token count")

	// ErrLimitExceeded is returned by Middleware and Check when a key has
	// run out of tokens.
	ErrLimitExceeded = errors.New("rate limit exceeded")

	// ErrStoreUnavailable indicates that the store backend is unavailable.
	ErrStoreUnavailable = errors.New("store unavailable")
)
