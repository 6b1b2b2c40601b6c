package cache

import "errors"

var (
	ErrNilLoader       = errors.New("cache: nil loader")
	ErrInvalidCapacity = errors.New("cache: capacity must be positive")
	ErrUnknownPolicy   = errors.New("cache: unknown policy")
)
