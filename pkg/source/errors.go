package source

import "errors"

var (
	ErrClosed          = errors.New("source: closed")
	ErrReadFailure     = errors.New("source: read failure")
	ErrOutOfRange      = errors.New("source: offset out of range")
	ErrInvalidPoolSize = errors.New("source: pool size must be positive")
)
