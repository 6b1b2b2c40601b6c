package devicedetect

import "errors"

var (
	// ErrMissingDataFile is returned when no dataset path is configured.
	ErrMissingDataFile = errors.New("devicedetect: data file not configured")
	// ErrRedisNotReady is returned when the configured Redis server cannot be reached.
	ErrRedisNotReady = errors.New("devicedetect: redis result cache not ready")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchSize.
	ErrBatchTooLarge = errors.New("devicedetect: batch too large")
)
