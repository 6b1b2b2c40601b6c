package dataset

import "errors"

var (
	ErrCorruptDataset     = errors.New("dataset: corrupt dataset")
	ErrUnsupportedVersion = errors.New("dataset: unsupported version")
	ErrReadFailure        = errors.New("dataset: read failure")
	ErrClosed             = errors.New("dataset: closed")
	ErrPropertyNotFound   = errors.New("dataset: property not found")
	ErrInvalidValue       = errors.New("dataset: value cannot be converted")
	ErrWriter             = errors.New("dataset: invalid writer input")
	ErrUnknownKind        = errors.New("dataset: unknown cached collection")
)
