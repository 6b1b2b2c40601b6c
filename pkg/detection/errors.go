package detection

import "errors"

var (
	ErrUnknownMethod = errors.New("detection: unknown method")
	ErrNilMatch      = errors.New("detection: nil match")
	ErrNilDataset    = errors.New("detection: nil dataset")
)
