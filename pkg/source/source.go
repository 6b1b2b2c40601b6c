package source

// Source is a read-only, random-access dataset blob shared by all goroutines.
type Source interface {
	// Size returns the length of the blob in bytes.
	Size() int64
	// Read positions a Reader at off and passes it to fn. The Reader is only
	// valid until fn returns. Whatever fn returns is returned by Read.
	Read(off int64, fn func(r *Reader) error) error
	// Close releases the source. Calling Close more than once is a no-op.
	Close() error
}
