// Package source provides random-access decoding over a compiled device
// dataset, either held in memory or read from a file on disk.
//
// A Source hands out a positioned Reader for the duration of a callback:
//
//	err := src.Read(offset, func(r *source.Reader) error {
//	    id := r.Byte()
//	    name := r.Int32()
//	    return r.Err()
//	})
//
// Memory sources slice the underlying buffer directly and need no
// coordination. File sources keep a bounded pool of independent file handles
// (cursors) so concurrent lookups never share a file position. Checking out a
// cursor blocks while the pool is exhausted and the cursor is always returned
// when the callback exits, including on error or panic.
//
// # Temporary Files
//
// A file source opened with WithTempFile removes the file on Close. Removal is
// best effort: a failure is logged at INFO and otherwise ignored.
//
// # Errors
//
// Reads past the end of the source fail with ErrOutOfRange, I/O failures are
// wrapped with ErrReadFailure and any call after Close fails with ErrClosed.
package source
