package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/jackc/puddle/v2"

	"github.com/dmitrymomot/devicedetect/pkg/logger"
)

// DefaultPoolSize is the number of cursors a File keeps when no pool size is
// configured.
const DefaultPoolSize = 4

const cursorBufferSize = 1024

// cursor is one independent handle on the dataset file.
type cursor struct {
	f  *os.File
	br *bufio.Reader
}

// File is a Source reading from a file through a bounded pool of cursors.
type File struct {
	path     string
	size     int64
	temp     bool
	poolSize int
	log      *slog.Logger
	pool     *puddle.Pool[*cursor]
	closed   atomic.Bool
}

// FileOption configures a File.
type FileOption func(*File)

// WithTempFile marks the file as temporary; it is removed on Close.
func WithTempFile(temp bool) FileOption {
	return func(f *File) { f.temp = temp }
}

// WithPoolSize sets the maximum number of concurrently open cursors.
func WithPoolSize(n int) FileOption {
	return func(f *File) { f.poolSize = n }
}

// WithLogger sets the logger used for non-fatal cleanup failures.
// Nil loggers are ignored.
func WithLogger(l *slog.Logger) FileOption {
	return func(f *File) {
		if l != nil {
			f.log = l
		}
	}
}

// OpenFile opens path for pooled random-access reads.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	s := &File{
		path:     path,
		poolSize: DefaultPoolSize,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.poolSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPoolSize, s.poolSize)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Join(ErrReadFailure, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrReadFailure, path)
	}
	s.size = fi.Size()

	pool, err := puddle.NewPool(&puddle.Config[*cursor]{
		Constructor: func(context.Context) (*cursor, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			return &cursor{f: f, br: bufio.NewReaderSize(f, cursorBufferSize)}, nil
		},
		Destructor: func(c *cursor) {
			_ = c.f.Close()
		},
		MaxSize: int32(s.poolSize),
	})
	if err != nil {
		return nil, errors.Join(ErrReadFailure, err)
	}
	s.pool = pool

	return s, nil
}

// Path returns the file the source reads from.
func (s *File) Path() string { return s.path }

func (s *File) Size() int64 { return s.size }

// Read checks out a cursor, seeks it to off and runs fn. It blocks while all
// cursors are in use. A cursor whose seek failed is destroyed instead of being
// returned to the pool.
func (s *File) Read(off int64, fn func(r *Reader) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if off < 0 || off > s.size {
		return fmt.Errorf("%w: offset %d, size %d", ErrOutOfRange, off, s.size)
	}

	res, err := s.pool.Acquire(context.Background())
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return ErrClosed
		}
		return errors.Join(ErrReadFailure, err)
	}

	healthy := true
	defer func() {
		if healthy {
			res.Release()
		} else {
			res.Destroy()
		}
	}()

	c := res.Value()
	if _, err := c.f.Seek(off, io.SeekStart); err != nil {
		healthy = false
		return errors.Join(ErrReadFailure, err)
	}
	c.br.Reset(c.f)

	return fn(NewReader(c.br, off))
}

// InUse reports how many cursors are currently checked out.
func (s *File) InUse() int {
	return int(s.pool.Stat().AcquiredResources())
}

// Close waits for checked-out cursors, closes every handle and removes the
// file if it is temporary. Subsequent calls are no-ops.
func (s *File) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.pool.Close()

	if s.temp {
		if err := os.Remove(s.path); err != nil {
			// Not critical, the file may still be open elsewhere.
			s.log.Info("temporary dataset file not removed",
				logger.Path(s.path),
				logger.Error(err),
			)
		}
	}
	return nil
}
