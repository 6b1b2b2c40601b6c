package source

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"
)

// Memory is a Source backed by a byte slice. Reads are plain slices of the
// buffer and need no pooling.
type Memory struct {
	data   []byte
	closed atomic.Bool
}

// NewMemory wraps data. The slice must not be modified afterwards.
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

// LoadFile reads the whole file at path into memory.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return NewMemory(data), nil
}

func (m *Memory) Size() int64 { return int64(len(m.data)) }

func (m *Memory) Read(off int64, fn func(r *Reader) error) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if off < 0 || off > int64(len(m.data)) {
		return fmt.Errorf("%w: offset %d, size %d", ErrOutOfRange, off, len(m.data))
	}
	return fn(NewReader(bytes.NewReader(m.data[off:]), off))
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}
