package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader decodes little-endian fixed-width values from a byte stream.
// The first error is sticky: every later call returns a zero value and Err
// reports the original failure.
type Reader struct {
	r   io.Reader
	pos int64
	buf [8]byte
	err error
}

// NewReader returns a Reader over r. pos is the absolute offset of the first
// byte r yields and is only used for error messages and Pos.
func NewReader(r io.Reader, pos int64) *Reader {
	return &Reader{r: r, pos: pos}
}

// Pos returns the absolute offset of the next byte to be read.
func (r *Reader) Pos() int64 { return r.pos }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) fill(n int) []byte {
	if r.err != nil {
		return nil
	}
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		r.fail(n, err)
		return nil
	}
	r.pos += int64(n)
	return r.buf[:n]
}

func (r *Reader) fail(n int, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		r.err = fmt.Errorf("%w: %d bytes at offset %d", ErrOutOfRange, n, r.pos)
		return
	}
	r.err = errors.Join(ErrReadFailure, err)
}

func (r *Reader) Byte() byte {
	b := r.fill(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.fill(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Int16() int16 { return int16(r.Uint16()) }

func (r *Reader) Uint32() uint32 {
	b := r.fill(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

// Int32s reads n consecutive int32 values.
func (r *Reader) Int32s(n int) []int32 {
	if n <= 0 || r.err != nil {
		return nil
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = r.Int32()
	}
	if r.err != nil {
		return nil
	}
	return out
}

// Bytes reads exactly n bytes into a new slice.
func (r *Reader) Bytes(n int) []byte {
	if n < 0 || r.err != nil {
		return nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r.r, out); err != nil {
		r.fail(n, err)
		return nil
	}
	r.pos += int64(n)
	return out
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) { r.CopyTo(io.Discard, int64(n)) }

// CopyTo writes the next n bytes to w without buffering them.
func (r *Reader) CopyTo(w io.Writer, n int64) {
	if n <= 0 || r.err != nil {
		return
	}
	m, err := io.CopyN(w, r.r, n)
	r.pos += m
	if err != nil {
		r.fail(int(n), err)
	}
}
