package dataset

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Collection is an on-demand entity collection. Entities are decoded from the
// source on a cache miss; decoding is a pure function of the key and the
// underlying bytes, so an evicted entity is rebuilt identically.
//
// Fixed-size collections (Values) are keyed by index, the others by byte
// offset relative to the start of their section.
type Collection[T any] struct {
	kind       Kind
	ds         *Dataset
	sec        sectionID
	recordSize int64
	cache      cache.LoadingCache[int32, T]
	load       cache.Loader[int32, T]
	skip       func(r *source.Reader)
	offsets    *lazy[[]int32]
}

func newCollection[T any](ds *Dataset, sec sectionID, c cache.LoadingCache[int32, T], load cache.Loader[int32, T], skip func(*source.Reader)) *Collection[T] {
	col := &Collection[T]{
		kind:       sectionKinds[sec],
		ds:         ds,
		sec:        sec,
		recordSize: recordSizes[sec],
		cache:      c,
		load:       load,
		skip:       skip,
	}
	col.offsets = newLazy(col.scan)
	return col
}

// Kind returns the collection name.
func (c *Collection[T]) Kind() Kind { return c.kind }

// Count returns the number of entities in the collection.
func (c *Collection[T]) Count() int { return int(c.ds.sections[c.sec].Count) }

// Stats returns the statistics of the collection cache.
func (c *Collection[T]) Stats() cache.Statistics { return c.cache }

// Get returns the entity at key, decoding it through the cache on a miss.
func (c *Collection[T]) Get(key int32) (T, error) {
	var zero T
	if c.ds.closed.Load() {
		return zero, ErrClosed
	}
	if err := c.check(key); err != nil {
		return zero, err
	}
	return c.cache.GetOrLoad(key, c.load)
}

// Load decodes the entity at key without consulting or populating the cache.
func (c *Collection[T]) Load(key int32) (T, error) {
	var zero T
	if c.ds.closed.Load() {
		return zero, ErrClosed
	}
	if err := c.check(key); err != nil {
		return zero, err
	}
	return c.load(key)
}

// Offsets returns every valid key of the collection in ascending order.
// Variable-length collections are scanned once and the result is kept.
func (c *Collection[T]) Offsets() ([]int32, error) {
	if c.ds.closed.Load() {
		return nil, ErrClosed
	}
	return c.offsets.get()
}

func (c *Collection[T]) check(key int32) error {
	s := c.ds.sections[c.sec]
	if c.recordSize > 0 {
		if key < 0 || key >= s.Count {
			return fmt.Errorf("%w: %s index %d not in [0,%d)", ErrCorruptDataset, c.kind, key, s.Count)
		}
		return nil
	}
	if key < 0 || key >= s.Length {
		return fmt.Errorf("%w: %s offset %d not in [0,%d)", ErrCorruptDataset, c.kind, key, s.Length)
	}
	return nil
}

func (c *Collection[T]) scan() ([]int32, error) {
	s := c.ds.sections[c.sec]
	if s.Count == 0 {
		return []int32{}, nil
	}
	out := make([]int32, 0, s.Count)
	if c.recordSize > 0 {
		for i := range s.Count {
			out = append(out, i)
		}
		return out, nil
	}
	err := c.ds.read(c.sec, 0, func(r *source.Reader) error {
		start := int64(s.Start)
		for range s.Count {
			out = append(out, int32(r.Pos()-start))
			c.skip(r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// read positions a reader at off within sec and runs fn. The record fn decodes
// must lie inside the section.
func (ds *Dataset) read(sec sectionID, off int32, fn func(r *source.Reader) error) error {
	if ds.closed.Load() {
		return ErrClosed
	}
	s := ds.sections[sec]
	if off < 0 || off >= s.Length {
		return fmt.Errorf("%w: %s offset %d not in [0,%d)", ErrCorruptDataset, sec, off, s.Length)
	}
	err := ds.src.Read(int64(s.Start)+int64(off), func(r *source.Reader) error {
		if err := fn(r); err != nil {
			return err
		}
		if err := r.Err(); err != nil {
			return err
		}
		if r.Pos() > s.end() {
			return fmt.Errorf("%w: %s record at %d overruns its section", ErrCorruptDataset, sec, off)
		}
		return nil
	})
	return mapSourceError(err)
}

// mapSourceError translates source failures into the dataset error taxonomy.
func mapSourceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCorruptDataset), errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrClosed), errors.Is(err, ErrReadFailure):
		return err
	case errors.Is(err, source.ErrClosed):
		return ErrClosed
	case errors.Is(err, source.ErrOutOfRange):
		return errors.Join(ErrCorruptDataset, err)
	default:
		return errors.Join(ErrReadFailure, err)
	}
}
