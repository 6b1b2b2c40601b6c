package dataset

import "sync"

// lazy computes a value once. A failed computation is not remembered, so the
// next call retries it.
type lazy[T any] struct {
	mu   sync.Mutex
	done bool
	v    T
	fn   func() (T, error)
}

func newLazy[T any](fn func() (T, error)) *lazy[T] {
	return &lazy[T]{fn: fn}
}

func (l *lazy[T]) get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.v, nil
	}
	v, err := l.fn()
	if err != nil {
		var zero T
		return zero, err
	}
	l.v, l.done = v, true
	return v, nil
}
