package cache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
)

func TestLRU_Basic(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		c := cache.NewLRU[int32, string](3)

		c.Put(1, "a")
		c.Put(2, "b")
		c.Put(3, "c")

		val, ok := c.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "a", val)

		val, ok = c.Get(3)
		assert.True(t, ok)
		assert.Equal(t, "c", val)

		assert.Equal(t, 3, c.Len())
		assert.Equal(t, 3, c.Capacity())
	})

	t.Run("get non-existent", func(t *testing.T) {
		c := cache.NewLRU[int32, string](3)

		val, ok := c.Get(9)
		assert.False(t, ok)
		assert.Equal(t, "", val)
	})

	t.Run("update existing", func(t *testing.T) {
		c := cache.NewLRU[int32, string](3)

		c.Put(1, "a")
		c.Put(1, "b")

		val, ok := c.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "b", val)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		c := cache.NewLRU[int32, string](3)
		c.Put(1, "a")

		val, ok := c.Remove(1)
		assert.True(t, ok)
		assert.Equal(t, "a", val)

		_, ok = c.Remove(1)
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})
}

func TestLRU_Eviction(t *testing.T) {
	t.Run("evict least recently used", func(t *testing.T) {
		c := cache.NewLRU[string, int](3)

		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		c.Put("d", 4)

		_, ok := c.Get("a")
		assert.False(t, ok, "a should have been evicted")

		for _, k := range []string{"b", "c", "d"} {
			_, ok := c.Get(k)
			assert.True(t, ok, k)
		}
		assert.Equal(t, 3, c.Len())
	})

	t.Run("get updates recency", func(t *testing.T) {
		c := cache.NewLRU[string, int](3)

		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		c.Get("a")
		c.Put("d", 4)

		_, ok := c.Get("b")
		assert.False(t, ok, "b should have been evicted")

		val, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)
	})

	t.Run("callback on eviction and reset", func(t *testing.T) {
		c := cache.NewLRU[string, int](2)

		evicted := make(map[string]int)
		c.SetEvictCallback(func(key string, value int) {
			evicted[key] = value
		})

		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		assert.Equal(t, 1, evicted["a"])

		c.Reset()
		assert.Equal(t, 2, evicted["b"])
		assert.Equal(t, 3, evicted["c"])
		assert.Equal(t, 0, c.Len())
	})

	t.Run("panic on invalid capacity", func(t *testing.T) {
		assert.Panics(t, func() { cache.NewLRU[string, int](0) })
		assert.Panics(t, func() { cache.NewLRU[string, int](-1) })
	})
}

func TestLRU_Statistics(t *testing.T) {
	t.Run("counts requests and misses", func(t *testing.T) {
		c := cache.NewLRU[int32, int](10)

		c.Get(1)
		c.Put(1, 10)
		c.Get(1)
		c.Get(1)
		c.Get(2)

		assert.Equal(t, uint64(4), c.Requests())
		assert.Equal(t, uint64(2), c.Misses())
		assert.InDelta(t, 0.5, c.MissRatio(), 1e-9)
	})

	t.Run("miss ratio never decreases for distinct keys", func(t *testing.T) {
		c := cache.NewLRU[int32, int32](8)
		load := func(k int32) (int32, error) { return k * 2, nil }

		prev := 0.0
		for k := range int32(100) {
			_, err := c.GetOrLoad(k, load)
			require.NoError(t, err)
			ratio := c.MissRatio()
			assert.GreaterOrEqual(t, ratio, prev)
			prev = ratio
		}
		assert.Equal(t, 8, c.Len())
	})

	t.Run("reset clears entries and counters", func(t *testing.T) {
		c := cache.NewLRU[int32, int](10)
		c.Put(1, 1)
		c.Get(1)
		c.Get(2)

		c.Reset()

		assert.Equal(t, 0, c.Len())
		assert.Equal(t, uint64(0), c.Requests())
		assert.Equal(t, uint64(0), c.Misses())
		assert.Equal(t, 0.0, c.MissRatio())
	})
}

func TestLRU_GetOrLoad(t *testing.T) {
	t.Run("loads once then hits", func(t *testing.T) {
		c := cache.NewLRU[int32, string](4)
		calls := 0
		load := func(k int32) (string, error) {
			calls++
			return "v", nil
		}

		v, err := c.GetOrLoad(1, load)
		require.NoError(t, err)
		assert.Equal(t, "v", v)

		v, err = c.GetOrLoad(1, load)
		require.NoError(t, err)
		assert.Equal(t, "v", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := cache.NewLRU[int32, string](4)
		boom := errors.New("boom")

		_, err := c.GetOrLoad(1, func(int32) (string, error) { return "", boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.Len())

		v, err := c.GetOrLoad(1, func(int32) (string, error) { return "ok", nil })
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("nil loader", func(t *testing.T) {
		c := cache.NewLRU[int32, string](4)
		_, err := c.GetOrLoad(1, nil)
		assert.ErrorIs(t, err, cache.ErrNilLoader)
	})

	t.Run("concurrent misses coalesce", func(t *testing.T) {
		c := cache.NewLRU[int32, *int](4)
		var calls atomic.Int32
		release := make(chan struct{})
		load := func(k int32) (*int, error) {
			calls.Add(1)
			<-release
			v := int(k) * 10
			return &v, nil
		}

		const n = 32
		var wg sync.WaitGroup
		results := make([]*int, n)
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := c.GetOrLoad(7, load)
				assert.NoError(t, err)
				results[i] = v
			}(i)
		}

		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, r := range results {
			require.NotNil(t, r)
			assert.Equal(t, 70, *r)
			assert.Same(t, results[0], r)
		}
	})
}

func BenchmarkLRU_GetOrLoad(b *testing.B) {
	c := cache.NewLRU[int32, int32](1000)
	load := func(k int32) (int32, error) { return k, nil }

	b.ReportAllocs()
	b.ResetTimer()
	for i := range b.N {
		_, _ = c.GetOrLoad(int32(i%2000), load)
	}
}

func BenchmarkLRU_Get(b *testing.B) {
	c := cache.NewLRU[int32, int32](1000)
	for i := range int32(1000) {
		c.Put(i, i)
	}

	b.ResetTimer()
	for i := range b.N {
		c.Get(int32(i % 1000))
	}
}
