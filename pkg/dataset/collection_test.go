package dataset_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicedetect/pkg/dataset"
	"github.com/dmitrymomot/devicedetect/pkg/dataset/datasettest"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// countingSource counts reads and can fail the next read with an error.
type countingSource struct {
	source.Source
	reads atomic.Int64
	fail  atomic.Pointer[error]
}

func (s *countingSource) Read(off int64, fn func(r *source.Reader) error) error {
	s.reads.Add(1)
	if errp := s.fail.Swap(nil); errp != nil {
		return *errp
	}
	return s.Source.Read(off, fn)
}

func openCounting(t *testing.T) (*dataset.Dataset, *countingSource) {
	t.Helper()
	src := &countingSource{Source: source.NewMemory(datasettest.Bytes(t, datasettest.Writer()))}
	ds, err := dataset.Open(src, dataset.WithLogger(logger.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds, src
}

func TestCollection_DecodeIsPure(t *testing.T) {
	ds := datasettest.Open(t)

	t.Run("nodes", func(t *testing.T) {
		offsets, err := ds.Nodes().Offsets()
		require.NoError(t, err)
		require.Len(t, offsets, ds.Nodes().Count())
		for _, off := range offsets {
			cached, err := ds.Nodes().Get(off)
			require.NoError(t, err)
			fresh, err := ds.Nodes().Load(off)
			require.NoError(t, err)
			assert.NotSame(t, cached, fresh)
			assert.Equal(t, cached, fresh)
		}
	})

	t.Run("signatures", func(t *testing.T) {
		offsets, err := ds.Signatures().Offsets()
		require.NoError(t, err)
		for _, off := range offsets {
			cached, err := ds.Signatures().Get(off)
			require.NoError(t, err)
			fresh, err := ds.Signatures().Load(off)
			require.NoError(t, err)
			assert.Equal(t, cached, fresh)
		}
	})

	t.Run("profiles after eviction", func(t *testing.T) {
		offsets, err := ds.Profiles().Offsets()
		require.NoError(t, err)
		before := make([]*dataset.Profile, 0, len(offsets))
		for _, off := range offsets {
			p, err := ds.Profiles().Get(off)
			require.NoError(t, err)
			before = append(before, p)
		}
		ds.ResetCache()
		for i, off := range offsets {
			p, err := ds.Profiles().Get(off)
			require.NoError(t, err)
			assert.Equal(t, before[i].ProfileID(), p.ProfileID())
			assert.Equal(t, before[i].ValueIndices(), p.ValueIndices())
			assert.Same(t, before[i].Component(), p.Component())
		}
	})

	t.Run("values", func(t *testing.T) {
		offsets, err := ds.Values().Offsets()
		require.NoError(t, err)
		assert.Len(t, offsets, ds.Values().Count())
		for _, i := range offsets {
			cached, err := ds.Values().Get(i)
			require.NoError(t, err)
			fresh, err := ds.Values().Load(i)
			require.NoError(t, err)
			assert.Equal(t, cached.Name(), fresh.Name())
			assert.Equal(t, i, fresh.Index())
		}
	})
}

func TestCollection_ConcurrentFirstAccess(t *testing.T) {
	ds, src := openCounting(t)

	offsets, err := ds.Signatures().Offsets()
	require.NoError(t, err)
	target := offsets[2]

	before := src.reads.Load()

	const n = 64
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]*dataset.Signature, n)
	)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			s, err := ds.Signatures().Get(target)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), src.reads.Load()-before)
	for _, s := range results {
		require.NotNil(t, s)
		assert.Equal(t, datasettest.RankIPhoneSafari, s.Rank())
		assert.Same(t, results[0], s)
	}
}

func TestCollection_ReadFailureIsNotCached(t *testing.T) {
	ds, src := openCounting(t)

	boom := errors.New("handle pool exhausted")
	src.fail.Store(&boom)

	_, err := ds.Signatures().Get(0)
	require.ErrorIs(t, err, dataset.ErrReadFailure)
	assert.ErrorIs(t, err, boom)

	s, err := ds.Signatures().Get(0)
	require.NoError(t, err)
	assert.Equal(t, datasettest.RankPixelChrome, s.Rank())
}

func TestCollection_ConcurrentFileReads(t *testing.T) {
	ds := datasettest.OpenFile(t, dataset.WithPoolSize(2))

	offsets, err := ds.Nodes().Offsets()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, off := range offsets {
				n, err := ds.Nodes().Load(off)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, off, n.Offset())
			}
		}()
	}
	wg.Wait()
}
