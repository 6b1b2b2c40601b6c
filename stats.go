package devicedetect

import (
	"time"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
	"github.com/dmitrymomot/devicedetect/pkg/detection"
)

// CacheStats is a snapshot of one cache's counters.
type CacheStats struct {
	Entries   int     `json:"entries"`
	Requests  uint64  `json:"requests"`
	Misses    uint64  `json:"misses"`
	MissRatio float64 `json:"miss_ratio"`
}

func snapshot(s cache.Statistics) CacheStats {
	return CacheStats{
		Entries:   s.Len(),
		Requests:  s.Requests(),
		Misses:    s.Misses(),
		MissRatio: s.MissRatio(),
	}
}

// Stats describes the open dataset and the effectiveness of its caches.
type Stats struct {
	Dataset      string                `json:"dataset"`
	Version      string                `json:"version"`
	LastModified time.Time             `json:"last_modified"`
	Methods      []detection.Method    `json:"methods"`
	Collections  map[string]CacheStats `json:"collections"`
	Results      CacheStats            `json:"results"`
	SharedCache  bool                  `json:"shared_cache"`
}

// Stats returns a snapshot of the dataset caches and the result cache.
func (d *Detector) Stats() Stats {
	collections := d.ds.CacheStats()
	st := Stats{
		Dataset:      d.ds.ID().String(),
		Version:      d.ds.Version().String(),
		LastModified: d.ds.LastModified(),
		Methods:      d.provider.EnabledMethods(),
		Collections:  make(map[string]CacheStats, len(collections)),
		Results:      snapshot(d.results),
		SharedCache:  d.redis != nil,
	}
	for kind, s := range collections {
		st.Collections[string(kind)] = snapshot(s)
	}
	return st
}
