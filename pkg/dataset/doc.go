// Package dataset opens device datasets and exposes their entities.
//
// A dataset blob holds strings, components, properties, values, profiles,
// signatures and the node tree used for matching. Entities refer to each
// other by index or offset and are resolved on demand through the dataset,
// never through pointers held across a cache boundary.
//
// Components and properties are resident: they are decoded once by Open and
// kept for the dataset's lifetime. Strings, values, profiles, signatures and
// nodes are decoded on first access through one cache per collection, each
// selected and sized independently with WithCache or replaced with one of the
// typed cache options:
//
//	ds, err := dataset.OpenFile("devices.dat",
//		dataset.WithCache(dataset.KindNodes, cache.PolicyLRU, 100_000),
//		dataset.WithCache(dataset.KindValues, cache.PolicyNoop, 0),
//		dataset.WithPoolSize(8),
//	)
//
// Decoding is a pure function of the key and the bytes, so an evicted entity
// is rebuilt identically. Structural problems surface as ErrCorruptDataset,
// I/O problems as ErrReadFailure, and every access after Close as ErrClosed.
//
// Writer produces blobs in the same format; it is what tests and tooling use
// to build datasets.
package dataset
