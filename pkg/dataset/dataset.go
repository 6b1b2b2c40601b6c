package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/dmitrymomot/devicedetect/pkg/cache"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Dataset is an opened device dataset. It owns its source, the resident
// collections and one cache per on-demand collection.
//
// A Dataset is safe for concurrent use. Close is irreversible; every later
// access fails with ErrClosed.
type Dataset struct {
	id           uuid.UUID
	src          source.Source
	log          *slog.Logger
	version      Version
	lastModified time.Time
	sections     [sectionCount]section
	headers      []string

	components     []*Component
	componentsByID map[byte]*Component
	properties     []*Property
	propertyNames  map[string]*Property
	valueOwners    []*Property
	rootNodes      []int32

	strings    *Collection[string]
	values     *Collection[*Value]
	profiles   *Collection[*Profile]
	signatures *Collection[*Signature]
	nodes      *Collection[*Node]

	profilesByComponent *lazy[map[byte][]int32]
	checksum            *lazy[uint64]

	closed atomic.Bool
}

// Open decodes the dataset header and the resident collections from src.
// On success the dataset owns src and closes it on Close; on failure src is
// left open.
func Open(src source.Source, opts ...Option) (*Dataset, error) {
	return open(src, newOptions(opts))
}

// OpenBytes opens a dataset held in memory.
func OpenBytes(data []byte, opts ...Option) (*Dataset, error) {
	src := source.NewMemory(data)
	ds, err := open(src, newOptions(opts))
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return ds, nil
}

// OpenFile opens the dataset file at path. By default the file is read
// through a pool of cursors; WithInMemory loads it whole. The file's
// modification time is used when WithLastModified is not given.
func OpenFile(path string, opts ...Option) (*Dataset, error) {
	o := newOptions(opts)
	if o.lastModified.IsZero() {
		if fi, err := os.Stat(path); err == nil {
			o.lastModified = fi.ModTime()
		}
	}

	var src source.Source
	if o.inMemory {
		m, err := source.LoadFile(path)
		if err != nil {
			return nil, mapSourceError(err)
		}
		if o.temp {
			if err := os.Remove(path); err != nil {
				o.log.Info("temporary dataset file not removed", logger.Path(path), logger.Error(err))
			}
		}
		src = m
	} else {
		f, err := source.OpenFile(path,
			source.WithTempFile(o.temp),
			source.WithPoolSize(o.poolSize),
			source.WithLogger(o.log),
		)
		if err != nil {
			if errors.Is(err, source.ErrInvalidPoolSize) {
				return nil, err
			}
			return nil, mapSourceError(err)
		}
		src = f
	}

	ds, err := open(src, o)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return ds, nil
}

func open(src source.Source, o *options) (*Dataset, error) {
	for kind := range o.caches {
		if !slices.Contains(CachedKinds, kind) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
	}

	h, err := readHeader(src)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	ds := &Dataset{
		id:           id,
		src:          src,
		log:          o.log.With(logger.Dataset(id.String())),
		version:      h.version,
		lastModified: o.lastModified,
		sections:     h.sections,
	}
	if err := ds.initCollections(o); err != nil {
		return nil, err
	}
	ds.profilesByComponent = newLazy(ds.scanProfiles)
	ds.checksum = newLazy(ds.hashContent)

	if err := ds.initHeaders(h.headers); err != nil {
		return nil, err
	}
	if err := ds.initComponents(); err != nil {
		return nil, err
	}
	if err := ds.initProperties(); err != nil {
		return nil, err
	}
	if err := ds.initRootNodes(); err != nil {
		return nil, err
	}

	ds.log.Info("dataset opened",
		slog.String("version", ds.version.String()),
		slog.Int("components", len(ds.components)),
		slog.Int("properties", len(ds.properties)),
		slog.Int("signatures", ds.signatures.Count()),
		slog.Int("nodes", ds.nodes.Count()),
	)
	return ds, nil
}

func (ds *Dataset) initCollections(o *options) error {
	strs, err := buildCache(o, KindStrings, o.stringCache)
	if err != nil {
		return err
	}
	values, err := buildCache(o, KindValues, o.valueCache)
	if err != nil {
		return err
	}
	profiles, err := buildCache(o, KindProfiles, o.profileCache)
	if err != nil {
		return err
	}
	signatures, err := buildCache(o, KindSignatures, o.signatureCache)
	if err != nil {
		return err
	}
	nodes, err := buildCache(o, KindNodes, o.nodeCache)
	if err != nil {
		return err
	}

	ds.strings = newCollection(ds, secStrings, strs, ds.loadString, skipString)
	ds.values = newCollection(ds, secValues, values, ds.loadValue, nil)
	ds.profiles = newCollection(ds, secProfiles, profiles, ds.loadProfile, skipProfile)
	ds.signatures = newCollection(ds, secSignatures, signatures, ds.loadSignature, skipSignature)
	ds.nodes = newCollection(ds, secNodes, nodes, ds.loadNode, skipNode)
	return nil
}

func (ds *Dataset) initHeaders(offsets []int32) error {
	ds.headers = make([]string, 0, len(offsets))
	for _, off := range offsets {
		name, err := ds.strings.Get(off)
		if err != nil {
			return err
		}
		ds.headers = append(ds.headers, name)
	}
	return nil
}

func (ds *Dataset) initComponents() error {
	n := ds.sections[secComponents].Count
	ds.components = make([]*Component, 0, n)
	ds.componentsByID = make(map[byte]*Component, n)
	for i := range n {
		c, nameOffset, err := ds.loadComponent(i)
		if err != nil {
			return err
		}
		if _, dup := ds.componentsByID[c.id]; dup {
			return fmt.Errorf("%w: duplicate component id %d", ErrCorruptDataset, c.id)
		}
		if c.name, err = ds.strings.Get(nameOffset); err != nil {
			return err
		}
		ds.components = append(ds.components, c)
		ds.componentsByID[c.id] = c
	}
	slices.SortFunc(ds.components, (*Component).Compare)
	return nil
}

func (ds *Dataset) initProperties() error {
	n := ds.sections[secProperties].Count
	ds.properties = make([]*Property, 0, n)
	ds.propertyNames = make(map[string]*Property, n)
	fold := cases.Fold()
	for i := range n {
		p, componentID, nameOffset, err := ds.loadProperty(i)
		if err != nil {
			return err
		}
		c, ok := ds.componentsByID[componentID]
		if !ok {
			return fmt.Errorf("%w: property %d references component %d", ErrCorruptDataset, i, componentID)
		}
		if p.name, err = ds.strings.Get(nameOffset); err != nil {
			return err
		}
		p.component = c
		c.properties = append(c.properties, p)
		ds.properties = append(ds.properties, p)
		ds.propertyNames[fold.String(p.name)] = p
		if p.lastValue >= p.firstValue {
			ds.valueOwners = append(ds.valueOwners, p)
		}
	}
	slices.SortFunc(ds.valueOwners, func(a, b *Property) int { return int(a.firstValue - b.firstValue) })
	return nil
}

func (ds *Dataset) initRootNodes() error {
	s := ds.sections[secRootNodes]
	if s.Count == 0 {
		return nil
	}
	return ds.read(secRootNodes, 0, func(r *source.Reader) error {
		ds.rootNodes = r.Int32s(int(s.Count))
		for i, off := range ds.rootNodes {
			if off < -1 || off >= ds.sections[secNodes].Length {
				return fmt.Errorf("%w: root node %d at offset %d", ErrCorruptDataset, i, off)
			}
		}
		return nil
	})
}

// propertyOfValue returns the property owning the value index, or nil.
func (ds *Dataset) propertyOfValue(index int32) *Property {
	i := sort.Search(len(ds.valueOwners), func(i int) bool {
		return ds.valueOwners[i].lastValue >= index
	})
	if i < len(ds.valueOwners) && ds.valueOwners[i].owns(index) {
		return ds.valueOwners[i]
	}
	return nil
}

// ID identifies this opened instance of the dataset. It changes on every
// open, so it can namespace data derived from offsets.
func (ds *Dataset) ID() uuid.UUID { return ds.id }

func (ds *Dataset) Version() Version { return ds.version }

// Checksum returns the xxhash of the whole blob. It is computed on the first
// call, which reads the entire source.
func (ds *Dataset) Checksum() (uint64, error) {
	if ds.closed.Load() {
		return 0, ErrClosed
	}
	return ds.checksum.get()
}

func (ds *Dataset) hashContent() (uint64, error) {
	h := xxhash.New()
	err := ds.src.Read(0, func(r *source.Reader) error {
		r.CopyTo(h, ds.src.Size())
		return r.Err()
	})
	if err != nil {
		return 0, mapSourceError(err)
	}
	return h.Sum64(), nil
}

func (ds *Dataset) LastModified() time.Time { return ds.lastModified }

// HTTPHeaders returns the header names the dataset can match, in the order
// their results take precedence.
func (ds *Dataset) HTTPHeaders() []string { return slices.Clone(ds.headers) }

// Logger returns the dataset logger.
func (ds *Dataset) Logger() *slog.Logger { return ds.log }

// Components returns the components ordered by ID.
func (ds *Dataset) Components() ([]*Component, error) {
	if ds.closed.Load() {
		return nil, ErrClosed
	}
	return ds.components, nil
}

// Properties returns the properties in index order.
func (ds *Dataset) Properties() ([]*Property, error) {
	if ds.closed.Load() {
		return nil, ErrClosed
	}
	return ds.properties, nil
}

// PropertyByName looks a property up by name, ignoring case.
func (ds *Dataset) PropertyByName(name string) (*Property, error) {
	if ds.closed.Load() {
		return nil, ErrClosed
	}
	if p, ok := ds.propertyNames[cases.Fold().String(name)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrPropertyNotFound, name)
}

func (ds *Dataset) Strings() *Collection[string] { return ds.strings }

func (ds *Dataset) Values() *Collection[*Value] { return ds.values }

func (ds *Dataset) Profiles() *Collection[*Profile] { return ds.profiles }

func (ds *Dataset) Signatures() *Collection[*Signature] { return ds.signatures }

func (ds *Dataset) Nodes() *Collection[*Node] { return ds.nodes }

// RootCount returns the number of character positions with a root slot.
func (ds *Dataset) RootCount() int { return len(ds.rootNodes) }

// RootNode returns the root node for a character position, or nil when no
// fragment starts there.
func (ds *Dataset) RootNode(pos int) (*Node, error) {
	if ds.closed.Load() {
		return nil, ErrClosed
	}
	if pos < 0 || pos >= len(ds.rootNodes) || ds.rootNodes[pos] < 0 {
		return nil, nil
	}
	return ds.nodes.Get(ds.rootNodes[pos])
}

// CacheStats returns the statistics of every on-demand collection cache.
func (ds *Dataset) CacheStats() map[Kind]cache.Statistics {
	return map[Kind]cache.Statistics{
		KindStrings:    ds.strings.Stats(),
		KindValues:     ds.values.Stats(),
		KindProfiles:   ds.profiles.Stats(),
		KindSignatures: ds.signatures.Stats(),
		KindNodes:      ds.nodes.Stats(),
	}
}

// ResetCache empties every collection cache and zeroes its statistics.
func (ds *Dataset) ResetCache() {
	for _, s := range ds.CacheStats() {
		s.Reset()
	}
}

// Closed reports whether Close has been called.
func (ds *Dataset) Closed() bool { return ds.closed.Load() }

// Close clears the caches and closes the source. It waits for reads in
// progress. Calling Close again is a no-op.
func (ds *Dataset) Close() error {
	if !ds.closed.CompareAndSwap(false, true) {
		return nil
	}

	stats := ds.CacheStats()
	attrs := make([]any, 0, len(stats))
	for _, kind := range slices.Sorted(maps.Keys(stats)) {
		attrs = append(attrs, slog.Float64(string(kind)+"_miss_ratio", stats[kind].MissRatio()))
	}
	ds.ResetCache()

	if err := ds.src.Close(); err != nil {
		ds.log.Error("dataset source close failed", logger.Error(err))
		return mapSourceError(err)
	}
	ds.log.Info("dataset closed", attrs...)
	return nil
}
