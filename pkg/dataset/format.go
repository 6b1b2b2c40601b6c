package dataset

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Magic opens every dataset blob.
const Magic = "DDPT"

// Version is the dataset format version.
type Version struct {
	Major uint16
	Minor uint16
}

// CurrentVersion is written by Writer when no version is set.
var CurrentVersion = Version{Major: 3, Minor: 2}

var supportedVersions = []Version{{3, 1}, {3, 2}}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Supported reports whether v can be opened.
func (v Version) Supported() bool { return slices.Contains(supportedVersions, v) }

// Kind names an entity collection. It is also the key of the per-collection
// cache configuration and statistics.
type Kind string

const (
	KindStrings    Kind = "strings"
	KindComponents Kind = "components"
	KindProperties Kind = "properties"
	KindValues     Kind = "values"
	KindProfiles   Kind = "profiles"
	KindSignatures Kind = "signatures"
	KindNodes      Kind = "nodes"
	KindRootNodes  Kind = "root_nodes"
)

// CachedKinds lists the collections decoded on demand through a cache.
var CachedKinds = []Kind{KindStrings, KindValues, KindProfiles, KindSignatures, KindNodes}

type sectionID int

const (
	secStrings sectionID = iota
	secComponents
	secProperties
	secValues
	secProfiles
	secSignatures
	secNodes
	secRootNodes
	sectionCount
)

var sectionKinds = [sectionCount]Kind{
	KindStrings, KindComponents, KindProperties, KindValues,
	KindProfiles, KindSignatures, KindNodes, KindRootNodes,
}

func (s sectionID) String() string { return string(sectionKinds[s]) }

// Record sizes. Zero means variable length; minRecordSizes then bounds the
// count a section of a given length can hold.
const (
	componentRecordSize = 13
	propertyRecordSize  = 19
	valueRecordSize     = 6
	rootRecordSize      = 4
	profileHeaderSize   = 9
	signatureHeaderSize = 6
	nodeHeaderSize      = 16
	stringHeaderSize    = 2
)

var recordSizes = [sectionCount]int64{
	secComponents: componentRecordSize,
	secProperties: propertyRecordSize,
	secValues:     valueRecordSize,
	secRootNodes:  rootRecordSize,
}

var minRecordSizes = [sectionCount]int64{
	secStrings:    stringHeaderSize,
	secProfiles:   profileHeaderSize,
	secSignatures: signatureHeaderSize,
	secNodes:      nodeHeaderSize,
}

type section struct {
	Start  int32
	Length int32
	Count  int32
}

func (s section) end() int64 { return int64(s.Start) + int64(s.Length) }

type header struct {
	version  Version
	headers  []int32
	sections [sectionCount]section
	size     int64
}

func headerSize(headers int) int64 {
	return int64(len(Magic)) + 2 + 2 + 1 + 4*int64(headers) + 12*int64(sectionCount)
}

// readHeader decodes and validates the fixed header at the start of src.
func readHeader(src source.Source) (header, error) {
	var h header
	err := src.Read(0, func(r *source.Reader) error {
		magic := r.Bytes(len(Magic))
		if r.Err() == nil && string(magic) != Magic {
			return fmt.Errorf("%w: bad magic %q", ErrCorruptDataset, magic)
		}
		h.version.Major = r.Uint16()
		h.version.Minor = r.Uint16()
		if r.Err() == nil && !h.version.Supported() {
			return fmt.Errorf("%w: %s", ErrUnsupportedVersion, h.version)
		}
		h.headers = r.Int32s(int(r.Byte()))
		for i := range h.sections {
			h.sections[i] = section{Start: r.Int32(), Length: r.Int32(), Count: r.Int32()}
		}
		h.size = r.Pos()
		return r.Err()
	})
	if err != nil {
		return header{}, mapSourceError(err)
	}
	if err := h.validate(src.Size()); err != nil {
		return header{}, err
	}
	return h, nil
}

func (h *header) validate(size int64) error {
	for i, s := range h.sections {
		id := sectionID(i)
		if s.Length < 0 || s.Count < 0 || int64(s.Start) < h.size || s.end() > size {
			return fmt.Errorf("%w: %s section [%d,+%d) outside blob of %d bytes",
				ErrCorruptDataset, id, s.Start, s.Length, size)
		}
		if rs := recordSizes[id]; rs > 0 && int64(s.Count)*rs != int64(s.Length) {
			return fmt.Errorf("%w: %s section holds %d bytes for %d records",
				ErrCorruptDataset, id, s.Length, s.Count)
		}
		if ms := minRecordSizes[id]; ms > 0 && int64(s.Count)*ms > int64(s.Length) {
			return fmt.Errorf("%w: %s section too short for %d records",
				ErrCorruptDataset, id, s.Count)
		}
	}

	sorted := h.sections
	slices.SortFunc(sorted[:], func(a, b section) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Length, b.Length)
	})
	for i := 1; i < len(sorted); i++ {
		if int64(sorted[i].Start) < sorted[i-1].end() {
			return fmt.Errorf("%w: overlapping sections", ErrCorruptDataset)
		}
	}
	return nil
}
