package dataset

import (
	"cmp"

	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Component groups the properties of one aspect of a device, for example
// hardware, platform or browser. Components are resident.
type Component struct {
	entity
	id             byte
	name           string
	defaultProfile int32
	headerMask     uint32
	properties     []*Property
}

// Index returns the position of the component in the dataset.
func (c *Component) Index() int32 { return c.key }

// ID returns the component identifier. Ordering by ID is total.
func (c *Component) ID() byte { return c.id }

func (c *Component) Name() string { return c.name }

func (c *Component) String() string { return c.name }

// Properties returns the properties belonging to the component.
func (c *Component) Properties() []*Property { return c.properties }

// DefaultProfile returns the profile used when no header identifies the
// component. It returns nil when the dataset defines none.
func (c *Component) DefaultProfile() (*Profile, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if c.defaultProfile < 0 {
		return nil, nil
	}
	return c.ds.profiles.Get(c.defaultProfile)
}

// DefaultProfileOffset returns the default profile offset, or -1.
func (c *Component) DefaultProfileOffset() int32 { return c.defaultProfile }

// Profiles returns every profile of the component. The profile section is
// scanned once per dataset.
func (c *Component) Profiles() ([]*Profile, error) {
	if c.ds.closed.Load() {
		return nil, ErrClosed
	}
	index, err := c.ds.profilesByComponent.get()
	if err != nil {
		return nil, err
	}
	offsets := index[c.id]
	out := make([]*Profile, 0, len(offsets))
	for _, off := range offsets {
		p, err := c.ds.profiles.Get(off)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// HTTPHeaders returns the dataset headers relevant to the component, in
// dataset order.
func (c *Component) HTTPHeaders() []string {
	var out []string
	for i, h := range c.ds.headers {
		if c.RelevantHeader(i) {
			out = append(out, h)
		}
	}
	return out
}

// RelevantHeader reports whether the dataset header at index i identifies
// this component.
func (c *Component) RelevantHeader(i int) bool {
	return i >= 0 && i < 32 && c.headerMask&(1<<uint(i)) != 0
}

// Compare orders components by ID.
func (c *Component) Compare(other *Component) int {
	return cmp.Compare(c.id, other.id)
}

func (ds *Dataset) loadComponent(index int32) (*Component, int32, error) {
	c := &Component{entity: entity{ds: ds, key: index}}
	var nameOffset int32
	err := ds.read(secComponents, index*componentRecordSize, func(r *source.Reader) error {
		c.id = r.Byte()
		nameOffset = r.Int32()
		c.defaultProfile = r.Int32()
		c.headerMask = r.Uint32()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return c, nameOffset, nil
}

// scanProfiles groups profile offsets by component ID.
func (ds *Dataset) scanProfiles() (map[byte][]int32, error) {
	s := ds.sections[secProfiles]
	out := make(map[byte][]int32)
	if s.Count == 0 {
		return out, nil
	}
	err := ds.read(secProfiles, 0, func(r *source.Reader) error {
		for range s.Count {
			off := int32(r.Pos() - int64(s.Start))
			component := r.Byte()
			r.Skip(4)
			n := r.Int32()
			if n < 0 {
				return ErrCorruptDataset
			}
			r.Skip(4 * int(n))
			out[component] = append(out[component], off)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
