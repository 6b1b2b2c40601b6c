package dataset

import (
	"fmt"
	"slices"

	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Profile is the set of values one component takes for a device.
type Profile struct {
	entity
	component *Component
	profileID int32
	values    []int32
}

// Offset returns the profile offset within its section.
func (p *Profile) Offset() int32 { return p.key }

func (p *Profile) ProfileID() int32 { return p.profileID }

func (p *Profile) Component() *Component { return p.component }

// ValueIndices returns the value indices of the profile in ascending order.
func (p *Profile) ValueIndices() []int32 { return slices.Clone(p.values) }

// Values returns every value of the profile.
func (p *Profile) Values() ([]*Value, error) {
	return p.resolve(p.values)
}

// ValuesFor returns the profile's values of property. Values of a property
// are contiguous, so the lookup is a range search.
func (p *Profile) ValuesFor(property *Property) ([]*Value, error) {
	lo, _ := slices.BinarySearch(p.values, property.firstValue)
	hi, _ := slices.BinarySearch(p.values, property.lastValue+1)
	return p.resolve(p.values[lo:hi])
}

func (p *Profile) resolve(indices []int32) ([]*Value, error) {
	out := make([]*Value, 0, len(indices))
	for _, i := range indices {
		v, err := p.ds.values.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (ds *Dataset) loadProfile(off int32) (*Profile, error) {
	p := &Profile{entity: entity{ds: ds, key: off}}
	var componentID byte
	err := ds.read(secProfiles, off, func(r *source.Reader) error {
		componentID = r.Byte()
		p.profileID = r.Int32()
		n := r.Int32()
		if n < 0 || int64(n)*4 > int64(ds.sections[secProfiles].Length) {
			return fmt.Errorf("%w: profile at %d has %d values", ErrCorruptDataset, off, n)
		}
		p.values = r.Int32s(int(n))
		return nil
	})
	if err != nil {
		return nil, err
	}

	c, ok := ds.componentsByID[componentID]
	if !ok {
		return nil, fmt.Errorf("%w: profile at %d references component %d", ErrCorruptDataset, off, componentID)
	}
	p.component = c
	for i, v := range p.values {
		prop := ds.propertyOfValue(v)
		if prop == nil || prop.component != c || (i > 0 && v <= p.values[i-1]) {
			return nil, fmt.Errorf("%w: profile at %d holds invalid value %d", ErrCorruptDataset, off, v)
		}
	}
	return p, nil
}
