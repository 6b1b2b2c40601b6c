package dataset

import (
	"fmt"

	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// ValueType is the declared type of a property's values.
type ValueType byte

const (
	ValueTypeString ValueType = iota
	ValueTypeBool
	ValueTypeInt
	ValueTypeFloat
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeString:
		return "string"
	case ValueTypeBool:
		return "bool"
	case ValueTypeInt:
		return "int"
	case ValueTypeFloat:
		return "float"
	default:
		return fmt.Sprintf("ValueType(%d)", byte(t))
	}
}

// Property is a named attribute of a component. Properties are resident.
type Property struct {
	entity
	component    *Component
	name         string
	valueType    ValueType
	isList       bool
	firstValue   int32
	lastValue    int32
	defaultValue int32
}

// Index returns the position of the property in the dataset.
func (p *Property) Index() int32 { return p.key }

func (p *Property) Name() string { return p.name }

func (p *Property) String() string { return p.name }

func (p *Property) ValueType() ValueType { return p.valueType }

// IsList reports whether a profile may hold several values of the property.
func (p *Property) IsList() bool { return p.isList }

func (p *Property) Component() *Component { return p.component }

// ValueRange returns the first and last value indices of the property. The
// range is empty when last < first.
func (p *Property) ValueRange() (first, last int32) { return p.firstValue, p.lastValue }

func (p *Property) owns(valueIndex int32) bool {
	return valueIndex >= p.firstValue && valueIndex <= p.lastValue
}

// Values returns every value the property can take.
func (p *Property) Values() ([]*Value, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if p.lastValue < p.firstValue {
		return nil, nil
	}
	out := make([]*Value, 0, p.lastValue-p.firstValue+1)
	for i := p.firstValue; i <= p.lastValue; i++ {
		v, err := p.ds.values.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DefaultValue returns the value used when a profile has none for the
// property, or nil.
func (p *Property) DefaultValue() (*Value, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if p.defaultValue < 0 {
		return nil, nil
	}
	return p.ds.values.Get(p.defaultValue)
}

func (ds *Dataset) loadProperty(index int32) (*Property, byte, int32, error) {
	p := &Property{entity: entity{ds: ds, key: index}}
	var (
		componentID byte
		nameOffset  int32
	)
	err := ds.read(secProperties, index*propertyRecordSize, func(r *source.Reader) error {
		componentID = r.Byte()
		nameOffset = r.Int32()
		p.valueType = ValueType(r.Byte())
		p.isList = r.Byte() != 0
		p.firstValue = r.Int32()
		p.lastValue = r.Int32()
		p.defaultValue = r.Int32()
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	values := ds.sections[secValues].Count
	switch {
	case p.valueType > ValueTypeFloat:
		return nil, 0, 0, fmt.Errorf("%w: property %d has value type %d", ErrCorruptDataset, index, p.valueType)
	case p.firstValue < 0 || p.lastValue >= values || p.lastValue < p.firstValue-1:
		return nil, 0, 0, fmt.Errorf("%w: property %d value range [%d,%d]", ErrCorruptDataset, index, p.firstValue, p.lastValue)
	case p.defaultValue >= 0 && !p.owns(p.defaultValue):
		return nil, 0, 0, fmt.Errorf("%w: property %d default value %d", ErrCorruptDataset, index, p.defaultValue)
	}
	return p, componentID, nameOffset, nil
}
