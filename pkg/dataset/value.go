package dataset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrymomot/devicedetect/pkg/source"
)

// Value is one value a property can take.
type Value struct {
	entity
	property *Property
	name     string
}

// Index returns the position of the value in the dataset.
func (v *Value) Index() int32 { return v.key }

func (v *Value) Name() string { return v.name }

func (v *Value) String() string { return v.name }

func (v *Value) Property() *Property { return v.property }

func (v *Value) Bool() (bool, error) {
	b, err := strconv.ParseBool(v.name)
	if err != nil {
		return false, errors.Join(ErrInvalidValue, err)
	}
	return b, nil
}

func (v *Value) Int() (int, error) {
	n, err := strconv.Atoi(v.name)
	if err != nil {
		return 0, errors.Join(ErrInvalidValue, err)
	}
	return n, nil
}

func (v *Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(v.name, 64)
	if err != nil {
		return 0, errors.Join(ErrInvalidValue, err)
	}
	return f, nil
}

func (ds *Dataset) loadValue(index int32) (*Value, error) {
	var (
		property   int16
		nameOffset int32
	)
	err := ds.read(secValues, index*valueRecordSize, func(r *source.Reader) error {
		property = r.Int16()
		nameOffset = r.Int32()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if property < 0 || int(property) >= len(ds.properties) || !ds.properties[property].owns(index) {
		return nil, fmt.Errorf("%w: value %d references property %d", ErrCorruptDataset, index, property)
	}

	name, err := ds.strings.Get(nameOffset)
	if err != nil {
		return nil, err
	}
	return &Value{
		entity:   entity{ds: ds, key: index},
		property: ds.properties[property],
		name:     name,
	}, nil
}
