package binder

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// BindQuery fills the fields of v tagged `query:"name"` from the URL query.
//
// Supported field types are string, bool, the integer kinds, float64 and
// slices of those. Slice fields accept repeated parameters as well as
// comma-separated lists. Fields without a matching parameter keep their
// value, so defaults can be set before binding.
//
//	type detectRequest struct {
//		UserAgent  string   `query:"ua"`
//		Properties []string `query:"property"` // ?property=IsMobile,HardwareModel
//	}
func BindQuery() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return ErrInvalidTarget
		}
		rv = rv.Elem()
		rt := rv.Type()
		query := r.URL.Query()

		for i := range rt.NumField() {
			sf := rt.Field(i)
			name, ok := queryName(sf)
			if !ok || !sf.IsExported() {
				continue
			}
			values, present := query[name]
			if !present {
				continue
			}
			if err := setField(rv.Field(i), values); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidQuery, name, err)
			}
		}
		return nil
	}
}

func queryName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("query")
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" || name == "" {
		return "", false
	}
	return name, true
}

func setField(field reflect.Value, values []string) error {
	if field.Kind() == reflect.Slice {
		var parts []string
		for _, v := range values {
			for p := range strings.SplitSeq(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
		}
		out := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			if err := setScalar(out.Index(i), p); err != nil {
				return err
			}
		}
		field.Set(out)
		return nil
	}
	return setScalar(field, values[len(values)-1])
}

func setScalar(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
