package graph

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/google/uuid"
)

// entityValue validates that entity is a non-nil pointer to a struct.
func entityValue(entity any) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, ErrNilArgument
	}
	v, ok := entity.(reflect.Value)
	if !ok {
		v = reflect.ValueOf(entity)
	}
	if !v.IsValid() {
		return reflect.Value{}, ErrNilArgument
	}
	if v.Kind() != reflect.Ptr {
		return reflect.Value{}, fmt.Errorf("%w: got %s", ErrUnsupportedEntity, v.Type())
	}
	if v.IsNil() {
		return reflect.Value{}, ErrNilArgument
	}
	if v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: got %s", ErrUnsupportedEntity, v.Type())
	}
	return v, nil
}

// fieldByIndex reads a possibly promoted field; false when the path crosses a
// nil embedded pointer.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	f, err := v.FieldByIndexErr(index)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}

// fieldForWrite resolves a field path, allocating nil embedded pointers.
func fieldForWrite(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// indirect dereferences pointers; ok is false for a nil pointer.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// assignValue writes a key value into dst, converting between integer widths,
// UUIDs and strings, and between plain and nullable forms. A nil source
// clears dst.
func assignValue(dst, src reflect.Value) error {
	if !dst.CanSet() {
		return errors.New("field is not settable")
	}
	src, ok := indirect(src)
	if !ok {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	target := dst.Type()
	base := target
	if target.Kind() == reflect.Ptr {
		base = target.Elem()
	}

	converted, err := convertKey(src, base)
	if err != nil {
		return err
	}
	if target.Kind() == reflect.Ptr {
		p := reflect.New(base)
		p.Elem().Set(converted)
		dst.Set(p)
		return nil
	}
	dst.Set(converted)
	return nil
}

func convertKey(src reflect.Value, to reflect.Type) (reflect.Value, error) {
	from := src.Type()
	if from.AssignableTo(to) {
		return src, nil
	}

	out := reflect.New(to).Elem()
	switch {
	case from == uuidType && to.Kind() == reflect.String:
		out.SetString(src.Interface().(uuid.UUID).String())
		return out, nil
	case to == uuidType && from.Kind() == reflect.String:
		u, err := uuid.Parse(src.String())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(u), nil
	case isSigned(from) && isSigned(to):
		n := src.Int()
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", n, to)
		}
		out.SetInt(n)
		return out, nil
	case isSigned(from) && isUnsigned(to):
		n := src.Int()
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("value %d does not fit %s", n, to)
		}
		out.SetUint(uint64(n))
		return out, nil
	case isUnsigned(from) && isUnsigned(to):
		u := src.Uint()
		if out.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", u, to)
		}
		out.SetUint(u)
		return out, nil
	case isUnsigned(from) && isSigned(to):
		u := src.Uint()
		if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", u, to)
		}
		out.SetInt(int64(u))
		return out, nil
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		out.SetString(src.String())
		return out, nil
	case from.Kind() == to.Kind() && from.ConvertibleTo(to):
		return src.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", from, to)
}

func isSigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// cloneValue copies a scalar so the clone shares no pointers or byte slices
// with the original.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		p := reflect.New(v.Type().Elem())
		p.Elem().Set(cloneValue(v.Elem()))
		return p
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(c, v)
		return c
	}
	return v
}

// KeyOf returns the primary-key value of entity with pointers dereferenced.
// A nil nullable key yields nil.
func KeyOf(entity any) (any, error) {
	v, err := entityValue(entity)
	if err != nil {
		return nil, err
	}
	info, err := Describe(v.Type())
	if err != nil {
		return nil, err
	}
	return keyOf(v, info)
}

func keyOf(v reflect.Value, info *TypeInfo) (any, error) {
	pk, err := info.RequirePrimaryKey()
	if err != nil {
		return nil, err
	}
	fv, ok := fieldByIndex(v.Elem(), pk.Index)
	if !ok {
		return nil, nil
	}
	fv, ok = indirect(fv)
	if !ok {
		return nil, nil
	}
	return fv.Interface(), nil
}

// SetKey overwrites the primary key of entity, converting key to the field type.
func SetKey(entity any, key any) error {
	v, err := entityValue(entity)
	if err != nil {
		return err
	}
	info, err := Describe(v.Type())
	if err != nil {
		return err
	}
	pk, err := info.RequirePrimaryKey()
	if err != nil {
		return err
	}
	dst, ok := fieldForWrite(v.Elem(), pk.Index)
	if !ok {
		return &FieldAssignmentError{Type: info.Name, Field: pk.Name, Err: errors.New("unreachable field")}
	}
	if err := assignValue(dst, reflect.ValueOf(key)); err != nil {
		return &FieldAssignmentError{Type: info.Name, Field: pk.Name, Err: err}
	}
	return nil
}
