package graph

import (
	"reflect"
)

// ConverterFunc renders a value as its persisted string form.
type ConverterFunc func(v any) string

// Converters maps value types to custom string serializers. A field whose type
// has a converter is treated as a scalar: it is extracted as the converter's
// output and never traversed as a relationship.
type Converters struct {
	funcs map[reflect.Type]ConverterFunc
}

// NewConverters returns an empty converter registry.
func NewConverters() *Converters {
	return &Converters{funcs: make(map[reflect.Type]ConverterFunc)}
}

// Register associates fn with values of type t. Registering the same type
// again replaces the previous converter.
func (c *Converters) Register(t reflect.Type, fn ConverterFunc) {
	if t == nil || fn == nil {
		return
	}
	c.funcs[t] = fn
}

// RegisterConverter is the typed form of Converters.Register.
func RegisterConverter[T any](c *Converters, fn func(T) string) {
	c.Register(reflect.TypeFor[T](), func(v any) string {
		return fn(v.(T))
	})
}

// Lookup returns the converter for t, also matching a pointer to a converted
// type (a nullable wrapper).
func (c *Converters) Lookup(t reflect.Type) (ConverterFunc, bool) {
	fn, _, ok := c.lookup(t)
	return fn, ok
}

// lookup also reports whether the match was on the pointer's element type.
func (c *Converters) lookup(t reflect.Type) (fn ConverterFunc, elem bool, ok bool) {
	if c == nil || t == nil {
		return nil, false, false
	}
	if fn, ok := c.funcs[t]; ok {
		return fn, false, true
	}
	if t.Kind() == reflect.Ptr {
		if fn, ok := c.funcs[t.Elem()]; ok {
			return fn, true, true
		}
	}
	return nil, false, false
}

// Has reports whether a converter exists for t.
func (c *Converters) Has(t reflect.Type) bool {
	_, ok := c.Lookup(t)
	return ok
}

// Len returns the number of registered converters.
func (c *Converters) Len() int {
	if c == nil {
		return 0
	}
	return len(c.funcs)
}
