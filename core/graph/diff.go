package graph

import (
	"bytes"
	"fmt"
	"reflect"
	"time"
)

// Diff compares the scalar fields of two entities of the same type and
// returns one description per differing field, e.g.
// "Name: incoming=Fiction stored=Drama". An empty result means the payloads
// are identical.
func Diff(incoming, stored any, conv *Converters) ([]string, error) {
	a, err := ExtractRecord(incoming, conv)
	if err != nil {
		return nil, err
	}
	b, err := ExtractRecord(stored, conv)
	if err != nil {
		return nil, err
	}
	if a.Type != b.Type {
		return nil, fmt.Errorf("%w: cannot compare %s with %s", ErrUnsupportedEntity, a.Type, b.Type)
	}
	return DiffRecords(a, b), nil
}

// DiffRecords compares two records field by field.
func DiffRecords(incoming, stored Record) []string {
	var out []string
	seen := make(map[string]struct{}, len(incoming.Fields))
	for _, f := range incoming.Fields {
		seen[f.Name] = struct{}{}
		other, ok := stored.Get(f.Name)
		if !ok || !valuesEqual(f.Value, other) {
			out = append(out, describe(f.Name, f.Value, other, ok))
		}
	}
	for _, f := range stored.Fields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		out = append(out, fmt.Sprintf("%s: incoming=<nil> stored=%v", f.Name, f.Value))
	}
	return out
}

func describe(name string, incoming, stored any, present bool) string {
	if !present {
		return fmt.Sprintf("%s: incoming=%v stored=<nil>", name, incoming)
	}
	return fmt.Sprintf("%s: incoming=%v stored=%v", name, incoming, stored)
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	}
	return reflect.DeepEqual(a, b)
}
