package reconcile

import (
	"reflect"

	"seedgraph/core/graph"
)

// applyOrder returns the registered types so that a type holding a
// resolvable foreign key to another registered type comes after it.
// Cycles and ties keep registration order.
func applyOrder(r *graph.Registry) []reflect.Type {
	types := r.Types()
	registered := make(map[reflect.Type]bool, len(types))
	for _, t := range types {
		registered[t] = true
	}

	deps := make(map[reflect.Type]map[reflect.Type]bool, len(types))
	addDep := func(from, to reflect.Type) {
		if from == to || !registered[from] || !registered[to] {
			return
		}
		if deps[from] == nil {
			deps[from] = make(map[reflect.Type]bool)
		}
		deps[from][to] = true
	}

	for _, t := range types {
		info, ok := r.Info(t)
		if !ok {
			continue
		}
		for _, f := range info.FieldsOf(graph.KindReference) {
			if graph.ForeignKeyFor(info, f) != nil {
				addDep(t, reflect.PointerTo(f.Target))
			} else if graph.HasOneKeyFor(info, f) != nil {
				addDep(reflect.PointerTo(f.Target), t)
			}
		}
		for _, f := range info.FieldsOf(graph.KindCollection) {
			child, err := graph.Describe(f.Target)
			if err != nil {
				continue
			}
			back := graph.BackReference(child, info.Type, f)
			if graph.InverseForeignKeyFor(child, info, f, back) != nil {
				addDep(reflect.PointerTo(f.Target), t)
			}
		}
	}

	out := make([]reflect.Type, 0, len(types))
	placed := make(map[reflect.Type]bool, len(types))
	for len(out) < len(types) {
		next := -1
		for i, t := range types {
			if placed[t] {
				continue
			}
			if ready(deps[t], placed) {
				next = i
				break
			}
		}
		if next < 0 {
			// Cycle: fall back to the earliest unplaced type.
			for i, t := range types {
				if !placed[t] {
					next = i
					break
				}
			}
		}
		placed[types[next]] = true
		out = append(out, types[next])
	}
	return out
}

func ready(deps map[reflect.Type]bool, placed map[reflect.Type]bool) bool {
	for d := range deps {
		if !placed[d] {
			return false
		}
	}
	return true
}
