package graph

import (
	"reflect"
	"strings"
)

const keySuffix = "Id"

// ForeignKeyFor locates the field on owner that stores the key of the entity
// referenced by nav. Resolution order: annotation on nav, a field annotated as
// belonging to nav, <nav>Id, <TargetType>Id. The owner's own primary key is
// never returned. Returns nil when nothing matches or when the annotation
// names a field on the target instead (see HasOneKeyFor).
func ForeignKeyFor(owner *TypeInfo, nav *Field) *Field {
	if nav == nil || nav.Target == nil {
		return nil
	}
	if nav.ForeignKey != "" {
		if f := owner.keyField(nav.ForeignKey, false); f != nil {
			return f
		}
		if HasOneKeyFor(owner, nav) != nil {
			return nil
		}
	}
	for _, f := range owner.Fields {
		if f.References != "" && strings.EqualFold(f.References, nav.Name) && f.Kind == KindScalar && f.Key {
			return f
		}
	}
	if f := owner.keyField(nav.Name+keySuffix, false); f != nil {
		return f
	}
	return owner.keyField(nav.Target.Name()+keySuffix, false)
}

// HasOneKeyFor returns the field on nav's target that stores owner's key. It
// applies when nav's annotation names no foreign key field on owner (or names
// owner's primary key) but does name one on the target, which is how gorm
// reads foreignKey on a has-one pointer.
func HasOneKeyFor(owner *TypeInfo, nav *Field) *Field {
	if nav == nil || nav.Kind != KindReference || nav.Target == nil || nav.ForeignKey == "" {
		return nil
	}
	if owner.keyField(nav.ForeignKey, false) != nil {
		return nil
	}
	target, err := Describe(nav.Target)
	if err != nil {
		return nil
	}
	return target.keyField(nav.ForeignKey, false)
}

// BackReference returns the reference field on child that points back at the
// parent type, preferring the one paired with the collection's annotation.
func BackReference(child *TypeInfo, parent reflect.Type, coll *Field) *Field {
	if parent.Kind() == reflect.Ptr {
		parent = parent.Elem()
	}

	var first *Field
	for _, f := range child.Fields {
		if f.Kind != KindReference || f.Target != parent {
			continue
		}
		if coll != nil && coll.ForeignKey != "" {
			if fk := ForeignKeyFor(child, f); fk != nil && strings.EqualFold(fk.Name, coll.ForeignKey) {
				return f
			}
		}
		if first == nil {
			first = f
		}
	}
	return first
}

// InverseForeignKeyFor locates the field on child that stores the key of the
// parent owning collection coll. Resolution order: annotation on coll, the key
// paired with the back reference, <ParentType>Id, and finally the only
// remaining ...Id field on child that no other reference claims.
func InverseForeignKeyFor(child, parent *TypeInfo, coll, back *Field) *Field {
	if coll != nil && coll.ForeignKey != "" {
		if f := child.keyField(coll.ForeignKey, true); f != nil {
			return f
		}
	}
	if back != nil {
		if f := ForeignKeyFor(child, back); f != nil {
			return f
		}
	}
	if f := child.keyField(parent.Name+keySuffix, false); f != nil {
		return f
	}
	return child.soleUnclaimedKey()
}

// keyField returns the named key-compatible scalar field, excluding the
// primary key unless allowPrimary is set.
func (ti *TypeInfo) keyField(name string, allowPrimary bool) *Field {
	f := ti.Field(name)
	if f == nil || f.Kind != KindScalar || !f.Key {
		return nil
	}
	if f == ti.PrimaryKey && !allowPrimary {
		return nil
	}
	return f
}

// soleUnclaimedKey returns the single ...Id key field not taken by the
// primary key or by any reference field's foreign key.
func (ti *TypeInfo) soleUnclaimedKey() *Field {
	claimed := make(map[*Field]struct{})
	for _, ref := range ti.FieldsOf(KindReference) {
		if fk := ForeignKeyFor(ti, ref); fk != nil {
			claimed[fk] = struct{}{}
		}
	}

	var found *Field
	for _, f := range ti.Fields {
		if f.Kind != KindScalar || !f.Key || f == ti.PrimaryKey {
			continue
		}
		if _, taken := claimed[f]; taken {
			continue
		}
		lower := strings.ToLower(f.Name)
		if len(lower) <= len(keySuffix) || !strings.HasSuffix(lower, "id") {
			continue
		}
		if found != nil {
			return nil
		}
		found = f
	}
	return found
}
