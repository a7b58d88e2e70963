package graph

import (
	"reflect"

	"go.uber.org/zap"
)

// Scanner walks an entity's references and collections, filling foreign keys
// on every traversed edge and registering everything it reaches.
type Scanner struct {
	registry *Registry
}

func (s *Scanner) scan(v reflect.Value) error {
	r := s.registry
	id := identityOf(v)
	if _, seen := r.visited[id]; seen {
		return nil
	}
	r.visited[id] = struct{}{}

	info, err := Describe(v.Type())
	if err != nil {
		return err
	}
	elem := v.Elem()

	for _, f := range info.Fields {
		if f.Kind != KindReference && f.Kind != KindCollection {
			continue
		}
		if r.converters.Has(f.Type) {
			continue
		}
		fv, ok := fieldByIndex(elem, f.Index)
		if !ok {
			continue
		}

		switch f.Kind {
		case KindReference:
			if fv.IsNil() {
				continue
			}
			s.linkReference(elem, info, f, fv)
			if err := r.register(fv); err != nil {
				return err
			}

		case KindCollection:
			if fv.Kind() == reflect.Slice && fv.IsNil() {
				continue
			}
			for i := 0; i < fv.Len(); i++ {
				item := fv.Index(i)
				if f.ElemPointer {
					if item.IsNil() {
						continue
					}
				} else {
					if !item.CanAddr() {
						continue
					}
					item = item.Addr()
				}
				s.linkCollectionItem(v, info, f, item)
				if err := r.register(item); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// linkReference sets owner's foreign key for nav from target's primary key.
// For a has-one annotation the direction flips and target's key field is set
// from owner's primary key.
func (s *Scanner) linkReference(owner reflect.Value, ownerInfo *TypeInfo, nav *Field, target reflect.Value) {
	log := s.registry.log
	if inverse := HasOneKeyFor(ownerInfo, nav); inverse != nil {
		if ownerInfo.PrimaryKey == nil {
			log.Debug("Skipping has-one key: owner has no primary key",
				zap.String("type", ownerInfo.Name),
				zap.String("field", nav.Name),
			)
			return
		}
		targetInfo, err := Describe(nav.Target)
		if err != nil {
			return
		}
		s.copyKey(target.Elem(), targetInfo, inverse, owner, ownerInfo.PrimaryKey)
		return
	}

	targetInfo, err := Describe(nav.Target)
	if err != nil || targetInfo.PrimaryKey == nil {
		log.Debug("Skipping reference key: target has no primary key",
			zap.String("type", ownerInfo.Name),
			zap.String("field", nav.Name),
		)
		return
	}
	fk := ForeignKeyFor(ownerInfo, nav)
	if fk == nil {
		log.Debug("Skipping reference key: no foreign key field",
			zap.String("type", ownerInfo.Name),
			zap.String("field", nav.Name),
		)
		return
	}
	s.copyKey(owner, ownerInfo, fk, target.Elem(), targetInfo.PrimaryKey)
}

// linkCollectionItem points child back at parent when its back reference is
// empty, then sets the child's foreign key from the parent's primary key.
func (s *Scanner) linkCollectionItem(parent reflect.Value, parentInfo *TypeInfo, coll *Field, child reflect.Value) {
	log := s.registry.log
	childInfo, err := Describe(coll.Target)
	if err != nil {
		return
	}

	back := BackReference(childInfo, parentInfo.Type, coll)
	if back != nil {
		if bv, ok := fieldForWrite(child.Elem(), back.Index); ok && bv.IsNil() && bv.CanSet() {
			bv.Set(parent)
		}
	}

	if parentInfo.PrimaryKey == nil {
		log.Debug("Skipping collection key: parent has no primary key",
			zap.String("type", parentInfo.Name),
			zap.String("field", coll.Name),
		)
		return
	}
	fk := InverseForeignKeyFor(childInfo, parentInfo, coll, back)
	if fk == nil {
		log.Debug("Skipping collection key: no foreign key field on child",
			zap.String("type", childInfo.Name),
			zap.String("parent", parentInfo.Name),
			zap.String("field", coll.Name),
		)
		return
	}
	s.copyKey(child.Elem(), childInfo, fk, parent.Elem(), parentInfo.PrimaryKey)
}

func (s *Scanner) copyKey(dst reflect.Value, dstInfo *TypeInfo, fk *Field, src reflect.Value, pk *Field) {
	key, ok := fieldByIndex(src, pk.Index)
	if !ok {
		return
	}
	field, ok := fieldForWrite(dst, fk.Index)
	if !ok {
		return
	}
	if err := assignValue(field, key); err != nil {
		s.registry.log.Debug("Skipping key assignment",
			zap.Error(&FieldAssignmentError{Type: dstInfo.Name, Field: fk.Name, Err: err}),
		)
	}
}
