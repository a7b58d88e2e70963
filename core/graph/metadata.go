package graph

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// FieldKind classifies a struct field for graph traversal and extraction.
type FieldKind int

const (
	// KindIgnored fields are neither persisted nor traversed (maps, funcs,
	// interfaces, value structs, slices of scalars).
	KindIgnored FieldKind = iota
	// KindScalar fields hold persistable values, including keys.
	KindScalar
	// KindReference fields point at a single related entity.
	KindReference
	// KindCollection fields hold zero or more related entities.
	KindCollection
)

// String returns the kind name.
func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindReference:
		return "reference"
	case KindCollection:
		return "collection"
	default:
		return "ignored"
	}
}

// Field describes one exported field of an entity type.
type Field struct {
	// Name is the Go field name.
	Name string

	// Index is the reflect index path, including promoted fields of embedded structs.
	Index []int

	// Type is the declared field type.
	Type reflect.Type

	// Kind is the traversal classification, computed once.
	Kind FieldKind

	// Key is true for scalars usable as primary or foreign keys
	// (integers, strings, UUIDs and pointers to them).
	Key bool

	// Target is the related struct type for references and collections.
	Target reflect.Type

	// ElemPointer is true when collection elements are pointers.
	ElemPointer bool

	// PrimaryKey is true when the field carries a primary-key annotation.
	PrimaryKey bool

	// ForeignKey names the foreign-key field paired with this navigation field.
	// For references it lives on the owner, for collections on the child.
	ForeignKey string

	// References names the reference field this foreign key belongs to.
	References string
}

// TypeInfo is the cached descriptor of an entity type.
type TypeInfo struct {
	// Type is the struct type (never a pointer).
	Type reflect.Type

	// Name is the Go type name used by naming conventions.
	Name string

	// Fields lists exported fields in declaration order.
	Fields []*Field

	// PrimaryKey is the detected primary-key field, or nil.
	PrimaryKey *Field

	byName map[string]*Field
}

// Field returns the field with the given name, matched case-insensitively.
func (ti *TypeInfo) Field(name string) *Field {
	return ti.byName[strings.ToLower(name)]
}

// FieldsOf returns the fields of the given kind in declaration order.
func (ti *TypeInfo) FieldsOf(kind FieldKind) []*Field {
	var out []*Field
	for _, f := range ti.Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// RequirePrimaryKey returns the primary-key field or a PrimaryKeyNotFoundError.
func (ti *TypeInfo) RequirePrimaryKey() (*Field, error) {
	if ti.PrimaryKey == nil {
		return nil, &PrimaryKeyNotFoundError{Type: ti.Name}
	}
	return ti.PrimaryKey, nil
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	uuidType   = reflect.TypeOf(uuid.UUID{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// descriptorCache holds descriptors keyed by struct type.
type descriptorCache struct {
	mu    sync.RWMutex
	types map[reflect.Type]*TypeInfo
	sf    singleflight.Group
}

// descriptors is shared by every registry; descriptors never change once built.
var descriptors = &descriptorCache{
	types: make(map[reflect.Type]*TypeInfo),
}

// Describe returns the cached descriptor for t, which may be a struct type or
// a pointer to one.
func Describe(t reflect.Type) (*TypeInfo, error) {
	if t == nil {
		return nil, ErrNilArgument
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedEntity, t)
	}

	descriptors.mu.RLock()
	info, ok := descriptors.types[t]
	descriptors.mu.RUnlock()
	if ok {
		return info, nil
	}

	// The type's address is unique, unlike its string form.
	result, _, _ := descriptors.sf.Do(fmt.Sprintf("%p", t), func() (interface{}, error) {
		built := buildTypeInfo(t)
		descriptors.mu.Lock()
		descriptors.types[t] = built
		descriptors.mu.Unlock()
		return built, nil
	})
	return result.(*TypeInfo), nil
}

// MustDescribe is like Describe but panics on error. Intended for tests and
// package-level fixtures.
func MustDescribe(t reflect.Type) *TypeInfo {
	info, err := Describe(t)
	if err != nil {
		panic(err)
	}
	return info
}

func buildTypeInfo(t reflect.Type) *TypeInfo {
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	info := &TypeInfo{
		Type:   t,
		Name:   name,
		byName: make(map[string]*Field),
	}

	var skipped [][]int
	for _, sf := range reflect.VisibleFields(t) {
		if hasIndexPrefix(sf.Index, skipped) {
			continue
		}
		tags := parseTags(sf.Tag)
		if tags.skip || !sf.IsExported() {
			if sf.Anonymous {
				skipped = append(skipped, sf.Index)
			}
			continue
		}
		// Embedded structs contribute their promoted fields instead of themselves.
		if sf.Anonymous && embedsStruct(sf.Type) {
			continue
		}

		f := &Field{
			Name:       sf.Name,
			Index:      sf.Index,
			Type:       sf.Type,
			PrimaryKey: tags.primaryKey,
			ForeignKey: tags.foreignKey,
			References: tags.references,
		}
		classify(f)
		info.Fields = append(info.Fields, f)
		if _, dup := info.byName[strings.ToLower(f.Name)]; !dup {
			info.byName[strings.ToLower(f.Name)] = f
		}
	}

	info.PrimaryKey = detectPrimaryKey(info)
	return info
}

func classify(f *Field) {
	t := f.Type
	switch {
	case isScalarType(t):
		f.Kind = KindScalar
		f.Key = isKeyType(t)
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		f.Kind = KindReference
		f.Target = t.Elem()
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		elem := t.Elem()
		switch {
		case elem.Kind() == reflect.Ptr && elem.Elem().Kind() == reflect.Struct && !isScalarType(elem.Elem()):
			f.Kind = KindCollection
			f.Target = elem.Elem()
			f.ElemPointer = true
		case elem.Kind() == reflect.Struct && !isScalarType(elem):
			f.Kind = KindCollection
			f.Target = elem
		default:
			f.Kind = KindIgnored
		}
	default:
		f.Kind = KindIgnored
	}
}

// detectPrimaryKey applies annotation, then Id, then <TypeName>Id.
func detectPrimaryKey(info *TypeInfo) *Field {
	for _, f := range info.Fields {
		if f.PrimaryKey && f.Kind == KindScalar && f.Key {
			return f
		}
	}
	for _, candidate := range []string{"id", strings.ToLower(info.Name) + "id"} {
		for _, f := range info.Fields {
			if f.Kind == KindScalar && f.Key && strings.ToLower(f.Name) == candidate {
				return f
			}
		}
	}
	return nil
}

// isScalarType reports whether values of t are persisted as-is.
func isScalarType(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		return isScalarType(t.Elem())
	}
	if t == timeType || t == uuidType {
		return true
	}
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}

// isKeyType reports whether t can hold a primary or foreign key.
func isKeyType(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == uuidType {
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		return true
	}
	return false
}

func embedsStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && !isScalarType(t)
}

func hasIndexPrefix(index []int, prefixes [][]int) bool {
	for _, p := range prefixes {
		if len(index) <= len(p) {
			continue
		}
		match := true
		for i := range p {
			if index[i] != p[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

type fieldTags struct {
	skip       bool
	primaryKey bool
	foreignKey string
	references string
}

// parseTags reads `seed:"pk,fk=X,ref=Y"` and the gorm primaryKey/foreignKey settings.
func parseTags(tag reflect.StructTag) fieldTags {
	var out fieldTags

	if seed, ok := tag.Lookup("seed"); ok {
		for _, part := range strings.Split(seed, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "-":
				out.skip = true
			case part == "pk":
				out.primaryKey = true
			case strings.HasPrefix(part, "fk="):
				out.foreignKey = strings.TrimPrefix(part, "fk=")
			case strings.HasPrefix(part, "ref="):
				out.references = strings.TrimPrefix(part, "ref=")
			}
		}
	}

	if gormTag, ok := tag.Lookup("gorm"); ok {
		for _, part := range strings.Split(gormTag, ";") {
			key, value, _ := strings.Cut(strings.TrimSpace(part), ":")
			switch strings.ToLower(key) {
			case "primarykey", "primary_key":
				out.primaryKey = true
			case "foreignkey":
				if out.foreignKey == "" {
					out.foreignKey = value
				}
			}
		}
	}

	return out
}
