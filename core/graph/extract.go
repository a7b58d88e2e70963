package graph

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// FieldValue is one named value of a Record.
type FieldValue struct {
	Name  string
	Value any
}

// Record is the reduced, relation-free form of an entity: scalar and key
// fields in declaration order.
type Record struct {
	// Type is the entity type name.
	Type string

	// Fields holds the extracted values in declaration order.
	Fields []FieldValue
}

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Name
	}
	return out
}

// Map returns the fields as an unordered map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Name] = f.Value
	}
	return out
}

// ExtractRecord reduces entity to its scalar and key fields. Nil nullable
// values are omitted; converter-typed fields appear as converter strings.
func ExtractRecord(entity any, conv *Converters) (Record, error) {
	v, err := entityValue(entity)
	if err != nil {
		return Record{}, err
	}
	info, err := Describe(v.Type())
	if err != nil {
		return Record{}, err
	}
	return extractRecord(v.Elem(), info, conv, zap.NewNop()), nil
}

func extractRecord(elem reflect.Value, info *TypeInfo, conv *Converters, log *zap.Logger) Record {
	rec := Record{Type: info.Name, Fields: make([]FieldValue, 0, len(info.Fields))}
	for _, f := range info.Fields {
		fn, onElem, converted := conv.lookup(f.Type)
		if f.Kind != KindScalar && !converted {
			continue
		}
		fv, ok := fieldByIndex(elem, f.Index)
		if !ok {
			continue
		}

		if converted {
			if fv.Kind() == reflect.Ptr && fv.IsNil() {
				continue
			}
			arg := fv
			if onElem {
				arg = fv.Elem()
			}
			s, err := convert(fn, arg.Interface())
			if err != nil {
				log.Debug("Skipping field: converter failed",
					zap.Error(&FieldAssignmentError{Type: info.Name, Field: f.Name, Err: err}),
				)
				continue
			}
			rec.Fields = append(rec.Fields, FieldValue{Name: f.Name, Value: s})
			continue
		}

		value, ok := indirect(fv)
		if !ok {
			continue
		}
		rec.Fields = append(rec.Fields, FieldValue{Name: f.Name, Value: value.Interface()})
	}
	return rec
}

// convert runs fn, turning a panic into an error.
func convert(fn ConverterFunc, v any) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("converter panic: %v", r)
		}
	}()
	return fn(v), nil
}

// Extractor turns registered entities into Records or fresh typed copies.
type Extractor struct {
	registry *Registry
}

// NewExtractor returns an extractor over r, using r's converters and logger.
func NewExtractor(r *Registry) *Extractor {
	return &Extractor{registry: r}
}

// FieldMaps returns one Record per registered entity of type t.
func (e *Extractor) FieldMaps(t reflect.Type) ([]Record, error) {
	if t == nil {
		return nil, ErrNilArgument
	}
	info, err := Describe(t)
	if err != nil {
		return nil, err
	}
	entries := e.registry.Entries(t)
	out := make([]Record, 0, len(entries))
	for _, entry := range entries {
		out = append(out, extractRecord(entry.Value.Elem(), info, e.registry.converters, e.registry.log))
	}
	return out, nil
}

// Record reduces a single entity using the registry's converters.
func (e *Extractor) Record(entity any) (Record, error) {
	v, err := entityValue(entity)
	if err != nil {
		return Record{}, err
	}
	info, err := Describe(v.Type())
	if err != nil {
		return Record{}, err
	}
	return extractRecord(v.Elem(), info, e.registry.converters, e.registry.log), nil
}

// Materialize returns a []*T of fresh copies of every registered entity of
// type t, holding only scalar, key and converter-typed fields.
func (e *Extractor) Materialize(t reflect.Type) (any, error) {
	if t == nil {
		return nil, ErrNilArgument
	}
	entries := e.registry.Entries(t)
	entities := make([]any, 0, len(entries))
	for _, entry := range entries {
		entities = append(entities, entry.Interface())
	}
	return e.MaterializeAll(t, entities)
}

// MaterializeAll copies the given entities of type t into a fresh []*T.
func (e *Extractor) MaterializeAll(t reflect.Type, entities []any) (any, error) {
	if t == nil {
		return nil, ErrNilArgument
	}
	ptr := pointerType(t)
	if _, err := Describe(ptr); err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(reflect.SliceOf(ptr), 0, len(entities))
	for _, entity := range entities {
		copied, err := e.MaterializeOne(entity)
		if err != nil {
			return nil, err
		}
		cv := reflect.ValueOf(copied)
		if cv.Type() != ptr {
			return nil, fmt.Errorf("%w: %s in a batch of %s", ErrUnsupportedEntity, cv.Type(), ptr)
		}
		out = reflect.Append(out, cv)
	}
	return out.Interface(), nil
}

// MaterializeOne returns a fresh *T copy of entity. Failing to copy the
// primary key is fatal; other failed fields are skipped.
func (e *Extractor) MaterializeOne(entity any) (any, error) {
	v, err := entityValue(entity)
	if err != nil {
		return nil, err
	}
	info, err := Describe(v.Type())
	if err != nil {
		return nil, err
	}

	fresh := reflect.New(info.Type)
	src := v.Elem()
	dst := fresh.Elem()
	for _, f := range info.Fields {
		if f.Kind != KindScalar && !e.registry.converters.Has(f.Type) {
			continue
		}
		if err := copyField(dst, src, f); err != nil {
			if f == info.PrimaryKey {
				return nil, &FieldAssignmentError{Type: info.Name, Field: f.Name, Err: err}
			}
			e.registry.log.Debug("Skipping field copy",
				zap.Error(&FieldAssignmentError{Type: info.Name, Field: f.Name, Err: err}),
			)
		}
	}
	return fresh.Interface(), nil
}

func copyField(dst, src reflect.Value, f *Field) error {
	sv, ok := fieldByIndex(src, f.Index)
	if !ok {
		return errors.New("source field unreachable")
	}
	dv, ok := fieldForWrite(dst, f.Index)
	if !ok || !dv.CanSet() {
		return errors.New("destination field is not settable")
	}
	dv.Set(cloneValue(sv))
	return nil
}

// MaterializeOf is the typed form of Extractor.Materialize.
func MaterializeOf[T any](e *Extractor) ([]*T, error) {
	out, err := e.Materialize(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return out.([]*T), nil
}
