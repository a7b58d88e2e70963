package graph

import (
	"reflect"

	"go.uber.org/zap"
)

// Entry is a registered entity together with its stable handle.
type Entry struct {
	// Handle is assigned in registration order and never reused within a session.
	Handle int

	// Value is the registered pointer.
	Value reflect.Value
}

// Interface returns the registered pointer as an interface value.
func (e Entry) Interface() any {
	return e.Value.Interface()
}

// identity is the reference identity of an entity.
type identity struct {
	t reflect.Type
	p uintptr
}

func identityOf(v reflect.Value) identity {
	return identity{t: v.Type(), p: v.Pointer()}
}

type bucket struct {
	info    *TypeInfo
	entries []Entry
}

// Registry holds, per type, the distinct entities registered in a session.
// Registering an entity scans it, so everything reachable is registered too.
type Registry struct {
	buckets    map[reflect.Type]*bucket
	types      []reflect.Type
	members    map[identity]int
	visited    map[identity]struct{}
	next       int
	scanner    *Scanner
	converters *Converters
	log        *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for skipped assignments.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithConverters sets the custom scalar converters. Fields whose type has a
// converter are not traversed.
func WithConverters(c *Converters) Option {
	return func(r *Registry) {
		if c != nil {
			r.converters = c
		}
	}
}

// NewRegistry returns an empty registry with its scanner attached.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		buckets:    make(map[reflect.Type]*bucket),
		members:    make(map[identity]int),
		visited:    make(map[identity]struct{}),
		converters: NewConverters(),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.scanner = &Scanner{registry: r}
	return r
}

// Register adds entity (a non-nil pointer to a struct) if it is not already
// present and scans everything reachable from it.
func (r *Registry) Register(entity any) error {
	v, err := entityValue(entity)
	if err != nil {
		return err
	}
	return r.register(v)
}

// RegisterAll registers each entity in order, stopping at the first error.
func (r *Registry) RegisterAll(entities ...any) error {
	for _, entity := range entities {
		if err := r.Register(entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(v reflect.Value) error {
	id := identityOf(v)
	if _, exists := r.members[id]; !exists {
		b, err := r.bucketFor(v.Type())
		if err != nil {
			return err
		}
		handle := r.next
		r.next++
		r.members[id] = handle
		b.entries = append(b.entries, Entry{Handle: handle, Value: v})
	}
	return r.scanner.scan(v)
}

func (r *Registry) bucketFor(t reflect.Type) (*bucket, error) {
	if b, ok := r.buckets[t]; ok {
		return b, nil
	}
	info, err := Describe(t)
	if err != nil {
		return nil, err
	}
	b := &bucket{info: info}
	r.buckets[t] = b
	r.types = append(r.types, t)
	return b, nil
}

// Get returns the entities registered for t in insertion order. t may be the
// struct type or the pointer type.
func (r *Registry) Get(t reflect.Type) []any {
	entries := r.Entries(t)
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Interface())
	}
	return out
}

// Entries returns the registry entries for t in insertion order.
func (r *Registry) Entries(t reflect.Type) []Entry {
	b, ok := r.buckets[pointerType(t)]
	if !ok {
		return nil
	}
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Types returns the registered entity types (pointer types) in the order
// their first instance was registered.
func (r *Registry) Types() []reflect.Type {
	out := make([]reflect.Type, len(r.types))
	copy(out, r.types)
	return out
}

// Info returns the descriptor for a registered type.
func (r *Registry) Info(t reflect.Type) (*TypeInfo, bool) {
	b, ok := r.buckets[pointerType(t)]
	if !ok {
		return nil, false
	}
	return b.info, true
}

// Contains reports whether entity is registered.
func (r *Registry) Contains(entity any) bool {
	v, err := entityValue(entity)
	if err != nil {
		return false
	}
	_, ok := r.members[identityOf(v)]
	return ok
}

// Handle returns the handle assigned to entity.
func (r *Registry) Handle(entity any) (int, bool) {
	v, err := entityValue(entity)
	if err != nil {
		return 0, false
	}
	h, ok := r.members[identityOf(v)]
	return h, ok
}

// Len returns the total number of registered entities.
func (r *Registry) Len() int {
	return len(r.members)
}

// Converters returns the registry's converter set.
func (r *Registry) Converters() *Converters {
	return r.converters
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *zap.Logger {
	return r.log
}

// Clear empties every bucket and the cycle guard. Handles restart at zero.
func (r *Registry) Clear() {
	r.buckets = make(map[reflect.Type]*bucket)
	r.types = nil
	r.members = make(map[identity]int)
	r.visited = make(map[identity]struct{})
	r.next = 0
}

// All returns the registered entities of type T.
func All[T any](r *Registry) []*T {
	entries := r.Entries(reflect.TypeFor[T]())
	out := make([]*T, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Interface().(*T))
	}
	return out
}

func pointerType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	if t.Kind() != reflect.Ptr {
		return reflect.PointerTo(t)
	}
	return t
}
