package reconcile

import (
	"context"
	"reflect"

	"seedgraph/core/graph"
)

// Store is a live external store that can be probed for existing records.
// Types are entity pointer types; records are materialized *T values.
type Store interface {
	// Accepts reports whether the store has somewhere to put records of type t.
	// Types it does not accept are skipped silently.
	Accepts(ctx context.Context, t reflect.Type) (bool, error)

	// Find returns the stored record of type t with the given primary key,
	// or nil when there is none.
	Find(ctx context.Context, t reflect.Type, key any) (any, error)

	// Insert adds a new record.
	Insert(ctx context.Context, record any) error

	// Overwrite replaces the scalar fields of the stored record sharing
	// record's primary key.
	Overwrite(ctx context.Context, record any) error
}

// Batch is the finished seed data for one type.
type Batch struct {
	// Type is the entity pointer type.
	Type reflect.Type

	// Name is the entity type name.
	Name string

	// Entities is a []*T of materialized copies.
	Entities any

	// Records holds the same entities reduced to ordered field lists.
	Records []graph.Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Records)
}

// Sink registers finished batches as static seed data. It cannot be probed.
type Sink interface {
	Seed(ctx context.Context, batch Batch) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, batch Batch) error

// Seed calls f.
func (f SinkFunc) Seed(ctx context.Context, batch Batch) error {
	return f(ctx, batch)
}
