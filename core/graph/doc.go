// Package graph discovers and flattens graphs of linked records.
//
// Callers build ordinary Go structs that point at each other (a Book holding a
// *Category, a Category holding []*Book) and register the roots. The package
// walks everything reachable, infers which scalar fields are foreign keys and
// fills them from the primary key of the object on the other end of each edge.
//
// # Conventions
//
// No schema is required. Field roles are inferred once per type:
//
//   - Primary key: a field tagged `seed:"pk"` (or gorm `primaryKey`), else a field
//     named Id/ID, else <TypeName>Id.
//   - Reference: a pointer to a struct that is not a scalar type.
//   - Collection: a slice or array of such structs (or pointers to them).
//   - Foreign key for a reference R of type T: the field named by a `seed:"fk=X"`
//     (or gorm `foreignKey:X`) tag on R, a field tagged `seed:"ref=R"`, then
//     <R>Id, then <T>Id. The owner's primary key is never a foreign key.
//   - Has-one: when the gorm foreignKey:X tag on R names a field of T rather than
//     one of the owner, X on the target is filled from the owner's key instead.
//
// Names are matched case-insensitively, so CategoryID and CategoryId are the
// same candidate.
//
// # Components
//
//   - Registry: per-type buckets of registered entities in insertion order.
//   - Scanner: recursive walk with a cycle guard; keys are assigned on every
//     traversed edge, recursion happens once per entity.
//   - Extractor: reduces entities to Records (scalars and keys only) or to fresh
//     typed copies for sinks that want concrete structs.
//
// # Usage
//
//	reg := graph.NewRegistry()
//	if err := reg.Register(book); err != nil {
//	    return err
//	}
//	ext := graph.NewExtractor(reg)
//	records, err := ext.FieldMaps(reflect.TypeOf(Book{}))
//
// A Registry is not safe for concurrent use; one goroutine owns a session.
package graph
