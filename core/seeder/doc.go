// Package seeder is the entry point for building seed data from hand-written
// object graphs.
//
// A Seeder wraps one registry session. Registering a root entity walks every
// reference and collection reachable from it, fills foreign keys from the
// primary keys of related entities and records each distinct entity once.
// The session can then be reduced to relation-free records or written out:
//
//   - ApplyToStore reconciles against a live store (see database.Store) and
//     inserts or overwrites rows.
//   - ApplyToSink hands one batch per type to a declarative sink (see
//     storage.ObjectSink and storage.DirSink).
//
// Key collisions are resolved by the session policy: halt, merge, skip or
// always_add.
//
// # Usage
//
//	s, err := seeder.New(reconcile.PolicyMerge, seeder.WithLogger(log))
//	if err := s.Register(book); err != nil {
//	    return err
//	}
//	plan, err := s.ApplyToStore(ctx, database.NewStore(db))
package seeder
