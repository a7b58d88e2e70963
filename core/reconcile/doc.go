// Package reconcile resolves primary-key collisions between registered
// entities and the place they are being written to.
//
// Two collision sources are supported:
//
//  1. A live Store (e.g. a database), probed per key. Each entity is checked
//     first against entities already planned in the same run, then against
//     the store.
//  2. A declarative Sink (e.g. seed files), which cannot be probed. Entities
//     are grouped by key within each type's batch.
//
// # Policies
//
//   - halt: a collision with a differing payload is an error; identical
//     payloads are a no-op.
//   - merge: the incoming record wins. Store collisions overwrite the stored
//     row; in a sink batch the last-registered member of each key survives.
//   - skip: the earlier or stored record wins. A sink batch keeps every
//     member, as it does under halt, and leaves duplicates to the sink.
//   - always_add: the incoming record gets a fresh key (integers count up,
//     UUIDs and strings are regenerated), bounded by MaxKeyAttempts. A sink
//     cannot hold duplicates, so it keeps the first member of each key.
//
// # Plans
//
// Reconciliation is split into planning and applying, in the manner of a
// dry run: PlanStore and PlanSink return a Plan listing one Action per entity
// with a reason, plus summary counts. ApplyPlan executes a store plan;
// ApplyToStore and ApplyToSink plan and apply in one call.
//
// Types are visited in dependency order: a type holding a foreign key to
// another registered type is written after it. Cycles fall back to
// registration order.
//
// # Usage Example
//
//	spec := &reconcile.Spec{Registry: registry, Policy: reconcile.PolicyMerge}
//	plan, executed, err := reconcile.ApplyToStore(ctx, spec, database.NewStore(db))
package reconcile
