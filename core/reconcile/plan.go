package reconcile

import (
	"context"
	"fmt"
	"reflect"

	"seedgraph/core/graph"

	"go.uber.org/zap"
)

// ApplyPlan executes the inserts and overwrites of a store plan in order.
// Returns the number of actions executed and the first error encountered;
// actions after a failure are not attempted.
func ApplyPlan(ctx context.Context, store Store, plan *Plan) (executed int, err error) {
	if store == nil || plan == nil {
		return 0, graph.ErrNilArgument
	}
	if plan.Mode != ModeStore {
		return 0, fmt.Errorf("reconcile: cannot apply a %s plan to a store", plan.Mode)
	}

	for _, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return executed, err
		}
		switch action.Type {
		case ActionInsert:
			if err := store.Insert(ctx, action.Record); err != nil {
				return executed, &StoreError{Type: action.TypeName, Op: "insert", Err: err}
			}
		case ActionOverwrite:
			if err := store.Overwrite(ctx, action.Record); err != nil {
				return executed, &StoreError{Type: action.TypeName, Op: "overwrite", Err: err}
			}
		default:
			continue
		}
		executed++
	}
	return executed, nil
}

// ApplyToStore is a convenience wrapper that plans against store and applies
// the result. Nothing is written when planning fails.
func ApplyToStore(ctx context.Context, spec *Spec, store Store) (*Plan, int, error) {
	plan, err := PlanStore(ctx, spec, store)
	if err != nil {
		return nil, 0, err
	}
	executed, err := ApplyPlan(ctx, store, plan)
	return plan, executed, err
}

// PlanSink groups each type's entities by key for a declarative sink, which
// cannot be probed. Merge keeps the last-registered member of each group and
// always_add keeps the first; halt and skip keep every entity. Types with no
// registered entities do not appear, and two types sharing a name are
// rejected with ErrDuplicateTypeName.
func PlanSink(spec *Spec) (*Plan, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	policy := spec.policy()
	log := spec.logger()

	plan := &Plan{Mode: ModeSink, Policy: policy}
	names := make(map[string]reflect.Type)
	for _, t := range applyOrder(spec.Registry) {
		entries := spec.Registry.Entries(t)
		if len(entries) == 0 {
			continue
		}
		info, _ := spec.Registry.Info(t)
		if other, taken := names[info.Name]; taken {
			return nil, fmt.Errorf("%w: %s is used by %s and %s", ErrDuplicateTypeName, info.Name, other, t)
		}
		names[info.Name] = t
		if _, err := info.RequirePrimaryKey(); err != nil {
			return nil, &ApplyError{Type: info.Name, Err: err}
		}

		actions, collisions, err := groupByKey(t, info, entries, policy)
		if err != nil {
			return nil, &ApplyError{Type: info.Name, Err: err}
		}
		if policy == PolicyAlwaysAdd && collisions > 0 {
			log.Warn("Declarative sink cannot hold duplicate keys; keeping the first instance of each key",
				zap.String("type", info.Name),
				zap.Int("dropped", collisions),
			)
		}

		plan.Types = append(plan.Types, info.Name)
		plan.Summary.Collisions += collisions
		for _, a := range actions {
			plan.Summary.Entities++
			plan.Summary.count(a)
		}
		plan.Actions = append(plan.Actions, actions...)

		log.Info("Planned type",
			zap.String("type", info.Name),
			zap.String("policy", string(policy)),
			zap.Int("entities", len(actions)),
			zap.Int("collisions", collisions),
		)
	}
	return plan, nil
}

func groupByKey(t reflect.Type, info *graph.TypeInfo, entries []graph.Entry, policy Policy) ([]Action, int, error) {
	actions := make([]Action, len(entries))
	first := make(map[any]int)
	last := make(map[any]int)
	collisions := 0

	for i, entry := range entries {
		source := entry.Interface()
		key, err := graph.KeyOf(source)
		if err != nil {
			return nil, 0, err
		}
		actions[i] = Action{
			Type:       ActionInsert,
			TypeName:   info.Name,
			Handle:     entry.Handle,
			Key:        key,
			EntityType: t,
			Source:     source,
			Reason:     "seed",
		}
		if _, dup := first[key]; dup {
			collisions++
		} else {
			first[key] = i
		}
		last[key] = i
	}

	switch policy {
	case PolicyMerge:
		for i := range actions {
			if keep := last[actions[i].Key]; keep != i {
				actions[i].Type = ActionSkip
				actions[i].Reason = fmt.Sprintf("superseded by later instance (handle %d)", actions[keep].Handle)
			}
		}
	case PolicyAlwaysAdd:
		for i := range actions {
			if keep := first[actions[i].Key]; keep != i {
				actions[i].Type = ActionSkip
				actions[i].Reason = fmt.Sprintf("duplicate of earlier instance (handle %d)", actions[keep].Handle)
			}
		}
	}
	return actions, collisions, nil
}

// ApplyToSink plans for a declarative sink, materializes the kept entities of
// each type and hands them to sink one batch per type. Returns the plan and
// the number of batches delivered.
func ApplyToSink(ctx context.Context, spec *Spec, sink Sink) (*Plan, int, error) {
	if sink == nil {
		return nil, 0, graph.ErrNilArgument
	}
	plan, err := PlanSink(spec)
	if err != nil {
		return nil, 0, err
	}

	extractor := graph.NewExtractor(spec.Registry)
	delivered := 0
	for _, batch := range batches(plan) {
		if err := ctx.Err(); err != nil {
			return plan, delivered, err
		}
		entities, err := extractor.MaterializeAll(batch.typ, batch.sources)
		if err != nil {
			return plan, delivered, &ApplyError{Type: batch.name, Err: err}
		}
		records := make([]graph.Record, 0, len(batch.sources))
		for _, src := range batch.sources {
			rec, err := extractor.Record(src)
			if err != nil {
				return plan, delivered, &ApplyError{Type: batch.name, Err: err}
			}
			records = append(records, rec)
		}

		if err := sink.Seed(ctx, Batch{Type: batch.typ, Name: batch.name, Entities: entities, Records: records}); err != nil {
			return plan, delivered, &StoreError{Type: batch.name, Op: "seed", Err: err}
		}
		delivered++
	}
	return plan, delivered, nil
}

type pendingBatch struct {
	typ     reflect.Type
	name    string
	sources []any
}

// batches collects the inserted sources of a sink plan per type, preserving
// plan order.
func batches(plan *Plan) []pendingBatch {
	var out []pendingBatch
	index := make(map[string]int)
	for _, a := range plan.Actions {
		if a.Type != ActionInsert {
			continue
		}
		i, ok := index[a.TypeName]
		if !ok {
			i = len(out)
			index[a.TypeName] = i
			out = append(out, pendingBatch{typ: a.EntityType, name: a.TypeName})
		}
		out[i].sources = append(out[i].sources, a.Source)
	}
	return out
}
