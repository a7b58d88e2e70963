package reconcile

import (
	"context"
	"fmt"
	"reflect"

	"seedgraph/core/graph"

	"go.uber.org/zap"
)

// PlanStore reconciles every registered entity against a live store without
// writing anything. Types are visited in dependency order and entities in
// registration order. Each entity is first checked against entities already
// planned in this run, then the store is probed for its key.
//
// Halt-policy collisions with differing payloads, missing primary keys and
// key synthesis exhaustion abort planning.
func PlanStore(ctx context.Context, spec *Spec, store Store) (*Plan, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, graph.ErrNilArgument
	}

	policy := spec.policy()
	log := spec.logger()
	extractor := graph.NewExtractor(spec.Registry)

	plan := &Plan{Mode: ModeStore, Policy: policy}
	for _, t := range applyOrder(spec.Registry) {
		info, _ := spec.Registry.Info(t)

		ok, err := store.Accepts(ctx, t)
		if err != nil {
			return nil, &StoreError{Type: info.Name, Op: "accepts", Err: err}
		}
		if !ok {
			log.Debug("Skipping type: not accepted by store", zap.String("type", info.Name))
			plan.Summary.SkippedTypes = append(plan.Summary.SkippedTypes, info.Name)
			continue
		}
		if _, err := info.RequirePrimaryKey(); err != nil {
			return nil, &ApplyError{Type: info.Name, Err: err}
		}

		tp := &typePlanner{
			ctx:       ctx,
			spec:      spec,
			policy:    policy,
			store:     store,
			extractor: extractor,
			t:         t,
			info:      info,
			log:       log,
			planned:   make(map[any]int),
		}
		actions, collisions, err := tp.run()
		if err != nil {
			return nil, err
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

// typePlanner plans one type bucket against a store.
type typePlanner struct {
	ctx       context.Context
	spec      *Spec
	policy    Policy
	store     Store
	extractor *graph.Extractor
	t         reflect.Type
	info      *graph.TypeInfo
	log       *zap.Logger

	// planned maps keys written in this run to the index of their action.
	planned  map[any]int
	// reserved holds the registered key of every entity in the bucket, so a
	// synthesized key never lands on an entity that has not been planned yet.
	reserved map[any]struct{}
	actions  []Action
}

func (tp *typePlanner) run() ([]Action, int, error) {
	entries := tp.spec.Registry.Entries(tp.t)
	tp.reserved = make(map[any]struct{}, len(entries))
	for _, entry := range entries {
		key, err := graph.KeyOf(entry.Interface())
		if err != nil {
			return nil, 0, &ApplyError{Type: tp.info.Name, Err: err}
		}
		tp.reserved[key] = struct{}{}
	}

	collisions := 0
	for _, entry := range entries {
		collided, err := tp.plan(entry)
		if err != nil {
			return nil, 0, &ApplyError{Type: tp.info.Name, Err: err}
		}
		if collided {
			collisions++
		}
	}
	return tp.actions, collisions, nil
}

func (tp *typePlanner) plan(entry graph.Entry) (bool, error) {
	source := entry.Interface()
	record, err := tp.extractor.MaterializeOne(source)
	if err != nil {
		return false, err
	}
	key, err := graph.KeyOf(record)
	if err != nil {
		return false, err
	}

	action := Action{
		TypeName:   tp.info.Name,
		Handle:     entry.Handle,
		Key:        key,
		EntityType: tp.t,
		Record:     record,
		Source:     source,
	}

	// Collisions within this run come first.
	if idx, taken := tp.planned[key]; taken {
		earlier := tp.actions[idx]
		if err := tp.resolve(&action, earlier.Record, fmt.Sprintf("earlier instance (handle %d)", earlier.Handle)); err != nil {
			return true, err
		}
		tp.add(action)
		return true, nil
	}

	stored, err := tp.store.Find(tp.ctx, tp.t, key)
	if err != nil {
		return false, &StoreError{Type: tp.info.Name, Op: "find", Err: err}
	}
	if !present(stored) {
		action.Type = ActionInsert
		action.Reason = "new key"
		tp.add(action)
		return false, nil
	}

	if err := tp.resolve(&action, stored, "stored record"); err != nil {
		return true, err
	}
	tp.add(action)
	return true, nil
}

// resolve applies the policy to a collision between action's record and
// existing.
func (tp *typePlanner) resolve(action *Action, existing any, against string) error {
	switch tp.policy {
	case PolicyHalt:
		diff, err := graph.Diff(action.Record, existing, tp.spec.Registry.Converters())
		if err != nil {
			return err
		}
		if len(diff) > 0 {
			return &KeyCollisionError{Type: tp.info.Name, Key: action.Key, Diff: diff}
		}
		action.Type = ActionUnchanged
		action.Reason = "identical to " + against

	case PolicyMerge:
		diff, err := graph.Diff(action.Record, existing, tp.spec.Registry.Converters())
		if err != nil {
			return err
		}
		if len(diff) == 0 {
			action.Type = ActionUnchanged
			action.Reason = "identical to " + against
			return nil
		}
		action.Type = ActionOverwrite
		action.Reason = "merged over " + against
		action.Diff = diff

	case PolicySkip:
		action.Type = ActionSkip
		action.Reason = "kept " + against

	case PolicyAlwaysAdd:
		fresh, err := synthesizeKey(tp.ctx, tp.store, tp.t, tp.info.Name, action.Key, tp.planned, tp.reserved, tp.spec.attempts())
		if err != nil {
			return err
		}
		if err := graph.SetKey(action.Source, fresh); err != nil {
			return err
		}
		if err := graph.SetKey(action.Record, fresh); err != nil {
			return err
		}
		tp.log.Warn("Synthesized key",
			zap.String("type", tp.info.Name),
			zap.Any("previous_key", action.Key),
			zap.Any("key", fresh),
		)
		action.PreviousKey = action.Key
		action.Key = fresh
		action.Type = ActionInsert
		action.Reason = "rekeyed to avoid " + against

	default:
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, tp.policy)
	}
	return nil
}

// add records action. Inserts and overwrites become the reference instance
// for their key; skipped and unchanged entities do not.
func (tp *typePlanner) add(action Action) {
	tp.actions = append(tp.actions, action)
	switch action.Type {
	case ActionInsert, ActionOverwrite:
		tp.planned[action.Key] = len(tp.actions) - 1
	}
}

// present reports whether v holds a record, treating typed nils as absent.
func present(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return !rv.IsNil()
	}
	return true
}
