package seeder

import (
	"context"
	"reflect"

	"seedgraph/core/graph"
	"seedgraph/core/reconcile"

	"go.uber.org/zap"
)

// Seeder owns one seeding session: a registry of scanned entities, the
// collision policy and the converters used during extraction. A Seeder is not
// safe for concurrent use.
type Seeder struct {
	registry       *graph.Registry
	extractor      *graph.Extractor
	converters     *graph.Converters
	policy         reconcile.Policy
	maxKeyAttempts int
	log            *zap.Logger
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Seeder) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConverters sets the custom scalar converters.
func WithConverters(c *graph.Converters) Option {
	return func(s *Seeder) {
		if c != nil {
			s.converters = c
		}
	}
}

// WithMaxKeyAttempts bounds key synthesis under the always_add policy.
func WithMaxKeyAttempts(n int) Option {
	return func(s *Seeder) {
		if n > 0 {
			s.maxKeyAttempts = n
		}
	}
}

// New creates a session with the given policy.
func New(policy reconcile.Policy, opts ...Option) (*Seeder, error) {
	p, err := reconcile.ParsePolicy(string(policy))
	if err != nil {
		return nil, err
	}
	s := &Seeder{
		converters:     graph.NewConverters(),
		policy:         p,
		maxKeyAttempts: reconcile.DefaultMaxKeyAttempts,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.registry = graph.NewRegistry(graph.WithLogger(s.log), graph.WithConverters(s.converters))
	s.extractor = graph.NewExtractor(s.registry)
	return s, nil
}

// NewFromConfig creates a session from configuration. Options are applied
// after the configured values.
func NewFromConfig(cfg Config, opts ...Option) (*Seeder, error) {
	return New(reconcile.Policy(cfg.Policy), append([]Option{WithMaxKeyAttempts(cfg.MaxKeyAttempts)}, opts...)...)
}

// Policy returns the active collision policy.
func (s *Seeder) Policy() reconcile.Policy {
	return s.policy
}

// SetPolicy changes the collision policy for subsequent applies.
func (s *Seeder) SetPolicy(policy reconcile.Policy) error {
	p, err := reconcile.ParsePolicy(string(policy))
	if err != nil {
		return err
	}
	s.policy = p
	return nil
}

// Converters returns the session's converter set. Converters registered on it
// apply to later registrations and extractions.
func (s *Seeder) Converters() *graph.Converters {
	return s.converters
}

// Registry returns the underlying registry.
func (s *Seeder) Registry() *graph.Registry {
	return s.registry
}

// Register adds entity and everything reachable from it, filling foreign keys
// along the way.
func (s *Seeder) Register(entity any) error {
	return s.registry.Register(entity)
}

// RegisterAll registers each entity in order.
func (s *Seeder) RegisterAll(entities ...any) error {
	return s.registry.RegisterAll(entities...)
}

// Get returns the registered entities of type t.
func (s *Seeder) Get(t reflect.Type) []any {
	return s.registry.Get(t)
}

// Len returns the number of registered entities.
func (s *Seeder) Len() int {
	return s.registry.Len()
}

// Clear empties the session.
func (s *Seeder) Clear() {
	s.registry.Clear()
}

// FieldMaps returns the relation-free records of every registered entity of type t.
func (s *Seeder) FieldMaps(t reflect.Type) ([]graph.Record, error) {
	return s.extractor.FieldMaps(t)
}

// Materialize returns fresh relation-free copies of every registered entity
// of type t as a []*T.
func (s *Seeder) Materialize(t reflect.Type) (any, error) {
	return s.extractor.Materialize(t)
}

// PlanStore reconciles the session against store without writing.
func (s *Seeder) PlanStore(ctx context.Context, store reconcile.Store) (*reconcile.Plan, error) {
	return reconcile.PlanStore(ctx, s.spec(), store)
}

// ApplyToStore reconciles the session against store and writes the result.
func (s *Seeder) ApplyToStore(ctx context.Context, store reconcile.Store) (*reconcile.Plan, error) {
	plan, executed, err := reconcile.ApplyToStore(ctx, s.spec(), store)
	if err != nil {
		return plan, err
	}
	s.log.Info("Applied seed data to store",
		zap.String("policy", string(s.policy)),
		zap.Int("executed", executed),
		zap.Int("entities", plan.Summary.Entities),
	)
	return plan, nil
}

// PlanSink groups the session for a declarative sink without delivering.
func (s *Seeder) PlanSink() (*reconcile.Plan, error) {
	return reconcile.PlanSink(s.spec())
}

// ApplyToSink hands one materialized batch per type to sink.
func (s *Seeder) ApplyToSink(ctx context.Context, sink reconcile.Sink) (*reconcile.Plan, error) {
	plan, delivered, err := reconcile.ApplyToSink(ctx, s.spec(), sink)
	if err != nil {
		return plan, err
	}
	s.log.Info("Delivered seed batches",
		zap.String("policy", string(s.policy)),
		zap.Int("batches", delivered),
		zap.Int("entities", plan.Summary.Entities),
	)
	return plan, nil
}

func (s *Seeder) spec() *reconcile.Spec {
	return &reconcile.Spec{
		Registry:       s.registry,
		Policy:         s.policy,
		MaxKeyAttempts: s.maxKeyAttempts,
		Logger:         s.log,
	}
}

// All returns the registered entities of type T.
func All[T any](s *Seeder) []*T {
	return graph.All[T](s.registry)
}

// MaterializeOf returns fresh relation-free copies of the registered entities of type T.
func MaterializeOf[T any](s *Seeder) ([]*T, error) {
	return graph.MaterializeOf[T](s.extractor)
}
