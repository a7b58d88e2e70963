package reconcile

import (
	"fmt"
	"reflect"
	"strings"

	"seedgraph/core/graph"

	"go.uber.org/zap"
)

// Policy selects how key collisions are resolved.
type Policy string

const (
	// PolicyHalt fails on any collision whose payloads differ.
	PolicyHalt Policy = "halt"
	// PolicyMerge lets the incoming record overwrite the earlier or stored one.
	PolicyMerge Policy = "merge"
	// PolicySkip keeps whichever record was present first.
	PolicySkip Policy = "skip"
	// PolicyAlwaysAdd gives the incoming record a fresh key.
	PolicyAlwaysAdd Policy = "always_add"
)

// Policies lists every supported policy.
var Policies = []Policy{PolicyHalt, PolicyMerge, PolicySkip, PolicyAlwaysAdd}

// ParsePolicy resolves a policy name. Matching ignores case, and "-" or
// spaces may stand in for "_".
func ParsePolicy(s string) (Policy, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch Policy(norm) {
	case PolicyHalt, PolicyMerge, PolicySkip, PolicyAlwaysAdd:
		return Policy(norm), nil
	case "alwaysadd":
		return PolicyAlwaysAdd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Valid reports whether p is a supported policy.
func (p Policy) Valid() bool {
	_, err := ParsePolicy(string(p))
	return err == nil
}

// Mode is the collision source a plan was built against.
type Mode string

const (
	// ModeStore plans against a live store that can be probed for keys.
	ModeStore Mode = "store"
	// ModeSink plans against a declarative sink; only intra-batch grouping applies.
	ModeSink Mode = "sink"
)

// ActionType represents the type of planned operation.
type ActionType string

const (
	// ActionInsert adds a new record.
	ActionInsert ActionType = "insert"
	// ActionOverwrite replaces the scalar fields of an existing record.
	ActionOverwrite ActionType = "overwrite"
	// ActionSkip drops the entity, leaving the earlier or stored record untouched.
	ActionSkip ActionType = "skip"
	// ActionUnchanged marks an entity identical to the record it collided with.
	ActionUnchanged ActionType = "unchanged"
)

// Action represents one planned operation for a registered entity.
type Action struct {
	// Type specifies the operation to perform.
	Type ActionType `json:"type"`

	// TypeName is the entity type name.
	TypeName string `json:"type_name"`

	// Handle is the registry handle of the source entity.
	Handle int `json:"handle"`

	// Key is the primary key the record is written with.
	Key any `json:"key"`

	// PreviousKey is set when the key was synthesized; it holds the original key.
	PreviousKey any `json:"previous_key,omitempty"`

	// Reason explains why this action was chosen.
	Reason string `json:"reason"`

	// Diff lists differing fields for overwrites.
	Diff []string `json:"diff,omitempty"`

	// EntityType is the entity pointer type.
	EntityType reflect.Type `json:"-"`

	// Record is the materialized, relation-free copy to write.
	// Populated in store mode only.
	Record any `json:"-"`

	// Source is the registered entity.
	Source any `json:"-"`
}

// Rekeyed reports whether the action carries a synthesized key.
func (a Action) Rekeyed() bool {
	return a.PreviousKey != nil
}

// Plan contains the planned actions of one reconciliation run.
type Plan struct {
	// Mode is the collision source the plan was built against.
	Mode Mode `json:"mode"`

	// Policy is the collision policy in effect.
	Policy Policy `json:"policy"`

	// Types lists the planned type names in apply order.
	Types []string `json:"types"`

	// Actions contains planned operations grouped by type in apply order.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// ActionsFor returns the actions planned for the named type.
func (p *Plan) ActionsFor(typeName string) []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.TypeName == typeName {
			out = append(out, a)
		}
	}
	return out
}

// PlanSummary provides aggregate statistics for a plan.
type PlanSummary struct {
	// Entities is the number of registered entities considered.
	Entities int `json:"entities"`

	// Inserts counts planned inserts, rekeyed ones included.
	Inserts int `json:"inserts"`

	// Overwrites counts planned overwrites.
	Overwrites int `json:"overwrites"`

	// Skips counts dropped entities.
	Skips int `json:"skips"`

	// Unchanged counts identical-payload collisions.
	Unchanged int `json:"unchanged"`

	// Rekeyed counts inserts with a synthesized key.
	Rekeyed int `json:"rekeyed"`

	// Collisions counts entities whose key was already taken in this run or in the store.
	Collisions int `json:"collisions"`

	// SkippedTypes lists types the store does not accept.
	SkippedTypes []string `json:"skipped_types,omitempty"`
}

func (s *PlanSummary) count(a Action) {
	switch a.Type {
	case ActionInsert:
		s.Inserts++
		if a.Rekeyed() {
			s.Rekeyed++
		}
	case ActionOverwrite:
		s.Overwrites++
	case ActionSkip:
		s.Skips++
	case ActionUnchanged:
		s.Unchanged++
	}
}

// Spec defines the inputs of a reconciliation run.
type Spec struct {
	// Registry holds the scanned entity graph.
	Registry *graph.Registry

	// Policy selects collision handling. Empty means PolicyHalt.
	Policy Policy

	// MaxKeyAttempts bounds key synthesis. Zero means DefaultMaxKeyAttempts.
	MaxKeyAttempts int

	// Logger receives plan summaries and warnings. Nil means no logging.
	Logger *zap.Logger
}

// DefaultMaxKeyAttempts is the key synthesis bound used when none is set.
const DefaultMaxKeyAttempts = 100

func (s *Spec) validate() error {
	if s == nil || s.Registry == nil {
		return graph.ErrNilArgument
	}
	if s.Policy != "" && !s.Policy.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, s.Policy)
	}
	return nil
}

func (s *Spec) policy() Policy {
	if s.Policy == "" {
		return PolicyHalt
	}
	p, _ := ParsePolicy(string(s.Policy))
	return p
}

func (s *Spec) attempts() int {
	if s.MaxKeyAttempts <= 0 {
		return DefaultMaxKeyAttempts
	}
	return s.MaxKeyAttempts
}

func (s *Spec) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
