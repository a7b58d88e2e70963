package reconcile

import (
	"context"
	"fmt"
	"reflect"

	"seedgraph/core/utils"

	"github.com/google/uuid"
)

var (
	uuidType = reflect.TypeOf(uuid.UUID{})

	basicInts = map[reflect.Kind]reflect.Type{
		reflect.Int:    reflect.TypeOf(int(0)),
		reflect.Int8:   reflect.TypeOf(int8(0)),
		reflect.Int16:  reflect.TypeOf(int16(0)),
		reflect.Int32:  reflect.TypeOf(int32(0)),
		reflect.Int64:  reflect.TypeOf(int64(0)),
		reflect.Uint:   reflect.TypeOf(uint(0)),
		reflect.Uint8:  reflect.TypeOf(uint8(0)),
		reflect.Uint16: reflect.TypeOf(uint16(0)),
		reflect.Uint32: reflect.TypeOf(uint32(0)),
		reflect.Uint64: reflect.TypeOf(uint64(0)),
	}
)

// keyGenerator yields candidate replacement keys for one colliding key.
type keyGenerator func(attempt int) (any, error)

// generatorFor picks the strategy for key's type: integers count up from
// key, UUIDs are regenerated and strings become fresh UUID strings.
func generatorFor(key any) (keyGenerator, error) {
	if key == nil {
		return nil, fmt.Errorf("cannot synthesize from a nil key")
	}
	rv := reflect.ValueOf(key)
	t := rv.Type()

	switch {
	case t == uuidType:
		return func(int) (any, error) { return uuid.New(), nil }, nil
	case t.Kind() == reflect.String:
		return func(int) (any, error) {
			return reflect.ValueOf(uuid.NewString()).Convert(t).Interface(), nil
		}, nil
	}

	basic, ok := basicInts[t.Kind()]
	if !ok {
		return nil, fmt.Errorf("unsupported key type %s", t)
	}
	base := rv.Convert(basic).Interface()
	return func(attempt int) (any, error) {
		next, err := utils.Increment(base, int64(attempt))
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(next).Convert(t).Interface(), nil
	}, nil
}

// synthesizeKey probes for a key of type t that is not taken in this run, not
// reserved by another registered entity and not present in store. store may
// be nil for sink-side callers.
func synthesizeKey(ctx context.Context, store Store, t reflect.Type, typeName string, key any, taken map[any]int, reserved map[any]struct{}, attempts int) (any, error) {
	gen, err := generatorFor(key)
	if err != nil {
		return nil, &KeySynthesisError{Type: typeName, Key: key, Err: err}
	}

	for i := 1; i <= attempts; i++ {
		candidate, err := gen(i)
		if err != nil {
			return nil, &KeySynthesisError{Type: typeName, Key: key, Attempts: i, Err: err}
		}
		if _, used := taken[candidate]; used {
			continue
		}
		if _, owned := reserved[candidate]; owned {
			continue
		}
		if store != nil {
			existing, err := store.Find(ctx, t, candidate)
			if err != nil {
				return nil, &StoreError{Type: typeName, Op: "find", Err: err}
			}
			if present(existing) {
				continue
			}
		}
		return candidate, nil
	}
	return nil, &KeySynthesisError{Type: typeName, Key: key, Attempts: attempts}
}
