package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for reconciliation.
var (
	// ErrKeyCollision is returned under the halt policy when two records share
	// a key but differ in at least one field.
	ErrKeyCollision = errors.New("reconcile: key collision")

	// ErrKeySynthesisExhausted is returned when no free key was found within
	// the attempt bound.
	ErrKeySynthesisExhausted = errors.New("reconcile: key synthesis exhausted")

	// ErrUnknownPolicy is returned when parsing an unrecognised policy name.
	ErrUnknownPolicy = errors.New("reconcile: unknown policy")

	// ErrStore is matched by every StoreError.
	ErrStore = errors.New("reconcile: store fault")

	// ErrDuplicateTypeName is returned when two registered types share a name,
	// so their sink batches would land in the same seed file.
	ErrDuplicateTypeName = errors.New("reconcile: duplicate type name")
)

// KeyCollisionError reports a divergent-payload collision.
type KeyCollisionError struct {
	Type string
	Key  any
	Diff []string
}

// Error returns the error string.
func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("reconcile: key collision on %s with key %v: %s", e.Type, e.Key, strings.Join(e.Diff, "; "))
}

// Is reports whether the target error matches ErrKeyCollision.
func (e *KeyCollisionError) Is(err error) bool {
	return err == ErrKeyCollision
}

// IsKeyCollision returns true if the error is a KeyCollisionError.
func IsKeyCollision(err error) bool {
	if err == nil {
		return false
	}
	var e *KeyCollisionError
	return errors.As(err, &e) || errors.Is(err, ErrKeyCollision)
}

// KeySynthesisError reports that no unused key could be generated.
type KeySynthesisError struct {
	Type     string
	Key      any
	Attempts int
	Err      error
}

// Error returns the error string.
func (e *KeySynthesisError) Error() string {
	msg := fmt.Sprintf("reconcile: no free key for %s after %d attempts starting from %v", e.Type, e.Attempts, e.Key)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether the target error matches ErrKeySynthesisExhausted.
func (e *KeySynthesisError) Is(err error) bool {
	return err == ErrKeySynthesisExhausted
}

// Unwrap returns the underlying cause, if any.
func (e *KeySynthesisError) Unwrap() error {
	return e.Err
}

// IsKeySynthesisExhausted returns true if the error is a KeySynthesisError.
func IsKeySynthesisExhausted(err error) bool {
	if err == nil {
		return false
	}
	var e *KeySynthesisError
	return errors.As(err, &e) || errors.Is(err, ErrKeySynthesisExhausted)
}

// StoreError wraps a fault raised by a store or sink with the type it was
// handling. The cause is not reinterpreted.
type StoreError struct {
	Type string
	Op   string
	Err  error
}

// Error returns the error string.
func (e *StoreError) Error() string {
	return fmt.Sprintf("reconcile: %s %s: %v", e.Op, e.Type, e.Err)
}

// Is reports whether the target error matches ErrStore.
func (e *StoreError) Is(err error) bool {
	return err == ErrStore
}

// Unwrap returns the store's error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ApplyError wraps a per-entity fault with the entity's type name.
type ApplyError struct {
	Type string
	Err  error
}

// Error returns the error string.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("reconcile: %s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ApplyError) Unwrap() error {
	return e.Err
}
