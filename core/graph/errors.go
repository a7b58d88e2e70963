package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrNilArgument is returned when a required entity is nil.
	ErrNilArgument = errors.New("graph: nil argument")

	// ErrUnsupportedEntity is returned when a value is not a pointer to a struct.
	ErrUnsupportedEntity = errors.New("graph: entity must be a non-nil pointer to a struct")

	// ErrPrimaryKeyNotFound is returned when a type has no primary-key field.
	ErrPrimaryKeyNotFound = errors.New("graph: primary key not found")

	// ErrFieldAssignment is returned when a discovered field cannot be written.
	ErrFieldAssignment = errors.New("graph: field assignment failed")
)

// PrimaryKeyNotFoundError reports a type without a field matching the
// primary-key convention.
type PrimaryKeyNotFoundError struct {
	Type string
}

// Error returns the error string.
func (e *PrimaryKeyNotFoundError) Error() string {
	return fmt.Sprintf("graph: primary key not found on %s (expected Id, %sId or a seed:\"pk\" tag)", e.Type, e.Type)
}

// Is reports whether the target error matches ErrPrimaryKeyNotFound.
func (e *PrimaryKeyNotFoundError) Is(err error) bool {
	return err == ErrPrimaryKeyNotFound
}

// IsPrimaryKeyNotFound returns true if the error is a PrimaryKeyNotFoundError.
func IsPrimaryKeyNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *PrimaryKeyNotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrPrimaryKeyNotFound)
}

// FieldAssignmentError reports a field that could not be written.
type FieldAssignmentError struct {
	Type  string
	Field string
	Err   error
}

// Error returns the error string.
func (e *FieldAssignmentError) Error() string {
	return fmt.Sprintf("graph: cannot assign %s.%s: %v", e.Type, e.Field, e.Err)
}

// Is reports whether the target error matches ErrFieldAssignment.
func (e *FieldAssignmentError) Is(err error) bool {
	return err == ErrFieldAssignment
}

// Unwrap returns the underlying cause.
func (e *FieldAssignmentError) Unwrap() error {
	return e.Err
}

// IsFieldAssignment returns true if the error is a FieldAssignmentError.
func IsFieldAssignment(err error) bool {
	if err == nil {
		return false
	}
	var e *FieldAssignmentError
	return errors.As(err, &e) || errors.Is(err, ErrFieldAssignment)
}
