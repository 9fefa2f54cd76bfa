package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrEntityNotFound       = errors.New("entity not found")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrStoreClosed          = errors.New("store is closed")
	ErrInvalidEntity        = errors.New("invalid entity")
	ErrInvalidRelationship  = errors.New("invalid relationship")
)

// StorageError provides structured error information for store operations.
type StorageError struct {
	Op      string // Operation that failed (e.g., "GetEntity", "ListRelationships")
	Entity  string // "entity" or "relationship"
	ID      string
	Cause   error
	Context string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	switch {
	case e.ID != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Entity sets the subject to "entity" with the given ID.
func (b *ErrorBuilder) Entity(id string) *ErrorBuilder {
	b.err.Entity = "entity"
	b.err.ID = id
	return b
}

// Relationship sets the subject to "relationship" with the given ID.
func (b *ErrorBuilder) Relationship(id string) *ErrorBuilder {
	b.err.Entity = "relationship"
	b.err.ID = id
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// EntityNotFoundError creates an entity not found error.
func EntityNotFoundError(id string) error {
	return NewError("get").Entity(id).Cause(ErrEntityNotFound).Err()
}

// UnavailableError wraps a backend failure so callers can classify it as
// transient.
func UnavailableError(op, subject string, cause error) error {
	return &StorageError{
		Op:     op,
		Entity: subject,
		Cause:  fmt.Errorf("%w: %v", ErrStoreUnavailable, cause),
	}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) || errors.Is(err, ErrRelationshipNotFound)
}

// IsUnavailable returns true if the store could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrStoreClosed)
}

func wrapCause(sentinel, err error) error {
	return fmt.Errorf("%w: %v", sentinel, err)
}
