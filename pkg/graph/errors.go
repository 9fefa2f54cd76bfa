package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Kind classifies engine errors for callers. NotFound and InvalidArgument are
// permanent; Unavailable and Timeout are transient.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidArgument
	KindUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Sentinel errors, one per kind.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("unavailable")
	ErrTimeout         = errors.New("partial results not available: computation timed out")
)

// Error is the structured error returned by the index, algorithms and engine.
type Error struct {
	Op      string // e.g. "chains", "impact"
	Kind    Kind
	ID      string // entity id, when the error concerns one
	Cause   error
	Context string
}

func (e *Error) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrTimeout)
// holds for any timeout regardless of cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError starts an error for the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op}}
}

func (b *ErrorBuilder) Entity(id string) *ErrorBuilder {
	b.err.ID = id
	return b
}

func (b *ErrorBuilder) Kind(k Kind) *ErrorBuilder {
	b.err.Kind = k
	return b
}

func (b *ErrorBuilder) Context(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

func (b *ErrorBuilder) Err() error {
	e := b.err
	return &e
}

// NotFound reports an unknown entity id.
func NotFound(op, id string) error {
	return NewError(op).Entity(id).Kind(KindNotFound).Cause(ErrNotFound).Err()
}

// InvalidArgument reports a malformed request.
func InvalidArgument(op, format string, args ...any) error {
	return NewError(op).Kind(KindInvalidArgument).Cause(fmt.Errorf(format, args...)).Err()
}

// Timeout reports a computation that exceeded its bound.
func Timeout(op string, cause error) error {
	return NewError(op).Kind(KindTimeout).Cause(cause).Err()
}

// FromContext converts a context error into a Timeout. It returns nil when
// err is nil.
func FromContext(op string, err error) error {
	if err == nil {
		return nil
	}
	return Timeout(op, err)
}

// FromStore classifies an error from the entity or relationship store.
func FromStore(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case storage.IsNotFound(err):
		return NewError(op).Kind(KindNotFound).Cause(err).Err()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Timeout(op, err)
	default:
		return NewError(op).Kind(KindUnavailable).Cause(err).Err()
	}
}

// KindOf returns the classification of err. Context errors classify as
// Timeout; anything unrecognised is Internal.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	case storage.IsNotFound(err):
		return KindNotFound
	case storage.IsUnavailable(err):
		return KindUnavailable
	}
	return KindInternal
}

// IsRetryable reports whether a caller may retry err with backoff.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindUnavailable, KindTimeout:
		return true
	}
	return false
}

// IsNotFound is shorthand for KindOf(err) == KindNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
