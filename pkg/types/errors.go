package types

import (
	"errors"
	"fmt"
)

// Entity and schema errors.
var (
	ErrValidation         = errors.New("validation error")
	ErrUniquenessConflict = errors.New("uniqueness conflict")
	ErrNotFound           = errors.New("entity not found")
	ErrConfiguration      = errors.New("configuration error")
	ErrMultipleResults    = errors.New("multiple entities matched")
	ErrUnsupported        = errors.New("operation not supported by backend")
	ErrUnknownField       = errors.New("unknown field")
	ErrUnknownKind        = errors.New("unknown kind")
	ErrKindExists         = errors.New("kind already registered")
	ErrFieldBound         = errors.New("field already bound to a name")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidOperator    = errors.New("invalid filter operator")
)

// Backend lifecycle errors.
var (
	ErrDetached        = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrNoConnection    = errors.New("no default connection")
	ErrStoreLocked     = errors.New("store is locked by another process")
)

// ValidationError reports a value that does not satisfy a field's type
// contract.
type ValidationError struct {
	Kind     string
	Field    string
	Expected string
	Got      any
}

func (e *ValidationError) Error() string {
	name := e.Field
	if e.Kind != "" {
		name = e.Kind + "." + e.Field
	}
	return fmt.Sprintf("validation error: field %q must be of type %s but %T received", name, e.Expected, e.Got)
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UniquenessConflictError wraps the backend error raised when a value of a
// unique field collides with an existing record.
type UniquenessConflictError struct {
	Kind string
	Err  error
}

func (e *UniquenessConflictError) Error() string {
	return fmt.Sprintf("uniqueness conflict on %s: %v", e.Kind, e.Err)
}

func (e *UniquenessConflictError) Is(target error) bool {
	return target == ErrUniquenessConflict
}

func (e *UniquenessConflictError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a lookup matches no record. Every kind owns
// exactly one NotFoundError value (see Kind.ErrNotFound), so callers can
// discriminate by kind with errors.Is.
type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("desired entity %q doesn't exist", e.Kind)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConfigurationError reports a schema misuse detected at persist time, such
// as a custom identity field left unset.
type ConfigurationError struct {
	Kind   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error on %s: %s", e.Kind, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// MultipleResultsError is returned by single-entity lookups that match more
// than one record.
type MultipleResultsError struct {
	Kind string
}

func (e *MultipleResultsError) Error() string {
	return fmt.Sprintf("more than one %q entity matched", e.Kind)
}

func (e *MultipleResultsError) Is(target error) bool {
	return target == ErrMultipleResults
}
