package entity

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the workflow engine. Typed errors below wrap one of these,
// so callers can use errors.Is for the kind and errors.As for the offending field or state.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidState      = errors.New("operation not allowed in current status")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage failure")

	// ErrVersionConflict is returned by a store when the collection changed since it was loaded
	ErrVersionConflict = errors.New("collection version conflict")
)

// ValidationError reports malformed or missing input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InvalidStateError reports an operation that is only legal in another status (e.g. editing a non-draft)
type InvalidStateError struct {
	Status    Status
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%v: cannot %s a workflow in status %s", ErrInvalidState, e.Operation, e.Status)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// InvalidTransitionError reports a state machine guard failure
type InvalidTransitionError struct {
	From  Status
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%v: event %s not permitted from status %s", ErrInvalidTransition, e.Event, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// UnauthorizedError reports an actor lacking the capability an operation requires
type UnauthorizedError struct {
	Operation string
	Required  string
	Actual    Role
}

func (e *UnauthorizedError) Error() string {
	actual := string(e.Actual)
	if actual == "" {
		actual = "none"
	}
	return fmt.Sprintf("%v: %s requires %s, actor has %s", ErrUnauthorized, e.Operation, e.Required, actual)
}

func (e *UnauthorizedError) Unwrap() error {
	return ErrUnauthorized
}

// Kinds of record a NotFoundError can refer to
const (
	KindWorkflow = "workflow"
	KindUser     = "user"
)

// NotFoundError reports a referenced id that does not exist. Kind defaults to KindWorkflow.
type NotFoundError struct {
	Kind string
	ID   string
}

// Resource returns the kind of record that was missing
func (e *NotFoundError) Resource() string {
	if e.Kind == "" {
		return KindWorkflow
	}
	return e.Kind
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Resource(), ErrNotFound, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StorageError wraps a persistence gateway failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%v during %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NewStorageError wraps err unless it already is a storage error
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState checks if an error is an InvalidStateError
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsInvalidTransition checks if an error is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsUnauthorized checks if an error is an UnauthorizedError
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStorage checks if an error is a StorageError
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsVersionConflict checks if an error is a concurrent-write conflict
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
