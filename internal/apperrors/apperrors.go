package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports input that is out of range or malformed.
// The message is safe to surface verbatim to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidTransitionError reports a state machine precondition violation:
// the requested action is not legal from the entity's current state.
type InvalidTransitionError struct {
	CurrentState string
	Action       string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %q", e.Action, e.CurrentState)
}

func InvalidTransition(currentState, action string) error {
	return &InvalidTransitionError{CurrentState: currentState, Action: action}
}

// NotFoundError reports a missing driver, rule or log entry.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// StorageError wraps an underlying persistence failure. Reads may be retried
// once; writes are never retried to avoid duplicate audit entries.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ConflictError reports a concurrent modification detected via a version
// check. The caller must re-fetch and retry.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}

func Conflict(entity, id string) error {
	return &ConflictError{Entity: entity, ID: id}
}

// HTTPStatus maps a service error to the status code the gateway responds with.
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		transitionErr *InvalidTransitionError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &transitionErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
