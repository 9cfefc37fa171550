package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports one or more field values that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid field(s): " + strings.Join(e.Fields, ", ")
}

// NewValidationError builds a ValidationError for the named fields.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NotFoundError reports a lookup by an unknown id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// EmptySelectionError reports a restock submission with zero line items.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string {
	return "at least one medicine must be selected"
}

// InvalidTransitionError reports a status change that is not the immediate
// successor of the current status. The request is left unchanged.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move request from %s to %s", e.From, e.To)
}

// StorageError wraps a store I/O failure. No record is partially written
// when one is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
