package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Ledger and repository sentinels. Repositories wrap them with %w so the CLI
// and the ops handlers can branch with errors.Is without knowing which table
// a record lives in.
var (
	// ErrNotFound: the record (or the ledger entry it points at) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists: an active record already holds the unique key, such as
	// a tag name or a designated channel.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation: a draft was rejected before any ledger entry was written.
	ErrValidation = errors.New("validation error")
	// ErrConflict: a concurrent moderator won the transition, or a coordinated
	// action is already in flight for the same subject.
	ErrConflict = errors.New("conflict")
)

// FieldError names one rejected field of a draft.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every rejected field of a draft so a moderator
// sees all problems in one reply. It unwraps to ErrValidation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	fields := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		fields[i] = fe.Field
	}
	return fmt.Sprintf("validation: %d errors (%s)", len(e.Errors), strings.Join(fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError rejects a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors wraps the field errors gathered by a Validate method.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
