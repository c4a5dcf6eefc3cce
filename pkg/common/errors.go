package common

import (
	"errors"
	"fmt"
)

// Error kinds reported on the wire in the "error" field
const (
	KindValidation        = "ValidationError"
	KindAccessDenied      = "AccessDenied"
	KindNotFound          = "NotFound"
	KindIntegrityConflict = "IntegrityConflict"
	KindConflict          = "Conflict"
	KindInternal          = "InternalError"
)

// MsgNothingToDelete is the NotFound message for a delete that matched no rows
const MsgNothingToDelete = "Nothing to delete"

// ValidationError is returned for malformed restrictions, unknown attributes and bad paging
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AccessDeniedError is returned when the store refuses the caller's credentials for a table
type AccessDeniedError struct {
	Schema string
	Table  string
	Err    error
}

func (e *AccessDeniedError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("access denied to %s.%s: %v", e.Schema, e.Table, e.Err)
	}
	return fmt.Sprintf("access denied: %v", e.Err)
}

func (e *AccessDeniedError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a schema, table or row set does not exist
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// IntegrityConflictError is returned when a non-cascading delete is blocked by a referencing row.
// ChildSchema and ChildTable name the referencing table when the store reports it.
type IntegrityConflictError struct {
	ChildSchema string
	ChildTable  string
	Message     string
	Err         error
}

func (e *IntegrityConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("rows are referenced by %s.%s", e.ChildSchema, e.ChildTable)
}

func (e *IntegrityConflictError) Unwrap() error {
	return e.Err
}

// ConflictError wraps serialization failures and deadlocks. Retryable errors may be
// re-issued by the caller unchanged.
type ConflictError struct {
	Retryable bool
	Err       error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// InternalError wraps any other failure from the store
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// NewInternalError wraps err unless it already belongs to the taxonomy
func NewInternalError(op string, err error) error {
	if err == nil || Kind(err) != KindInternal {
		return err
	}
	var internal *InternalError
	if errors.As(err, &internal) {
		return err
	}
	return &InternalError{Op: op, Err: err}
}

// Kind classifies err into one of the wire error kinds
func Kind(err error) string {
	var (
		validation *ValidationError
		denied     *AccessDeniedError
		notFound   *NotFoundError
		integrity  *IntegrityConflictError
		conflict   *ConflictError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &denied):
		return KindAccessDenied
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &integrity):
		return KindIntegrityConflict
	case errors.As(err, &conflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsAccessDenied reports whether err is an AccessDeniedError
func IsAccessDenied(err error) bool {
	var denied *AccessDeniedError
	return errors.As(err, &denied)
}

// IsRetryable reports whether err is a retryable transaction conflict
func IsRetryable(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Retryable
}
