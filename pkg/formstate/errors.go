package formstate

import (
	"errors"
	"fmt"
)

// Sentinel errors for form and field usage.
var (
	// ErrDestroyed indicates an operation on a destroyed form or field.
	ErrDestroyed = errors.New("destroyed")

	// ErrFieldExists indicates RegisterField was called with a name that is
	// already registered.
	ErrFieldExists = errors.New("field already exists")

	// ErrFieldNotFound indicates a field name that is not registered.
	ErrFieldNotFound = errors.New("field not found")

	// ErrFieldNameRequired indicates a field config without a name.
	ErrFieldNameRequired = errors.New("field name is required")

	// ErrNilForm indicates NewField was called without a form.
	ErrNilForm = errors.New("form cannot be nil")

	// ErrSnapshotMismatch indicates a snapshot taken from a different form.
	ErrSnapshotMismatch = errors.New("snapshot belongs to another form")
)

// FieldError wraps an error with field context.
type FieldError struct {
	// Field is the field name.
	Field string
	// Op is the operation that failed ("set value", "register", ...).
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s: %v", e.Field, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// FormError wraps an error with form context.
type FormError struct {
	// FormID is the form identifier.
	FormID string
	// Op is the operation that failed.
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FormError) Error() string {
	return fmt.Sprintf("form %s: %s: %v", e.FormID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FormError) Unwrap() error {
	return e.Err
}

func fieldErr(name, op string, err error) error {
	return &FieldError{Field: name, Op: op, Err: err}
}

func formErr(id, op string, err error) error {
	return &FormError{FormID: id, Op: op, Err: err}
}
