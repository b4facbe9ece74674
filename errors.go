package eagerlimit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/eagerlimit/dialect"
	"github.com/syssam/eagerlimit/dialect/sql"
	"github.com/syssam/eagerlimit/dialect/sql/sqlgraph"
)

// Sentinel errors of the lower layers, re-exported for errors.Is checks.
var (
	// ErrUnsupportedDialect is matched by every UnsupportedDialectError.
	ErrUnsupportedDialect = dialect.ErrUnsupportedDialect

	// ErrInvalidEagerLimit is matched by every invalid eager limit.
	ErrInvalidEagerLimit = sql.ErrInvalidEagerLimit

	// ErrInvalidRelation is matched by every invalid relation spec.
	ErrInvalidRelation = sqlgraph.ErrInvalidRelation

	// ErrNotLoaded is returned when reading a relation that was not
	// loaded for a parent.
	ErrNotLoaded = errors.New("eagerlimit: relation not loaded")
)

// UnsupportedDialectError is returned when a driver name has no matching
// engine family.
type UnsupportedDialectError = dialect.UnsupportedDialectError

// IsUnsupportedDialect returns true if the error is an UnsupportedDialectError.
func IsUnsupportedDialect(err error) bool {
	return dialect.IsUnsupportedDialect(err)
}

// NotLoadedError represents an error when attempting to access a relation
// that was not eager-loaded.
type NotLoadedError struct {
	relation string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("eagerlimit: relation %q was not loaded", e.relation)
}

// Is reports whether the target is ErrNotLoaded.
func (e *NotLoadedError) Is(err error) bool {
	return err == ErrNotLoaded
}

// NewNotLoadedError returns a new NotLoadedError for the given relation name.
func NewNotLoadedError(relation string) *NotLoadedError {
	return &NotLoadedError{relation: relation}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// ValidationError represents a validation error of a configuration field.
type ValidationError struct {
	Name string // Field name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("eagerlimit: validator failed for field %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "eagerlimit: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("eagerlimit: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// QueryError wraps a failed relation load with the relation it was
// loading.
type QueryError struct {
	Relation string // Relation shape, e.g. "has-many"
	Table    string // Related table
	Dialect  string // Dialect the statement was compiled for
	Err      error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("eagerlimit: loading %s %s (%s): %v", e.Relation, e.Table, e.Dialect, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(rel *sqlgraph.Relation, dialect string, err error) *QueryError {
	return &QueryError{Relation: rel.Shape().String(), Table: rel.Spec().Related, Dialect: dialect, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}
