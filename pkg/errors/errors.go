package errors

import (
	"errors"
	"fmt"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates a record failed its schema
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainNotFoundError indicates an operation targeted a missing id
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainPersistenceError indicates a storage I/O failure
	DomainPersistenceError DomainErrorType = "PERSISTENCE_ERROR"

	// DomainMigrationError indicates a schema migration could not be resolved or applied
	DomainMigrationError DomainErrorType = "MIGRATION_ERROR"

	// DomainStateError indicates the engine is not in a state that allows the operation
	DomainStateError DomainErrorType = "STATE_ERROR"

	// DomainUnsupportedError indicates an unsupported option such as an export format
	DomainUnsupportedError DomainErrorType = "UNSUPPORTED_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type      DomainErrorType        `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Clone returns a copy that can be enriched without touching the original.
// Predefined errors must be cloned before WithDetail or WithCause.
func (e *DomainError) Clone() *DomainError {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithMessage replaces the human readable message
func (e *DomainError) WithMessage(message string) *DomainError {
	e.Message = message
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Type == t.Type
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Field returns the offending field recorded on a validation error, if any.
func (e *DomainError) Field() string {
	field, _ := e.Details["field"].(string)
	return field
}

// Constraint returns the violated constraint recorded on a validation error, if any.
func (e *DomainError) Constraint() string {
	constraint, _ := e.Details["constraint"].(string)
	return constraint
}

// NewFieldError builds a validation failure naming the field and the violated constraint.
func NewFieldError(field, constraint, message string) *DomainError {
	return NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field).
		WithDetail("constraint", constraint)
}

// NewPersistenceError wraps an adapter I/O failure.
func NewPersistenceError(backend, operation string, cause error) *DomainError {
	return NewDomainError(DomainPersistenceError, "PERSISTENCE_FAILED",
		fmt.Sprintf("%s %s failed", backend, operation)).
		WithDetail("backend", backend).
		WithDetail("operation", operation).
		WithCause(cause).
		WithRetryable(true)
}

var (
	ErrNoActiveGraph = NewDomainError(
		DomainStateError,
		"NO_ACTIVE_GRAPH",
		"No graph is loaded",
	)

	ErrGraphNotFound = NewDomainError(
		DomainNotFoundError,
		"GRAPH_NOT_FOUND",
		"The requested graph does not exist",
	)

	ErrNodeNotFound = NewDomainError(
		DomainNotFoundError,
		"NODE_NOT_FOUND",
		"The requested node does not exist",
	)

	ErrKindImmutable = NewDomainError(
		DomainValidationError,
		"KIND_IMMUTABLE",
		"Node kind cannot change after creation",
	).WithDetail("field", "kind").WithDetail("constraint", "immutable")

	ErrDuplicateNode = NewDomainError(
		DomainConflictError,
		"DUPLICATE_NODE",
		"A node with this id already exists",
	)

	ErrDuplicateRelationship = NewDomainError(
		DomainConflictError,
		"DUPLICATE_RELATIONSHIP",
		"A relationship with this id already exists",
	)

	ErrNoMigrationPath = NewDomainError(
		DomainMigrationError,
		"NO_MIGRATION_PATH",
		"no migration path",
	)

	ErrMigrationPathTooLong = NewDomainError(
		DomainMigrationError,
		"MIGRATION_PATH_TOO_LONG",
		"migration path too long",
	)

	ErrMigrationConflict = NewDomainError(
		DomainMigrationError,
		"MIGRATION_CONFLICT",
		"A migration from this version is already registered",
	)

	ErrMigrationFailed = NewDomainError(
		DomainMigrationError,
		"MIGRATION_FAILED",
		"Migration step failed",
	)

	ErrUnsupportedFormat = NewDomainError(
		DomainUnsupportedError,
		"UNSUPPORTED_FORMAT",
		"unsupported format",
	)
)

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error for a field and constraint
func (v *ValidationErrors) Add(field, constraint, message string) {
	v.Errors = append(v.Errors, NewFieldError(field, constraint, message))
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// First returns the first recorded failure or nil.
func (v *ValidationErrors) First() *DomainError {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		if field := err.Field(); field != "" {
			messages[i] = fmt.Sprintf("%s: %s", field, err.Message)
			continue
		}
		messages[i] = err.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Is reports a match against the generic field validation error so callers can
// use errors.Is(err, ErrValidation) on aggregates.
func (v *ValidationErrors) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Type == DomainValidationError && len(v.Errors) > 0
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field := err.Field()
		if field == "" {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}

// ErrValidation matches any validation failure through errors.Is.
var ErrValidation = NewDomainError(DomainValidationError, "", "validation failed")

func isType(err error, t DomainErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == t
	}
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return t == DomainValidationError && ve.HasErrors()
	}
	return false
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return isType(err, DomainValidationError) }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return isType(err, DomainNotFoundError) }

// IsPersistence reports whether err is a storage failure.
func IsPersistence(err error) bool { return isType(err, DomainPersistenceError) }

// IsMigration reports whether err is a migration failure.
func IsMigration(err error) bool { return isType(err, DomainMigrationError) }

// IsUnsupported reports whether err names an unsupported option.
func IsUnsupported(err error) bool { return isType(err, DomainUnsupportedError) }

// AsValidationErrors extracts the aggregated validation failures from err.
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
