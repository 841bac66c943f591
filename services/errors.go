package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeInvalidItem      ErrorType = "invalid_item"
	ErrorTypeMissingAttribute ErrorType = "missing_attribute"
	ErrorTypeTypeMismatch     ErrorType = "type_mismatch"
	ErrorTypeUnknownSelection ErrorType = "unknown_selection"
	ErrorTypeConfiguration    ErrorType = "configuration"
	ErrorTypeExternal         ErrorType = "external"
	ErrorTypeInternal         ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables. They are matched by type, so a freshly built error of the
// same type satisfies errors.Is against any of them.

var (
	// Admission errors
	ErrInvalidRequest   = NewDomainError(ErrorTypeValidation, "invalid request", nil)
	ErrUnknownModel     = NewDomainError(ErrorTypeValidation, "model not found in model container", nil)
	ErrUnknownEvaluator = NewDomainError(ErrorTypeValidation, "evaluator not found in evaluator container", nil)

	// Container errors
	ErrInvalidItem      = NewDomainError(ErrorTypeInvalidItem, "item is neither a wrapper nor callable", nil)
	ErrMissingAttribute = NewDomainError(ErrorTypeMissingAttribute, "item has no key attribute", nil)
	ErrMissingKey       = NewDomainError(ErrorTypeNotFound, "container has no item at key", nil)
	ErrTypeMismatch     = NewDomainError(ErrorTypeTypeMismatch, "containers have incompatible storage shapes", nil)

	// Routing errors
	ErrUnknownSelection = NewDomainError(ErrorTypeUnknownSelection, "selection not in models", nil)

	// Setup errors
	ErrInvalidConfig  = NewDomainError(ErrorTypeConfiguration, "invalid router configuration", nil)
	ErrInvalidDataset = NewDomainError(ErrorTypeConfiguration, "invalid historical dataset", nil)

	// Collaborator errors
	ErrEmbeddingFailed = NewDomainError(ErrorTypeExternal, "embedding provider error", nil)
	ErrUploadFailed    = NewDomainError(ErrorTypeExternal, "result upload failed", nil)

	ErrInternal = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// Error type checking helper functions

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsAdmissionError checks if an error rejected a request before any invocation
func IsAdmissionError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError checks if an error is a missing key error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsInvalidItemError checks if an error rejected a non-callable registration
func IsInvalidItemError(err error) bool {
	return hasType(err, ErrorTypeInvalidItem)
}

// IsMissingAttributeError checks if an error is a missing key attribute error
func IsMissingAttributeError(err error) bool {
	return hasType(err, ErrorTypeMissingAttribute)
}

// IsTypeMismatchError checks if an error is an incompatible merge error
func IsTypeMismatchError(err error) bool {
	return hasType(err, ErrorTypeTypeMismatch)
}

// IsUnknownSelectionError checks if a router selected a key outside its candidate pool
func IsUnknownSelectionError(err error) bool {
	return hasType(err, ErrorTypeUnknownSelection)
}

// IsConfigurationError checks if an error came from router or dataset setup
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsExternalError checks if an error came from an external collaborator
func IsExternalError(err error) bool {
	return hasType(err, ErrorTypeExternal)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapExternal wraps an error as an external collaborator error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// NewMissingKeyError reports a lookup of an absent key
func NewMissingKeyError(key string) *DomainError {
	return NewDomainError(ErrorTypeNotFound, fmt.Sprintf("container has no item at key %s", key), nil).
		WithDetail("key", key)
}

// NewInvalidItemError reports a registration of something that cannot be wrapped
func NewInvalidItemError(kind string, item interface{}) *DomainError {
	return NewDomainError(ErrorTypeInvalidItem, fmt.Sprintf("%s %T is not callable", kind, item), nil).
		WithDetail("item_type", fmt.Sprintf("%T", item))
}

// NewValidationError reports an admission failure
func NewValidationError(message string, details map[string]interface{}) *DomainError {
	err := NewDomainError(ErrorTypeValidation, message, nil)
	for k, v := range details {
		err.WithDetail(k, v)
	}
	return err
}

// NewConfigError reports a router or dataset setup failure
func NewConfigError(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeConfiguration, message, err)
}
