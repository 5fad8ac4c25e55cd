package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the kind of a domain error
type ErrorType string

const (
	ErrorTypeConfigNotFound   ErrorType = "config_not_found"
	ErrorTypeConfigParse      ErrorType = "config_parse"
	ErrorTypeConfigValidation ErrorType = "config_validation"
	ErrorTypeUnknownTask      ErrorType = "unknown_task"
	ErrorTypeNoModelAvailable ErrorType = "no_model_available"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeValidation       ErrorType = "validation"
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

// Is reports whether target is a DomainError of the same kind
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

// Sentinels for errors.Is. They are never returned directly; callers get a fresh
// DomainError of the same kind carrying a specific message.
var (
	ErrConfigNotFound   = NewDomainError(ErrorTypeConfigNotFound, "routing config not found", nil)
	ErrConfigParse      = NewDomainError(ErrorTypeConfigParse, "routing config is not valid YAML", nil)
	ErrConfigValidation = NewDomainError(ErrorTypeConfigValidation, "invalid routing config", nil)

	ErrUnknownTask      = NewDomainError(ErrorTypeUnknownTask, "unknown task", nil)
	ErrNoModelAvailable = NewDomainError(ErrorTypeNoModelAvailable, "no model available", nil)

	ErrModelNotFound = NewDomainError(ErrorTypeNotFound, "model not found", nil)
	ErrUnknownTool   = NewDomainError(ErrorTypeNotFound, "unknown tool", nil)
	ErrInvalidInput  = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	ErrUpstream = NewDomainError(ErrorTypeExternal, "upstream provider error", nil)
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsConfigError reports whether err is any of the startup configuration kinds
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfigNotFound) ||
		hasType(err, ErrorTypeConfigParse) ||
		hasType(err, ErrorTypeConfigValidation)
}

// IsUnknownTaskError checks if an error is an unknown task error
func IsUnknownTaskError(err error) bool {
	return hasType(err, ErrorTypeUnknownTask)
}

// IsNoModelAvailableError checks if an error is a fallback exhaustion error
func IsNoModelAvailableError(err error) bool {
	return hasType(err, ErrorTypeNoModelAvailable)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsExternalError checks if an error is an upstream provider error
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

// GetErrorMessage returns the bare message of a domain error, without the kind prefix.
// Non-domain errors return err.Error().
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Err != nil {
			return fmt.Sprintf("%s: %v", domainErr.Message, domainErr.Err)
		}
		return domainErr.Message
	}
	return err.Error()
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an upstream provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
