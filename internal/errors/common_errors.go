package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the kind of failure
type ErrorType string

const (
	ErrTypeAuth           ErrorType = "AUTH"
	ErrTypeNetwork        ErrorType = "NETWORK"
	ErrTypeUpstreamFormat ErrorType = "UPSTREAM_FORMAT"
	ErrTypeConfig         ErrorType = "CONFIG"
	ErrTypeValidation     ErrorType = "VALIDATION"
	ErrTypeStorage        ErrorType = "STORAGE"
	ErrTypeFeatureLocked  ErrorType = "FEATURE_LOCKED"
	ErrTypeConflict       ErrorType = "CONFLICT"
	ErrTypeInternal       ErrorType = "INTERNAL"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewAuthError is returned when the portal rejects the credentials.
func NewAuthError(message string, cause error) *AppError {
	return NewAppError(ErrTypeAuth, message, cause)
}

// NewNetworkError wraps a transport level failure.
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewUpstreamFormatError signals that a portal page no longer has the
// expected structure.
func NewUpstreamFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeUpstreamFormat, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewAppValidationError creates a validation error
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewFeatureLockedError is returned when the feature gate denies access.
func NewFeatureLockedError(message string) *AppError {
	return NewAppError(ErrTypeFeatureLocked, message, nil)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrTypeConflict, message, nil)
}

// TypeOf returns the type of the first AppError in the chain or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}
