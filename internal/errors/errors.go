// Package errors defines the error taxonomy of the ingestion and analysis
// pipeline. Fatal conditions (unrecognized format, malformed structure,
// invalid configuration) are typed so callers can dispatch on them with
// errors.Is/errors.As; recoverable parse problems are absorbed into dataset
// validation summaries and never surface as pipeline failures.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	ErrTypeFormat     ErrorType = "FORMAT"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeStorage    ErrorType = "STORAGE"
)

// ErrUnrecognizedFormat is returned when no parser adapter matches the input.
// The file is rejected outright; no dataset is constructed.
var ErrUnrecognizedFormat = errors.New("unrecognized input format")

// AppError is the application-specific error carrying a type tag, an optional
// cause and free-form context for logging.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key-value pair to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// NewFormatError creates an unrecognized-format error. It wraps
// ErrUnrecognizedFormat so errors.Is(err, ErrUnrecognizedFormat) holds.
func NewFormatError(message string) *AppError {
	return NewAppError(ErrTypeFormat, message, ErrUnrecognizedFormat)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error. Invalid configuration is
// rejected before any file is processed.
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewStorageError creates a persistence-layer error.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// ParseError reports a structural problem in the raw input. Recoverable parse
// errors describe rows that were skipped; non-recoverable ones mean the
// structural header itself could not be located and the file is rejected.
type ParseError struct {
	Format      string
	Reason      string
	Recoverable bool
	Cause       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	kind := "fatal"
	if e.Recoverable {
		kind = "recoverable"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s parse error (%s): %s: %v", kind, e.Format, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s parse error (%s): %s", kind, e.Format, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a ParseError for the given format.
func NewParseError(format, reason string, recoverable bool, cause error) *ParseError {
	return &ParseError{Format: format, Reason: reason, Recoverable: recoverable, Cause: cause}
}

// IsRecoverable reports whether err is a recoverable parse error.
func IsRecoverable(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}
	return false
}

// IsFatal reports whether err must reject the whole file: an unrecognized
// format, a non-recoverable parse error, or invalid configuration.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnrecognizedFormat) {
		return true
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return !pe.Recoverable
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type == ErrTypeConfig || ae.Type == ErrTypeFormat
	}
	return false
}
