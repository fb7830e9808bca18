package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration validation failures.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidValue         = errors.New("invalid value")
	ErrConfigFileNotFound   = errors.New("config file not found")
	ErrConfigFileInvalid    = errors.New("config file invalid")
)

// ValidationError wraps a validation failure with the component and field
// that caused it.
type ValidationError struct {
	Component string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s.%s: %v", e.Component, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for a component field.
func NewValidationError(component, field string, err error) *ValidationError {
	return &ValidationError{Component: component, Field: field, Err: err}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
