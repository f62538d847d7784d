package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEnv indicates the config file references unset environment variables.
	ErrMissingEnv = errors.New("config: missing required environment variables")

	// ErrInvalidEnv indicates a GOCOMMON_* variable could not be parsed.
	ErrInvalidEnv = errors.New("config: invalid environment override")

	// ErrInvalid indicates a field failed validation.
	ErrInvalid = errors.New("config: invalid value")
)

// FieldError is a validation failure for one configuration field.
type FieldError struct {
	// Field is the dotted YAML path, e.g. "rate_limit.calls".
	Field string

	// Message describes the problem.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrInvalid).
func (e FieldError) Unwrap() error {
	return ErrInvalid
}
