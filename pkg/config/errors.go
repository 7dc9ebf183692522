package config

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrBadValue     = errors.New("bad value")
	ErrOutOfRange   = errors.New("value out of range")
	ErrNotAChoice   = errors.New("value is not a valid choice")
)

// BadConfigError reports a value that failed validation.
type BadConfigError struct {
	Dest  string
	Value string
	Err   error
}

// Error returns the error message.
func (e *BadConfigError) Error() string {
	return fmt.Sprintf("bad config %s=%q: %v", e.Dest, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *BadConfigError) Unwrap() error { return e.Err }
