package app

import (
	"errors"
	"fmt"
	"strings"

	"leasemail/pkg/auth"
)

var (
	// ErrAuth indicates the name/phone pair is not on the member allow-list.
	ErrAuth          = auth.ErrInvalidCredentials
	ErrValidation    = errors.New("validation failed")
	ErrGeneration    = errors.New("generation failed")
	ErrInvalidState  = errors.New("invalid session state")
	ErrContactAbsent = errors.New("contact not found")
)

// ValidationError lists the required fields that were missing or malformed.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("missing required field(s): %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// GenerationError wraps a completion failure or timeout.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

func missing(fields ...string) error {
	return &ValidationError{Fields: fields}
}
