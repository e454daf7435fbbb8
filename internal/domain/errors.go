package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")

	// Lookup errors
	ErrUserNotFound = errors.New("user not found")
	ErrTaskNotFound = errors.New("task not found")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage is not configured or unreachable")

	// Coach errors
	ErrCoachTimeout     = errors.New("coach request timed out")
	ErrCoachUnavailable = errors.New("coach is unavailable")
	ErrCoachOutput      = errors.New("coach returned unreadable output")
)

// ValidationError rejects a request before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

// Validation builds a *ValidationError.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Is lets errors.Is(err, ErrValidation) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
