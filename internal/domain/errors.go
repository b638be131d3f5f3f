package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a referenced hospital, cage, weighing, transport or step does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a duplicate business key (cage code, hospital tax id).
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput reports a request rejected before any state was touched.
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// InvalidInputf wraps ErrInvalidInput with a formatted message.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}
