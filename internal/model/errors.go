package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the stores matches exactly one of
// these through errors.Is, so callers can switch on the kind without
// knowing the specific failure.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrPermission        = errors.New("permission denied")
	ErrMissingCredential = errors.New("no password stored")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrStorageCorruption = errors.New("storage corruption")
	ErrNoSession         = errors.New("no active session")
	ErrInvalidSession    = errors.New("invalid session token")
)

// ValidationError reports a bad value for a single input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match field errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a field error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// FieldOf returns the offending field of a validation error, or "".
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

func kind(msg string, k error) error {
	return fmt.Errorf("%s: %w", msg, k)
}
