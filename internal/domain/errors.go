package domain

import (
	"errors"
	"fmt"
)

// KeyPrefix namespaces every key the service writes to the store.
const KeyPrefix = "shelf:"

var (
	// ErrValidation signals a malformed request, rejected before any work.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream signals that the catalog index or store was unavailable.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrTimeout signals that a request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrCache signals a cache backend failure. Never fatal to a request.
	ErrCache = errors.New("cache unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// ValidationError carries the offending field alongside ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a request field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
