package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested record does not exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrStore is matched by every StoreError.
	ErrStore = errors.New("store failure")

	// ErrUnknownField indicates a field name outside the editable set.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidDateRange indicates a filter whose start date falls after its end date.
	ErrInvalidDateRange = errors.New("start date is after end date")
)

// ValidationError lists required fields left empty on submit.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required fields missing: %s", strings.Join(e.Missing, ", "))
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a document store failure with the operation that caused it.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("store %s failed", e.Op)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// NewStoreError wraps cause unless it already is a StoreError.
func NewStoreError(op string, cause error) error {
	var se *StoreError
	if errors.As(cause, &se) {
		return se
	}
	return &StoreError{Op: op, Cause: cause}
}
