package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a category or submission does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a slug is already used in the kapp.
	ErrDuplicate = errors.New("slug already exists")
	// ErrInvalid is returned for mutations that fail validation.
	ErrInvalid = errors.New("invalid input")
	// ErrUnavailable is returned when a dependency is not configured.
	ErrUnavailable = errors.New("not configured")
)

// SourceError wraps a failure of the upstream category or submission
// source so callers can tell it apart from local validation errors.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
