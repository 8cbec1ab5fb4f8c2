package telemetry

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a unique-constraint race the store could not
// resolve; the caller may retry once.
var ErrConflict = errors.New("conflict")

// ValidationError rejects malformed input before any store call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a store failure so handlers can report a
// generic message without leaking driver detail.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
