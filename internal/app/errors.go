package app

import (
	"errors"
	"fmt"
)

var (
	// ErrStateConflict matches every StateConflictError
	ErrStateConflict = errors.New("operation not allowed in current state")

	// ErrNothingToExport is returned when exporting without a recording
	ErrNothingToExport = errors.New("no recording to export")
)

// StateConflictError is returned when an operation is requested while the
// application is in a state that forbids it. No state changes when it is
// returned.
type StateConflictError struct {
	Op     string
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *StateConflictError) Is(target error) bool {
	return target == ErrStateConflict
}

func conflict(op, reason string) error {
	return &StateConflictError{Op: op, Reason: reason}
}
