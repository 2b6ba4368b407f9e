package device

import (
	"errors"
	"fmt"
)

var (
	// ErrConfirmationMismatch is matched by every ConfirmationError
	ErrConfirmationMismatch = errors.New("device confirmed a different value")

	// ErrOutOfRange is matched by every RangeError
	ErrOutOfRange = errors.New("value out of range")
)

// ConfirmationError reports a reply whose echoed value differs from the
// value that was written. The write is not retried.
type ConfirmationError struct {
	Operation string
	Requested uint64
	Confirmed uint64
}

// Error implements the error interface
func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("%s: requested %d, device confirmed %d", e.Operation, e.Requested, e.Confirmed)
}

// Unwrap returns ErrConfirmationMismatch
func (e *ConfirmationError) Unwrap() error {
	return ErrConfirmationMismatch
}

// RangeError reports a setpoint rejected before anything was sent
type RangeError struct {
	Parameter string
	Value     float64
	Min       float64
	Max       float64
	Unit      string
}

// Error implements the error interface
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g %s outside %g-%g %s", e.Parameter, e.Value, e.Unit, e.Min, e.Max, e.Unit)
}

// Unwrap returns ErrOutOfRange
func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}
