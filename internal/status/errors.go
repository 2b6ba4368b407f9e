package status

import (
	"errors"
	"fmt"
)

// ErrWrongLength is matched by every DecodeError
var ErrWrongLength = errors.New("status payload has wrong length")

// DecodeError reports a status payload of unexpected size
type DecodeError struct {
	Kind string // "amplifier" or "seed"
	Got  int
	Want int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s status: got %d bytes, want %d", e.Kind, e.Got, e.Want)
}

func (e *DecodeError) Unwrap() error {
	return ErrWrongLength
}
