package protocol

import (
	"errors"
	"fmt"
)

// FrameErrorKind classifies why an inbound frame was rejected.
type FrameErrorKind int

const (
	// KindBadHeader means the leading bytes did not equal the framing header
	KindBadHeader FrameErrorKind = iota
	// KindBadTerminator means the trailing bytes did not equal the terminator
	KindBadTerminator
	// KindBadAddress means the addressing pair was not 0x00 followed by the device address
	KindBadAddress
	// KindShortFrame means the buffer cannot hold the fields the table requires
	KindShortFrame
	// KindUnknownCommand means the command byte is not a known Return identifier
	KindUnknownCommand
	// KindChecksumMismatch means the additive checksum did not verify
	KindChecksumMismatch
	// KindXorMismatch means the XOR check did not verify
	KindXorMismatch
)

// Sentinels matched by errors.Is against a *FrameError of the same kind.
var (
	ErrBadHeader        = errors.New("invalid frame header")
	ErrBadTerminator    = errors.New("invalid frame terminator")
	ErrBadAddress       = errors.New("invalid frame address")
	ErrShortFrame       = errors.New("frame too short")
	ErrUnknownCommand   = errors.New("unknown command identifier")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrXorMismatch      = errors.New("xor check mismatch")
)

// Encoding errors.
var (
	ErrUnknownIdentifier = errors.New("identifier not in param-length table")
	ErrPayloadLength     = errors.New("payload length does not match param-length table")
	ErrParamOverflow     = errors.New("parameter does not fit in its field")
	ErrInvalidFraming    = errors.New("invalid framing")
)

var kindSentinels = map[FrameErrorKind]error{
	KindBadHeader:        ErrBadHeader,
	KindBadTerminator:    ErrBadTerminator,
	KindBadAddress:       ErrBadAddress,
	KindShortFrame:       ErrShortFrame,
	KindUnknownCommand:   ErrUnknownCommand,
	KindChecksumMismatch: ErrChecksumMismatch,
	KindXorMismatch:      ErrXorMismatch,
}

// String returns a human-readable name for the kind
func (k FrameErrorKind) String() string {
	switch k {
	case KindBadHeader:
		return "BadHeader"
	case KindBadTerminator:
		return "BadTerminator"
	case KindBadAddress:
		return "BadAddress"
	case KindShortFrame:
		return "ShortFrame"
	case KindUnknownCommand:
		return "UnknownCommand"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindXorMismatch:
		return "XorMismatch"
	default:
		return fmt.Sprintf("FrameErrorKind(%d)", int(k))
	}
}

// FrameError reports a frame that failed validation in Decode.
// Every FrameError is fatal to the read attempt that produced it.
type FrameError struct {
	Kind  FrameErrorKind
	Got   []byte // offending bytes as found in the frame
	Want  []byte // expected bytes, when there is a single expected value
	Frame []byte // the complete raw frame
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Want != nil {
		return fmt.Sprintf("%v: got % X, want % X", kindSentinels[e.Kind], e.Got, e.Want)
	}
	return fmt.Sprintf("%v: got % X", kindSentinels[e.Kind], e.Got)
}

// Unwrap returns the sentinel for the error kind
func (e *FrameError) Unwrap() error {
	return kindSentinels[e.Kind]
}

func newFrameError(kind FrameErrorKind, got, want, frame []byte) *FrameError {
	return &FrameError{
		Kind:  kind,
		Got:   append([]byte(nil), got...),
		Want:  append([]byte(nil), want...),
		Frame: append([]byte(nil), frame...),
	}
}

// IsFrameError returns true if err is or wraps a *FrameError.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}
