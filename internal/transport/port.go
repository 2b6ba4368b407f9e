package transport

import (
	"errors"
	"io"
)

// Port is a byte stream to one instrument.
//
// Read fills p completely or returns an error. When the bytes do not arrive
// within the port's read timeout it returns the count read so far together
// with ErrTimeout.
type Port interface {
	io.Reader
	io.ByteReader
	io.Writer
	io.Closer

	// Buffered reports how many inbound bytes can be read without blocking
	Buffered() (int, error)

	// ReadAvailable returns every byte that can be read without blocking
	ReadAvailable() ([]byte, error)
}

var (
	// ErrTimeout is returned when a read does not complete in time
	ErrTimeout = errors.New("transport: read timeout")

	// ErrOverrun is returned when the receiver dropped bytes because its
	// buffer overflowed. The read may be retried.
	ErrOverrun = errors.New("transport: receive buffer overrun")

	// ErrClosed is returned for operations on a closed port
	ErrClosed = errors.New("transport: port closed")
)

// IsOverrun reports whether err is a retryable overrun
func IsOverrun(err error) bool {
	return errors.Is(err, ErrOverrun)
}

// IsTimeout reports whether err is a read timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
