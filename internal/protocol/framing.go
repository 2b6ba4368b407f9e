package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire constants
const (
	// HostAddress is the addressing byte that precedes the device address
	HostAddress = 0x00

	// MaxPayloadSize is the largest payload any identifier carries
	MaxPayloadSize = 64

	// addressing pair + command + length
	fixedFieldsSize = 4
	// checksum + xor
	trailerSize = 2
)

// Framing holds the per-instrument constants that surround every frame.
type Framing struct {
	// Header is the frame prefix; only its first byte is scanned for on resync
	Header []byte
	// Terminator is the frame suffix, "\r\n" for every known instrument
	Terminator []byte
	// Order is the byte order of multi-byte payload fields. nil means big endian.
	Order binary.ByteOrder
}

// DefaultFraming returns the framing shared by amplifiers and seeds:
// header "P", terminator "\r\n", big endian.
func DefaultFraming() Framing {
	return Framing{
		Header:     []byte{0x50},
		Terminator: []byte{0x0D, 0x0A},
		Order:      binary.BigEndian,
	}
}

// Validate checks that header and terminator are usable
func (f Framing) Validate() error {
	if len(f.Header) == 0 {
		return fmt.Errorf("%w: empty header", ErrInvalidFraming)
	}
	if len(f.Terminator) == 0 {
		return fmt.Errorf("%w: empty terminator", ErrInvalidFraming)
	}
	return nil
}

// ByteOrder returns the configured order, defaulting to big endian
func (f Framing) ByteOrder() binary.ByteOrder {
	if f.Order == nil {
		return binary.BigEndian
	}
	return f.Order
}

// MinFrameSize is the size of a frame with an empty payload
func (f Framing) MinFrameSize() int {
	return len(f.Header) + fixedFieldsSize + trailerSize + len(f.Terminator)
}

// FrameSize is the size of a frame carrying n payload bytes
func (f Framing) FrameSize(n int) int {
	return f.MinFrameSize() + n
}

// PutParam renders value as exactly n bytes in the given order.
// It fails with ErrParamOverflow when value needs more than n bytes.
func PutParam(value uint64, n int, order binary.ByteOrder) ([]byte, error) {
	if n < 0 || n > 8 {
		return nil, fmt.Errorf("%w: width %d", ErrParamOverflow, n)
	}
	if n < 8 && value>>(8*uint(n)) != 0 {
		return nil, fmt.Errorf("%w: %d in %d bytes", ErrParamOverflow, value, n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	if order == nil {
		order = binary.BigEndian
	}

	var buf [8]byte
	if order == binary.LittleEndian {
		binary.LittleEndian.PutUint64(buf[:], value)
		return append([]byte(nil), buf[:n]...), nil
	}
	binary.BigEndian.PutUint64(buf[:], value)
	return append([]byte(nil), buf[8-n:]...), nil
}

// Uint reads b as an unsigned integer in the given order. Only the eight
// least significant bytes are kept.
func Uint(b []byte, order binary.ByteOrder) uint64 {
	var v uint64
	if order == binary.LittleEndian {
		if len(b) > 8 {
			b = b[:8]
		}
		for i := len(b) - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
		return v
	}
	if len(b) > 8 {
		b = b[len(b)-8:]
	}
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
