package protocol

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/precilaser/internal/logging"
)

// Message is one frame, either built for sending or decoded from the wire.
// It is immutable: every accessor returns a copy.
type Message struct {
	id       Identifier
	address  byte
	payload  []byte // nil when the identifier carries no payload
	framing  Framing
	raw      []byte
	checksum byte
	xor      byte
}

// Encode builds the wire form of a frame.
//
// Frame structure:
//
//	[HEADER...][0x00][ADDR][ID][LEN][PAYLOAD...][SUM][XOR][TERMINATOR...]
//
// LEN is taken from the param-length table for id's class. payload must be
// exactly that long; nil is accepted for zero-length identifiers and emits
// LEN = 0x00 with no payload bytes. SUM and XOR cover 0x00 through the last
// payload byte; XOR does not include SUM.
func Encode(id Identifier, address byte, payload []byte, f Framing) (Message, error) {
	if err := f.Validate(); err != nil {
		return Message{}, err
	}
	if id == nil {
		return Message{}, fmt.Errorf("%w: nil identifier", ErrUnknownIdentifier)
	}

	n, ok := id.ParamLength()
	if !ok {
		return Message{}, fmt.Errorf("%w: %s 0x%02X", ErrUnknownIdentifier, id.Class(), id.Code())
	}
	if payload == nil && n != 0 {
		return Message{}, fmt.Errorf("%w: %s needs %d bytes, got none", ErrPayloadLength, id, n)
	}
	if payload != nil && len(payload) != n {
		return Message{}, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrPayloadLength, id, n, len(payload))
	}

	raw := make([]byte, 0, f.FrameSize(n))
	raw = append(raw, f.Header...)
	raw = append(raw, HostAddress, address, id.Code(), byte(n))
	raw = append(raw, payload...)

	checked := raw[len(f.Header):]
	sum := Checksum(checked)
	xor := XORCheck(checked)

	raw = append(raw, sum, xor)
	raw = append(raw, f.Terminator...)

	var p []byte
	if payload != nil {
		p = append([]byte(nil), payload...)
	}

	return Message{
		id:       id,
		address:  address,
		payload:  p,
		framing:  f,
		raw:      raw,
		checksum: sum,
		xor:      xor,
	}, nil
}

// Decode validates a complete inbound frame and returns it as a Return
// message addressed to address.
//
// The param-length table is authoritative for the payload length. The
// in-frame length byte only locates the trailer; when it disagrees with the
// table a warning is logged and decoding continues.
func Decode(raw []byte, address byte, f Framing) (Message, error) {
	return decode(raw, address, f, func(code byte) (Identifier, bool) {
		return LookupReturn(code)
	})
}

// DecodeCommand is Decode for host-to-device frames. It is what an
// instrument (or a simulator standing in for one) uses to read requests.
func DecodeCommand(raw []byte, address byte, f Framing) (Message, error) {
	return decode(raw, address, f, func(code byte) (Identifier, bool) {
		return LookupCommand(code)
	})
}

func decode(raw []byte, address byte, f Framing, lookup func(byte) (Identifier, bool)) (Message, error) {
	if err := f.Validate(); err != nil {
		return Message{}, err
	}

	hl, tl := len(f.Header), len(f.Terminator)
	if len(raw) < f.MinFrameSize() {
		return Message{}, newFrameError(KindShortFrame, raw, nil, raw)
	}

	if !bytes.Equal(raw[:hl], f.Header) {
		return Message{}, newFrameError(KindBadHeader, raw[:hl], f.Header, raw)
	}
	if !bytes.Equal(raw[len(raw)-tl:], f.Terminator) {
		return Message{}, newFrameError(KindBadTerminator, raw[len(raw)-tl:], f.Terminator, raw)
	}
	if raw[hl] != HostAddress || raw[hl+1] != address {
		return Message{}, newFrameError(KindBadAddress, raw[hl:hl+2], []byte{HostAddress, address}, raw)
	}

	id, ok := lookup(raw[hl+2])
	if !ok {
		return Message{}, newFrameError(KindUnknownCommand, raw[hl+2:hl+3], nil, raw)
	}

	n, _ := id.ParamLength()
	inFrame := int(raw[hl+3])
	present := len(raw) - f.MinFrameSize()
	if inFrame != n || present != n {
		logging.Warn("Frame length disagrees with param-length table",
			zap.String("command", id.String()),
			zap.Int("table_length", n),
			zap.Int("length_byte", inFrame),
			zap.Int("payload_bytes", present),
		)
	}
	if present < n {
		return Message{}, newFrameError(KindShortFrame, raw, nil, raw)
	}

	trailer := len(raw) - tl - trailerSize
	gotSum, gotXor := raw[trailer], raw[trailer+1]
	checked := raw[hl:trailer]

	if sum := Checksum(checked); sum != gotSum {
		return Message{}, newFrameError(KindChecksumMismatch, []byte{gotSum}, []byte{sum}, raw)
	}
	if xor := XORCheck(checked); xor != gotXor {
		return Message{}, newFrameError(KindXorMismatch, []byte{gotXor}, []byte{xor}, raw)
	}

	var payload []byte
	if n > 0 {
		start := hl + fixedFieldsSize
		payload = append([]byte(nil), raw[start:start+n]...)
	}

	return Message{
		id:       id,
		address:  address,
		payload:  payload,
		framing:  f,
		raw:      append([]byte(nil), raw...),
		checksum: gotSum,
		xor:      gotXor,
	}, nil
}

// ID returns the command or return identifier
func (m Message) ID() Identifier { return m.id }

// Address returns the device address
func (m Message) Address() byte { return m.address }

// Framing returns the framing the message was built or decoded with
func (m Message) Framing() Framing { return m.framing }

// Checksum returns the additive checksum byte
func (m Message) Checksum() byte { return m.checksum }

// XOR returns the XOR check byte
func (m Message) XOR() byte { return m.xor }

// HasPayload reports whether the frame carries payload bytes
func (m Message) HasPayload() bool { return m.payload != nil }

// Payload returns a copy of the payload, or nil if absent
func (m Message) Payload() []byte {
	if m.payload == nil {
		return nil
	}
	return append([]byte(nil), m.payload...)
}

// Bytes returns a copy of the exact wire representation
func (m Message) Bytes() []byte {
	return append([]byte(nil), m.raw...)
}

// Is reports whether the message carries the given identifier
func (m Message) Is(id Identifier) bool {
	return m.id != nil && id != nil && m.id.Class() == id.Class() && m.id.Code() == id.Code()
}

// Param returns the payload as an unsigned integer in the framing byte
// order. ok is false when the payload is absent or longer than 8 bytes.
func (m Message) Param() (v uint64, ok bool) {
	if m.payload == nil || len(m.payload) > 8 {
		return 0, false
	}
	return Uint(m.payload, m.framing.ByteOrder()), true
}

// String returns a debug representation of the message
func (m Message) String() string {
	if m.id == nil {
		return "Message{}"
	}
	return fmt.Sprintf("Message{%s %s(0x%02X), addr=%d, len=%d, sum=0x%02X, xor=0x%02X}",
		m.id.Class(), m.id, m.id.Code(), m.address, len(m.payload), m.checksum, m.xor)
}
