package link

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/precilaser/internal/logging"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/transport"
)

// Reader pulls frames addressed to one device out of a byte stream.
//
// It scans for the first header byte and then checks the rest of the header
// and the address pair. When that lookahead does not match, the lookahead
// bytes are pushed back so that a real header hiding inside them is not
// lost. Bytes that never started a frame are logged and discarded.
type Reader struct {
	port     transport.Port
	address  byte
	framing  protocol.Framing
	prefix   []byte // header[1:] + host address + device address
	pushback []byte
}

// NewReader returns a Reader for frames sent to address
func NewReader(port transport.Port, address byte, f protocol.Framing) *Reader {
	prefix := make([]byte, 0, len(f.Header)+1)
	prefix = append(prefix, f.Header[1:]...)
	prefix = append(prefix, protocol.HostAddress, address)

	return &Reader{
		port:    port,
		address: address,
		framing: f,
		prefix:  prefix,
	}
}

// ReadFrame blocks until one complete frame for this address has been read
// and decoded. Transport overruns are retried; any other transport error,
// including a timeout, ends the read. Frame validation errors are returned
// as *protocol.FrameError. Frames for known return ids are sized by the
// param-length table, so a corrupted length byte costs only its own frame.
func (r *Reader) ReadFrame() (protocol.Message, error) {
	var skipped []byte
	defer func() { logging.LogResync(r.address, skipped, "no frame header") }()

	for {
		b, err := r.readByte()
		if err != nil {
			return protocol.Message{}, err
		}
		if b != r.framing.Header[0] {
			skipped = append(skipped, b)
			continue
		}

		look, err := r.readFull(len(r.prefix))
		if err != nil {
			return protocol.Message{}, err
		}
		if !bytes.Equal(look, r.prefix) {
			skipped = append(skipped, b)
			r.unread(look)
			continue
		}

		idLen, err := r.readFull(2)
		if err != nil {
			return protocol.Message{}, err
		}
		rest, err := r.readFull(r.payloadLength(idLen[0], idLen[1]) + 2 + len(r.framing.Terminator))
		if err != nil {
			return protocol.Message{}, err
		}

		frame := make([]byte, 0, 1+len(look)+len(idLen)+len(rest))
		frame = append(frame, b)
		frame = append(frame, look...)
		frame = append(frame, idLen...)
		frame = append(frame, rest...)

		msg, err := protocol.Decode(frame, r.address, r.framing)
		if err != nil {
			logging.LogRawBytes("Rejected frame", frame)
		}
		return msg, err
	}
}

// payloadLength sizes the rest of a frame from the param-length table. The
// in-frame length byte is only used for ids the table does not know.
func (r *Reader) payloadLength(code, lengthByte byte) int {
	ret, ok := protocol.LookupReturn(code)
	if !ok {
		return int(lengthByte)
	}
	n, _ := ret.ParamLength()
	if n != int(lengthByte) {
		logging.Warn("Length byte disagrees with param-length table",
			zap.Uint8("address", r.address),
			zap.String("command", ret.String()),
			zap.Int("table_length", n),
			zap.Uint8("length_byte", lengthByte),
		)
	}
	return n
}

func (r *Reader) unread(b []byte) {
	r.pushback = append(append([]byte(nil), b...), r.pushback...)
}

func (r *Reader) readByte() (byte, error) {
	if len(r.pushback) > 0 {
		b := r.pushback[0]
		r.pushback = r.pushback[1:]
		return b, nil
	}

	for {
		b, err := r.port.ReadByte()
		if transport.IsOverrun(err) {
			logging.Debug("Retrying read after overrun", zap.Uint8("address", r.address))
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read frame byte: %w", err)
		}
		return b, nil
	}
}

func (r *Reader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := copy(buf, r.pushback)
	r.pushback = r.pushback[got:]

	for got < n {
		m, err := r.port.Read(buf[got:])
		got += m
		if transport.IsOverrun(err) {
			logging.Debug("Retrying read after overrun", zap.Uint8("address", r.address))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %d frame bytes (got %d): %w", n, got, err)
		}
	}
	return buf, nil
}
