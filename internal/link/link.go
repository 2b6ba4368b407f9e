package link

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/precilaser/internal/logging"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/transport"
)

// Link is the request/response channel to one addressed device.
//
// Every frame it reads, solicited or not, goes through the dispatch table
// before anything else looks at it, so cached device state stays current
// even while a caller waits for a different reply.
type Link struct {
	mu         sync.Mutex
	port       transport.Port
	reader     *Reader
	dispatcher *Dispatcher
	address    byte
	framing    protocol.Framing
}

// New binds a port to one device address
func New(port transport.Port, address byte, f protocol.Framing) (*Link, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Link{
		port:       port,
		reader:     NewReader(port, address, f),
		dispatcher: NewDispatcher(),
		address:    address,
		framing:    f,
	}, nil
}

// Address returns the device address
func (l *Link) Address() byte { return l.address }

// Framing returns the framing used on this link
func (l *Link) Framing() protocol.Framing { return l.framing }

// Dispatcher returns the dispatch table applied to every inbound frame
func (l *Link) Dispatcher() *Dispatcher { return l.dispatcher }

// ReadFrame reads one frame and dispatches it
func (l *Link) ReadFrame() (protocol.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readFrame()
}

func (l *Link) readFrame() (protocol.Message, error) {
	msg, err := l.reader.ReadFrame()
	if err != nil {
		return protocol.Message{}, err
	}
	logging.LogFrame("rx", l.address, msg.ID().String(), msg.Bytes())

	if err := l.dispatcher.Dispatch(msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// Drain reads and dispatches frames for as long as the port reports
// buffered input. It returns the number of frames handled.
func (l *Link) Drain() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drain()
}

func (l *Link) drain() (int, error) {
	count := 0
	for {
		n, err := l.port.Buffered()
		if err != nil {
			return count, fmt.Errorf("check buffered input: %w", err)
		}
		if n == 0 {
			if count > 0 {
				logging.Debug("Drained unsolicited frames",
					zap.Uint8("address", l.address),
					zap.Int("frames", count),
				)
			}
			return count, nil
		}
		if _, err := l.readFrame(); err != nil {
			return count, err
		}
		count++
	}
}

// Send encodes cmd, drains pending input and writes the frame
func (l *Link) Send(cmd protocol.Command, payload []byte) (protocol.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.send(cmd, payload)
}

func (l *Link) send(cmd protocol.Command, payload []byte) (protocol.Message, error) {
	msg, err := protocol.Encode(cmd, l.address, payload, l.framing)
	if err != nil {
		return protocol.Message{}, err
	}

	if _, err := l.drain(); err != nil {
		return protocol.Message{}, fmt.Errorf("drain before %s: %w", cmd, err)
	}

	frame := msg.Bytes()
	if _, err := l.port.Write(frame); err != nil {
		return protocol.Message{}, fmt.Errorf("write %s: %w", cmd, err)
	}
	logging.LogFrame("tx", l.address, cmd.String(), frame)
	return msg, nil
}

// ReadUntil reads and dispatches frames until one carries ret
func (l *Link) ReadUntil(ret protocol.Return) (protocol.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readUntil(ret)
}

func (l *Link) readUntil(ret protocol.Return) (protocol.Message, error) {
	for {
		msg, err := l.readFrame()
		if err != nil {
			return protocol.Message{}, fmt.Errorf("awaiting %s: %w", ret, err)
		}
		if msg.Is(ret) {
			return msg, nil
		}
		logging.Debug("Skipping frame while awaiting reply",
			zap.String("awaiting", ret.String()),
			zap.String("got", msg.ID().String()),
		)
	}
}

// Request sends cmd and waits for ret
func (l *Link) Request(cmd protocol.Command, payload []byte, ret protocol.Return) (protocol.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.send(cmd, payload); err != nil {
		return protocol.Message{}, err
	}
	return l.readUntil(ret)
}

// Close closes the underlying port
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Close()
}
