package sim

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/precilaser/internal/logging"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/transport"
)

// Responder answers one decoded command. ok=false means the instrument
// stays silent, as amplifiers do for AMP_ENABLE.
type Responder func(payload []byte) (ret protocol.Return, reply []byte, ok bool)

// Instrument is a scripted device on the far side of a transport.Mock.
// It decodes every chunk the host writes as one command frame and queues
// the encoded reply.
type Instrument struct {
	mu       sync.Mutex
	address  byte
	framing  protocol.Framing
	handlers map[protocol.Command]Responder
	received []protocol.Message
	port     *transport.Mock
}

// NewInstrument returns an instrument with no commands handled
func NewInstrument(address byte, f protocol.Framing) *Instrument {
	return &Instrument{
		address:  address,
		framing:  f,
		handlers: make(map[protocol.Command]Responder),
	}
}

// Handle installs the responder for cmd, replacing any previous one
func (in *Instrument) Handle(cmd protocol.Command, r Responder) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.handlers[cmd] = r
}

// Port returns a mock port wired to this instrument. Each call rewires the
// instrument to a fresh port.
func (in *Instrument) Port() *transport.Mock {
	port := transport.NewMock()
	port.OnWrite(in.respond)

	in.mu.Lock()
	in.port = port
	in.mu.Unlock()
	return port
}

// Received returns every command decoded so far
func (in *Instrument) Received() []protocol.Message {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]protocol.Message(nil), in.received...)
}

// Push queues an unsolicited frame on the attached port
func (in *Instrument) Push(ret protocol.Return, payload []byte) error {
	in.mu.Lock()
	port := in.port
	in.mu.Unlock()
	if port == nil {
		return fmt.Errorf("instrument at address %d has no port", in.address)
	}

	msg, err := protocol.Encode(ret, in.address, payload, in.framing)
	if err != nil {
		return err
	}
	port.Feed(msg.Bytes())
	return nil
}

func (in *Instrument) respond(written []byte) []byte {
	cmd, err := protocol.DecodeCommand(written, in.address, in.framing)
	if err != nil {
		logging.Warn("Simulated instrument ignored frame",
			zap.Uint8("address", in.address),
			zap.Error(err),
		)
		return nil
	}

	in.mu.Lock()
	in.received = append(in.received, cmd)
	h, ok := in.handlers[cmd.ID().(protocol.Command)]
	in.mu.Unlock()
	if !ok {
		return nil
	}

	ret, reply, ok := h(cmd.Payload())
	if !ok {
		return nil
	}
	msg, err := protocol.Encode(ret, in.address, reply, in.framing)
	if err != nil {
		logging.Warn("Simulated instrument could not encode reply",
			zap.String("return", ret.String()),
			zap.Error(err),
		)
		return nil
	}
	return msg.Bytes()
}
