package link

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/precilaser/internal/logging"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/status"
	"github.com/muurk/precilaser/internal/transport"
)

const testAddress = 100

func frame(t *testing.T, id protocol.Identifier, address byte, payload []byte) []byte {
	t.Helper()
	msg, err := protocol.Encode(id, address, payload, protocol.DefaultFraming())
	if err != nil {
		t.Fatalf("Encode(%v) error = %v", id, err)
	}
	return msg.Bytes()
}

func newTestLink(t *testing.T) (*Link, *transport.Mock) {
	t.Helper()
	port := transport.NewMock()
	l, err := New(port, testAddress, protocol.DefaultFraming())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, port
}

func echoPayload() []byte { return []byte{0x01, 0xF4} }

func TestReaderSkipsGarbage(t *testing.T) {
	tests := []struct {
		name string
		pre  func(t *testing.T) []byte
	}{
		{"no garbage", func(t *testing.T) []byte { return nil }},
		{"leading noise", func(t *testing.T) []byte { return []byte{0x13, 0x37, 0x0D, 0x0A, 0xFF} }},
		{"spurious header byte", func(t *testing.T) []byte { return []byte{'P'} }},
		{"header with wrong host byte", func(t *testing.T) []byte { return []byte{'P', 0x01, 'P'} }},
		{"tail of a frame", func(t *testing.T) []byte { return frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload())[4:] }},
		{"frame for another device", func(t *testing.T) []byte { return frame(t, protocol.RetAmpSetCurrent, 101, echoPayload()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := transport.NewMock()
			port.Feed(tt.pre(t), frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()))

			r := NewReader(port, testAddress, protocol.DefaultFraming())
			msg, err := r.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}
			if !msg.Is(protocol.RetAmpSetCurrent) || !bytes.Equal(msg.Payload(), echoPayload()) {
				t.Errorf("ReadFrame() = %v", msg)
			}

			if _, err := r.ReadFrame(); !errors.Is(err, transport.ErrTimeout) {
				t.Errorf("second ReadFrame() error = %v, want ErrTimeout", err)
			}
		})
	}
}

func TestReaderMultiByteHeader(t *testing.T) {
	f := protocol.Framing{Header: []byte("AB"), Terminator: []byte("\n")}
	msg, err := protocol.Encode(protocol.RetAmpPowerStabilization, 7, []byte{0x01}, f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	port := transport.NewMock()
	port.Feed([]byte("AAxA"), msg.Bytes())

	got, err := NewReader(port, 7, f).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !got.Is(protocol.RetAmpPowerStabilization) {
		t.Errorf("ReadFrame() = %v", got)
	}
}

func TestReaderCorruptLengthByte(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(prev) })

	bad := frame(t, protocol.RetAmpPowerStabilization, testAddress, []byte{0x01})
	bad[4] = 0x20

	port := transport.NewMock()
	port.Feed(bad,
		frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()),
		frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()))

	r := NewReader(port, testAddress, protocol.DefaultFraming())
	_, err := r.ReadFrame()
	var fe *protocol.FrameError
	if !errors.As(err, &fe) || fe.Kind != protocol.KindChecksumMismatch {
		t.Fatalf("first ReadFrame() error = %v, want checksum mismatch", err)
	}
	if len(fe.Frame) != len(bad) {
		t.Errorf("rejected frame is %d bytes, want %d", len(fe.Frame), len(bad))
	}

	for i := 0; i < 2; i++ {
		msg, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i+2, err)
		}
		if !msg.Is(protocol.RetAmpSetCurrent) || !bytes.Equal(msg.Payload(), echoPayload()) {
			t.Errorf("ReadFrame() %d = %v", i+2, msg)
		}
	}

	if n := logs.FilterMessage("Length byte disagrees with param-length table").Len(); n != 1 {
		t.Errorf("got %d length warnings, want 1", n)
	}
	rejected := logs.FilterMessage("Rejected frame").All()
	if len(rejected) != 1 || rejected[0].ContextMap()["length"] != int64(len(bad)) {
		t.Errorf("rejected frame log = %v", rejected)
	}
}

func TestReaderRetriesOverrun(t *testing.T) {
	port := transport.NewMock()
	port.Feed(frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()))
	for i := 0; i < 3; i++ {
		port.FailRead(transport.ErrOverrun)
	}

	msg, err := NewReader(port, testAddress, protocol.DefaultFraming()).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !msg.Is(protocol.RetAmpSetCurrent) {
		t.Errorf("ReadFrame() = %v", msg)
	}
}

func TestReaderFatalErrors(t *testing.T) {
	good := func(t *testing.T) []byte { return frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()) }
	boom := errors.New("cable pulled")

	tests := []struct {
		name    string
		input   func(t *testing.T) []byte
		fail    error
		wantErr error
	}{
		{
			name:    "nothing arrives",
			input:   func(t *testing.T) []byte { return nil },
			wantErr: transport.ErrTimeout,
		},
		{
			name:    "truncated frame",
			input:   func(t *testing.T) []byte { b := good(t); return b[:len(b)-3] },
			wantErr: transport.ErrTimeout,
		},
		{
			name:    "transport failure",
			input:   good,
			fail:    boom,
			wantErr: boom,
		},
		{
			name:    "corrupted payload",
			input:   func(t *testing.T) []byte { b := good(t); b[6] ^= 0x01; return b },
			wantErr: protocol.ErrChecksumMismatch,
		},
		{
			name:    "corrupted terminator",
			input:   func(t *testing.T) []byte { b := good(t); b[len(b)-1] = 0x00; return b },
			wantErr: protocol.ErrBadTerminator,
		},
		{
			name: "unknown return",
			input: func(t *testing.T) []byte {
				body := []byte{0x00, testAddress, 0xEE, 0x00}
				b := append([]byte("P"), body...)
				b = append(b, protocol.Checksum(body), protocol.XORCheck(body))
				return append(b, "\r\n"...)
			},
			wantErr: protocol.ErrUnknownCommand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := transport.NewMock()
			port.Feed(tt.input(t))
			if tt.fail != nil {
				port.FailRead(tt.fail)
			}

			_, err := NewReader(port, testAddress, protocol.DefaultFraming()).ReadFrame()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()
	var slot Slot[uint64]
	Bind(d, protocol.RetAmpSetCurrent, &slot, func(p []byte) (uint64, error) {
		return protocol.Uint(p, nil), nil
	})

	if !d.Handles(protocol.RetAmpSetCurrent) || d.Handles(protocol.RetAmpStatus) {
		t.Fatal("Handles() reports wrong registrations")
	}
	if _, ok := slot.Load(); ok {
		t.Fatal("slot set before any dispatch")
	}

	msg, err := protocol.Decode(frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()), testAddress, protocol.DefaultFraming())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	// dispatching the same frame twice leaves the same state
	for i := 0; i < 2; i++ {
		if err := d.Dispatch(msg); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if v, ok := slot.Load(); !ok || v != 500 {
			t.Errorf("slot after dispatch %d = %d, %v, want 500", i+1, v, ok)
		}
	}
	if slot.Updated().IsZero() {
		t.Error("Updated() is zero after Store")
	}

	if err := d.dispatch(protocol.RetAmpSetCurrent, nil); !errors.Is(err, ErrPayloadMissing) {
		t.Errorf("dispatch(nil payload) error = %v, want ErrPayloadMissing", err)
	}
	if err := d.dispatch(protocol.RetAmpStatus, nil); err != nil {
		t.Errorf("unregistered return should pass through, got %v", err)
	}
	if err := d.dispatch(protocol.CmdAmpSetCurrent, []byte{1, 2}); err != nil {
		t.Errorf("command frames should pass through, got %v", err)
	}
}

func TestDispatcherStatusReplay(t *testing.T) {
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	msg, err := protocol.Decode(frame(t, protocol.RetAmpStatus, testAddress, payload), testAddress, protocol.DefaultFraming())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want, err := status.DecodeAmplifier(msg.Payload(), nil)
	if err != nil {
		t.Fatalf("DecodeAmplifier() error = %v", err)
	}

	d := NewDispatcher()
	var slot Slot[status.Amplifier]
	Bind(d, protocol.RetAmpStatus, &slot, func(p []byte) (status.Amplifier, error) {
		return status.DecodeAmplifier(p, nil)
	})

	for i := 0; i < 2; i++ {
		if err := d.Dispatch(msg); err != nil {
			t.Fatalf("Dispatch() %d error = %v", i+1, err)
		}
		got, ok := slot.Load()
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("slot after dispatch %d = %+v, want %+v", i+1, got, want)
		}
	}
}

func TestDispatcherTransformError(t *testing.T) {
	d := NewDispatcher()
	var slot Slot[int]
	slot.Store(7)
	bad := errors.New("bad payload")
	Bind(d, protocol.RetAmpEnable, &slot, func(p []byte) (int, error) { return 0, bad })

	if err := d.dispatch(protocol.RetAmpEnable, make([]byte, 13)); !errors.Is(err, bad) {
		t.Fatalf("dispatch() error = %v, want %v", err, bad)
	}
	if v, _ := slot.Load(); v != 7 {
		t.Errorf("slot = %d, want unchanged 7", v)
	}
}

func TestLinkRequestSkipsUnsolicitedFrames(t *testing.T) {
	l, port := newTestLink(t)

	var statusSeen Slot[[]byte]
	Bind(l.Dispatcher(), protocol.RetAmpStatus, &statusSeen, func(p []byte) ([]byte, error) { return p, nil })

	statusPayload := make([]byte, 64)
	statusPayload[0] = 1
	port.OnWrite(func(written []byte) []byte {
		// an unsolicited status report lands before the echo
		reply := frame(t, protocol.RetAmpStatus, testAddress, statusPayload)
		return append(reply, frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload())...)
	})

	msg, err := l.Request(protocol.CmdAmpSetCurrent, echoPayload(), protocol.RetAmpSetCurrent)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if !msg.Is(protocol.RetAmpSetCurrent) {
		t.Errorf("Request() = %v, want AMP_SET_CURRENT", msg)
	}
	if got, ok := statusSeen.Load(); !ok || got[0] != 1 {
		t.Error("unsolicited status was not dispatched")
	}

	writes := port.Writes()
	if len(writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(writes))
	}
	want := frame(t, protocol.CmdAmpSetCurrent, testAddress, echoPayload())
	if !bytes.Equal(writes[0], want) {
		t.Errorf("wrote % X, want % X", writes[0], want)
	}
}

func TestLinkSendDrainsFirst(t *testing.T) {
	l, port := newTestLink(t)

	var echoes Slot[uint64]
	Bind(l.Dispatcher(), protocol.RetAmpSetCurrent, &echoes, func(p []byte) (uint64, error) {
		return protocol.Uint(p, nil), nil
	})

	port.Feed(
		frame(t, protocol.RetAmpSetCurrent, testAddress, []byte{0x00, 0x01}),
		frame(t, protocol.RetAmpSetCurrent, testAddress, []byte{0x00, 0x02}),
	)

	var pendingAtWrite int
	port.OnWrite(func([]byte) []byte {
		pendingAtWrite = port.Pending()
		return nil
	})

	if _, err := l.Send(protocol.CmdAmpStatus, nil); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if pendingAtWrite != 0 {
		t.Errorf("%d bytes still pending when the command was written", pendingAtWrite)
	}
	if v, _ := echoes.Load(); v != 2 {
		t.Errorf("slot = %d, want the last drained value 2", v)
	}
}

func TestLinkDrain(t *testing.T) {
	l, port := newTestLink(t)

	n, err := l.Drain()
	if err != nil || n != 0 {
		t.Fatalf("Drain() on idle link = %d, %v", n, err)
	}

	port.Feed(
		frame(t, protocol.RetAmpPowerStabilization, testAddress, []byte{0x01}),
		frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()),
		frame(t, protocol.RetAmpPowerStabilization, testAddress, []byte{0x00}),
	)
	n, err = l.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Drain() = %d frames, want 3", n)
	}
}

func TestLinkSendRejectsBadPayloadBeforeIO(t *testing.T) {
	l, port := newTestLink(t)
	port.Feed(frame(t, protocol.RetAmpSetCurrent, testAddress, echoPayload()))

	if _, err := l.Send(protocol.CmdAmpSetCurrent, []byte{0x01}); !errors.Is(err, protocol.ErrPayloadLength) {
		t.Fatalf("Send() error = %v, want ErrPayloadLength", err)
	}
	if len(port.Writes()) != 0 || port.Pending() == 0 {
		t.Error("Send() touched the port for an invalid payload")
	}
}

func TestLinkReadUntilTimeout(t *testing.T) {
	l, port := newTestLink(t)
	port.Feed(frame(t, protocol.RetAmpPowerStabilization, testAddress, []byte{0x01}))

	_, err := l.ReadUntil(protocol.RetAmpSetCurrent)
	if !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("ReadUntil() error = %v, want ErrTimeout", err)
	}
}

func TestLinkWriteFailure(t *testing.T) {
	l, port := newTestLink(t)
	boom := errors.New("write failed")
	port.FailWrite(boom)

	if _, err := l.Request(protocol.CmdAmpStatus, nil, protocol.RetAmpStatus); !errors.Is(err, boom) {
		t.Errorf("Request() error = %v, want %v", err, boom)
	}
}

func TestNewRejectsInvalidFraming(t *testing.T) {
	if _, err := New(transport.NewMock(), 1, protocol.Framing{}); !errors.Is(err, protocol.ErrInvalidFraming) {
		t.Errorf("New() error = %v, want ErrInvalidFraming", err)
	}
}
