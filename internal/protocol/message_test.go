package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// seedStatusFrame is a SEED_STATUS return captured from a seed at address 100.
var seedStatusFrame = []byte("P\x00d\xb7(a\xa8a\xa8\x01\xf4\x00\x00\x00\x00\x00\x00\x00\x00\x00a\xc9\x00a\xff\x00\x00\x00\x00\x16\x00\x00\x03R\x0b\x00\xa5\xd2y\x00\x00\x00\x01\x00\x00;{\r\n")

func TestEncode(t *testing.T) {
	f := DefaultFraming()

	tests := []struct {
		name    string
		id      Identifier
		address byte
		payload []byte
		want    []byte
		sum     byte
		xor     byte
	}{
		{
			// 1.50 A → 150 → 0x0096
			name:    "set current",
			id:      CmdAmpSetCurrent,
			address: 0,
			payload: []byte{0x00, 0x96},
			want:    []byte{0x50, 0x00, 0x00, 0xA1, 0x02, 0x00, 0x96, 0x39, 0x35, 0x0D, 0x0A},
			sum:     57,
			xor:     53,
		},
		{
			name:    "status query without payload",
			id:      CmdAmpStatus,
			address: 100,
			payload: nil,
			want:    []byte{0x50, 0x00, 0x64, 0x04, 0x00, 0x68, 0x60, 0x0D, 0x0A},
			sum:     0x68,
			xor:     0x60,
		},
		{
			name:    "empty non-nil payload on zero-length command",
			id:      CmdSeedStatus,
			address: 100,
			payload: []byte{},
			want:    []byte{0x50, 0x00, 0x64, 0xA9, 0x00, 0x0D, 0xCD, 0x0D, 0x0A},
			sum:     0x0D,
			xor:     0xCD,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Encode(tt.id, tt.address, tt.payload, f)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !bytes.Equal(msg.Bytes(), tt.want) {
				t.Errorf("Bytes() = % X, want % X", msg.Bytes(), tt.want)
			}
			if msg.Checksum() != tt.sum {
				t.Errorf("Checksum() = %d, want %d", msg.Checksum(), tt.sum)
			}
			if msg.XOR() != tt.xor {
				t.Errorf("XOR() = %d, want %d", msg.XOR(), tt.xor)
			}
			if msg.ID() != tt.id {
				t.Errorf("ID() = %v, want %v", msg.ID(), tt.id)
			}
			if msg.Address() != tt.address {
				t.Errorf("Address() = %d, want %d", msg.Address(), tt.address)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	f := DefaultFraming()

	tests := []struct {
		name    string
		id      Identifier
		payload []byte
		framing Framing
		wantErr error
	}{
		{name: "payload too short", id: CmdAmpSetCurrent, payload: []byte{0x01}, framing: f, wantErr: ErrPayloadLength},
		{name: "payload too long", id: CmdAmpEnable, payload: []byte{0x00, 0x07}, framing: f, wantErr: ErrPayloadLength},
		{name: "missing payload", id: CmdSeedSetTemperature, payload: nil, framing: f, wantErr: ErrPayloadLength},
		{name: "unknown command", id: Command(0xEE), payload: nil, framing: f, wantErr: ErrUnknownIdentifier},
		{name: "nil identifier", id: nil, payload: nil, framing: f, wantErr: ErrUnknownIdentifier},
		{name: "empty header", id: CmdAmpStatus, payload: nil, framing: Framing{Terminator: []byte("\r\n")}, wantErr: ErrInvalidFraming},
		{name: "empty terminator", id: CmdAmpStatus, payload: nil, framing: Framing{Header: []byte("P")}, wantErr: ErrInvalidFraming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.id, 1, tt.payload, tt.framing)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Encode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeCopiesPayload(t *testing.T) {
	payload := []byte{0x01, 0x02}
	msg, err := Encode(CmdAmpSetCurrent, 1, payload, DefaultFraming())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	payload[0] = 0xFF
	if got := msg.Payload(); got[0] != 0x01 {
		t.Errorf("message payload changed with caller slice: % X", got)
	}

	out := msg.Payload()
	out[1] = 0xFF
	if got := msg.Payload(); got[1] != 0x02 {
		t.Errorf("Payload() exposes internal storage: % X", got)
	}
}

func TestDecode(t *testing.T) {
	frame := []byte("P")
	frame = append(frame, 0x00, 0x64) // host and slave address
	frame = append(frame, 0xB3)       // command byte
	frame = append(frame, 0x04)       // payload length
	frame = binary.BigEndian.AppendUint16(frame, 25_000)
	frame = binary.BigEndian.AppendUint16(frame, 25_025)
	frame = append(frame, 0x46, 0xBA) // checksum, xor
	frame = append(frame, "\r\n"...)

	msg, err := Decode(frame, 100, DefaultFraming())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if msg.Address() != 100 {
		t.Errorf("Address() = %d, want 100", msg.Address())
	}
	if msg.ID() != RetSeedSetTemperature {
		t.Errorf("ID() = %v, want %v", msg.ID(), RetSeedSetTemperature)
	}
	if msg.ID().Class() != ClassReturn {
		t.Errorf("Class() = %v, want %v", msg.ID().Class(), ClassReturn)
	}
	wantPayload := []byte{0x61, 0xA8, 0x61, 0xC1}
	if !bytes.Equal(msg.Payload(), wantPayload) {
		t.Errorf("Payload() = % X, want % X", msg.Payload(), wantPayload)
	}
	if p, ok := msg.Param(); !ok || p != 1638425025 {
		t.Errorf("Param() = %d, %v, want 1638425025, true", p, ok)
	}
	if msg.Checksum() != 70 {
		t.Errorf("Checksum() = %d, want 70", msg.Checksum())
	}
	if msg.XOR() != 186 {
		t.Errorf("XOR() = %d, want 186", msg.XOR())
	}
	if !bytes.Equal(msg.Bytes(), frame) {
		t.Errorf("Bytes() = % X, want % X", msg.Bytes(), frame)
	}
}

func TestDecodeSeedStatusFrame(t *testing.T) {
	msg, err := Decode(seedStatusFrame, 100, DefaultFraming())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.ID() != RetSeedStatus {
		t.Errorf("ID() = %v, want %v", msg.ID(), RetSeedStatus)
	}
	if len(msg.Payload()) != 40 {
		t.Errorf("len(Payload()) = %d, want 40", len(msg.Payload()))
	}
	if _, ok := msg.Param(); ok {
		t.Error("Param() should not fit a 40 byte payload into uint64")
	}
}

func TestDecodeErrors(t *testing.T) {
	f := DefaultFraming()
	valid := func() []byte { return append([]byte(nil), seedStatusFrame...) }

	tests := []struct {
		name     string
		frame    []byte
		address  byte
		wantErr  error
		wantKind FrameErrorKind
	}{
		{
			name:     "bad header",
			frame:    func() []byte { b := valid(); b[0] = 'Q'; return b }(),
			address:  100,
			wantErr:  ErrBadHeader,
			wantKind: KindBadHeader,
		},
		{
			name:     "bad terminator",
			frame:    func() []byte { b := valid(); b[len(b)-1] = '\r'; return b }(),
			address:  100,
			wantErr:  ErrBadTerminator,
			wantKind: KindBadTerminator,
		},
		{
			name:     "other device address",
			frame:    valid(),
			address:  101,
			wantErr:  ErrBadAddress,
			wantKind: KindBadAddress,
		},
		{
			name:     "unknown command",
			frame:    func() []byte { b := valid(); b[3] = 0xEE; return b }(),
			address:  100,
			wantErr:  ErrUnknownCommand,
			wantKind: KindUnknownCommand,
		},
		{
			name:     "truncated",
			frame:    []byte{0x50, 0x00, 0x64, 0x0D, 0x0A},
			address:  100,
			wantErr:  ErrShortFrame,
			wantKind: KindShortFrame,
		},
		{
			name:     "payload shorter than table",
			frame:    []byte{0x50, 0x00, 0x64, 0x41, 0x01, 0x05, 0xAB, 0xA0, 0x0D, 0x0A},
			address:  100,
			wantErr:  ErrShortFrame,
			wantKind: KindShortFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.frame, tt.address, f)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("Decode() error %T is not *FrameError", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", fe.Kind, tt.wantKind)
			}
			if !IsFrameError(err) {
				t.Error("IsFrameError() = false, want true")
			}
		})
	}
}

func TestDecodeDetectsTampering(t *testing.T) {
	f := DefaultFraming()
	hl := len(f.Header)
	trailer := len(seedStatusFrame) - len(f.Terminator) - 2
	payloadStart := hl + 4

	for i := payloadStart; i < trailer+2; i++ {
		for _, flip := range []func(byte) byte{
			func(b byte) byte { return b ^ 0xFF },
			func(b byte) byte { return b + 1 },
			func(b byte) byte { return b ^ 0x80 },
		} {
			frame := append([]byte(nil), seedStatusFrame...)
			frame[i] = flip(frame[i])

			_, err := Decode(frame, 100, f)
			if !errors.Is(err, ErrChecksumMismatch) && !errors.Is(err, ErrXorMismatch) {
				t.Fatalf("byte %d flipped to 0x%02X: Decode() error = %v, want checksum or xor mismatch", i, frame[i], err)
			}
			if i == trailer+1 && !errors.Is(err, ErrXorMismatch) {
				t.Errorf("xor byte flipped: error = %v, want ErrXorMismatch", err)
			}
		}
	}
}

func TestDecodeLengthByteMismatchIsNotFatal(t *testing.T) {
	// SET_CURRENT return with a length byte of 3 but the two bytes the table expects
	body := []byte{0x00, 0x64, 0x41, 0x03, 0x01, 0xF4}
	frame := append([]byte("P"), body...)
	frame = append(frame, Checksum(body), XORCheck(body))
	frame = append(frame, "\r\n"...)

	msg, err := Decode(frame, 100, DefaultFraming())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v, _ := msg.Param(); v != 500 {
		t.Errorf("Param() = %d, want 500", v)
	}
}

func TestRoundTrip(t *testing.T) {
	f := DefaultFraming()
	little := Framing{Header: []byte{0x50, 0x00, 0x00}, Terminator: []byte("\r\n"), Order: binary.LittleEndian}

	pattern := func(n int) []byte {
		if n == 0 {
			return nil
		}
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(i*29 + 7)
		}
		return b
	}

	for _, framing := range []Framing{f, little} {
		for _, cmd := range Commands() {
			n, _ := cmd.ParamLength()
			payload := pattern(n)

			msg, err := Encode(cmd, 42, payload, framing)
			if err != nil {
				t.Fatalf("Encode(%v) error = %v", cmd, err)
			}
			got, err := DecodeCommand(msg.Bytes(), 42, framing)
			if err != nil {
				t.Fatalf("DecodeCommand(%v) error = %v", cmd, err)
			}
			if got.ID() != cmd || got.Address() != 42 || !bytes.Equal(got.Payload(), payload) {
				t.Errorf("%v: round trip = %v % X, want %v % X", cmd, got.ID(), got.Payload(), cmd, payload)
			}
		}

		for _, ret := range Returns() {
			n, _ := ret.ParamLength()
			payload := pattern(n)

			msg, err := Encode(ret, 200, payload, framing)
			if err != nil {
				t.Fatalf("Encode(%v) error = %v", ret, err)
			}
			got, err := Decode(msg.Bytes(), 200, framing)
			if err != nil {
				t.Fatalf("Decode(%v) error = %v", ret, err)
			}
			if got.ID() != ret || got.Address() != 200 || !bytes.Equal(got.Payload(), payload) {
				t.Errorf("%v: round trip = %v % X, want %v % X", ret, got.ID(), got.Payload(), ret, payload)
			}
			if got.Checksum() != msg.Checksum() || got.XOR() != msg.XOR() {
				t.Errorf("%v: trailer = %d/%d, want %d/%d", ret, got.Checksum(), got.XOR(), msg.Checksum(), msg.XOR())
			}
		}
	}
}

func TestPutParam(t *testing.T) {
	tests := []struct {
		name    string
		value   uint64
		n       int
		order   binary.ByteOrder
		want    []byte
		wantErr bool
	}{
		{name: "two bytes big endian", value: 150, n: 2, order: binary.BigEndian, want: []byte{0x00, 0x96}},
		{name: "two bytes little endian", value: 150, n: 2, order: binary.LittleEndian, want: []byte{0x96, 0x00}},
		{name: "nil order is big endian", value: 0x010203, n: 3, order: nil, want: []byte{0x01, 0x02, 0x03}},
		{name: "enable mask", value: 0b111, n: 1, order: binary.BigEndian, want: []byte{0x07}},
		{name: "zero width", value: 0, n: 0, order: binary.BigEndian, want: []byte{}},
		{name: "overflow", value: 0x1_0000, n: 2, order: binary.BigEndian, wantErr: true},
		{name: "zero width overflow", value: 1, n: 0, order: binary.BigEndian, wantErr: true},
		{name: "too wide", value: 1, n: 9, order: binary.BigEndian, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PutParam(tt.value, tt.n, tt.order)
			if tt.wantErr {
				if !errors.Is(err, ErrParamOverflow) {
					t.Errorf("PutParam() error = %v, want ErrParamOverflow", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PutParam() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("PutParam() = % X, want % X", got, tt.want)
			}
			if tt.n > 0 && Uint(got, tt.order) != tt.value {
				t.Errorf("Uint(PutParam()) = %d, want %d", Uint(got, tt.order), tt.value)
			}
		})
	}
}
