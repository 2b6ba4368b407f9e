package transport

import (
	"bytes"
	"errors"
	"testing"
)

var _ Port = (*Mock)(nil)
var _ Port = (*Serial)(nil)

func TestMockRead(t *testing.T) {
	m := NewMock()
	m.Feed([]byte{1, 2}, []byte{3})

	if n, _ := m.Buffered(); n != 3 {
		t.Fatalf("Buffered() = %d, want 3", n)
	}

	buf := make([]byte, 2)
	if n, err := m.Read(buf); err != nil || n != 2 || !bytes.Equal(buf, []byte{1, 2}) {
		t.Fatalf("Read() = %d % X %v", n, buf, err)
	}

	n, err := m.Read(buf)
	if !errors.Is(err, ErrTimeout) || n != 1 {
		t.Errorf("short Read() = %d, %v, want 1, ErrTimeout", n, err)
	}

	if _, err := m.ReadByte(); !errors.Is(err, ErrTimeout) {
		t.Errorf("ReadByte() on empty mock error = %v, want ErrTimeout", err)
	}
}

func TestMockFailRead(t *testing.T) {
	m := NewMock()
	m.Feed([]byte{0x50})
	m.FailRead(ErrOverrun)

	if _, err := m.ReadByte(); !IsOverrun(err) {
		t.Fatalf("first ReadByte() error = %v, want ErrOverrun", err)
	}
	b, err := m.ReadByte()
	if err != nil || b != 0x50 {
		t.Errorf("second ReadByte() = 0x%02X, %v, want 0x50", b, err)
	}
}

func TestMockOnWrite(t *testing.T) {
	m := NewMock()
	m.OnWrite(func(written []byte) []byte {
		return append([]byte("ack:"), written...)
	})

	if _, err := m.Write([]byte("hi")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.ReadAvailable()
	if err != nil {
		t.Fatalf("ReadAvailable() error = %v", err)
	}
	if string(got) != "ack:hi" {
		t.Errorf("ReadAvailable() = %q, want ack:hi", got)
	}
	if w := m.Writes(); len(w) != 1 || string(w[0]) != "hi" {
		t.Errorf("Writes() = %q", w)
	}
}

func TestMockFailWriteAndClose(t *testing.T) {
	m := NewMock()
	boom := errors.New("boom")
	m.FailWrite(boom)
	if _, err := m.Write([]byte{1}); !errors.Is(err, boom) {
		t.Errorf("Write() error = %v, want %v", err, boom)
	}
	if len(m.Writes()) != 0 {
		t.Error("failed write should not be recorded")
	}

	_ = m.Close()
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
	if _, err := m.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close error = %v, want ErrClosed", err)
	}
}
