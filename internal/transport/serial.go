package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/muurk/precilaser/internal/logging"
)

// Serial port defaults. Both instrument families talk 115200 8N1.
const (
	DefaultBaudRate     = 115200
	DefaultReadTimeout  = 2 * time.Second
	DefaultPollInterval = 10 * time.Millisecond

	pollChunk = 256
)

// SerialConfig describes how to open a serial port
type SerialConfig struct {
	// Name is the OS device, e.g. /dev/ttyUSB0 or COM3
	Name string
	// BaudRate defaults to 115200
	BaudRate int
	// ReadTimeout bounds a single Read or ReadByte
	ReadTimeout time.Duration
	// PollInterval is how long Buffered waits for bytes already in flight
	PollInterval time.Duration
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// rawPort is the subset of serial.Port that Serial uses
type rawPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// Serial is a Port backed by go.bug.st/serial.
//
// go.bug.st/serial has no "bytes waiting" query, so Buffered polls the
// device with a short read timeout and keeps what it gets in a pending
// buffer that later reads consume first.
type Serial struct {
	cfg SerialConfig

	mu      sync.Mutex
	port    rawPort
	pending []byte
	closed  bool
}

// OpenSerial opens the named port at 8N1 with the configured baud rate
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	cfg = cfg.withDefaults()
	if cfg.Name == "" {
		return nil, fmt.Errorf("no serial port given")
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}

	s, err := newSerial(cfg, port)
	if err != nil {
		_ = port.Close()
		return nil, err
	}

	logging.LogPortEvent(cfg.Name, "opened",
		zap.Int("baud", cfg.BaudRate),
		zap.Duration("read_timeout", cfg.ReadTimeout),
	)
	return s, nil
}

func newSerial(cfg SerialConfig, port rawPort) (*Serial, error) {
	cfg = cfg.withDefaults()
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return &Serial{cfg: cfg, port: port}, nil
}

// Name returns the OS device name
func (s *Serial) Name() string { return s.cfg.Name }

// ReadByte returns the next inbound byte
func (s *Serial) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Read fills p from the pending buffer and then the device
func (s *Serial) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	for n < len(p) {
		m, err := s.port.Read(p[n:])
		if err != nil {
			return n, s.mapError(err)
		}
		if m == 0 {
			return n, ErrTimeout
		}
		n += m
	}
	return n, nil
}

// Write sends p in full
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	written := 0
	for written < len(p) {
		n, err := s.port.Write(p[written:])
		if err != nil {
			return written, s.mapError(err)
		}
		written += n
	}
	return written, nil
}

// Buffered polls the device for bytes already in flight
func (s *Serial) Buffered() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if err := s.poll(); err != nil {
		return len(s.pending), err
	}
	return len(s.pending), nil
}

// ReadAvailable returns everything that arrives within one poll interval
func (s *Serial) ReadAvailable() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	err := s.poll()
	out := s.pending
	s.pending = nil
	return out, err
}

// poll must be called with mu held
func (s *Serial) poll() error {
	if err := s.port.SetReadTimeout(s.cfg.PollInterval); err != nil {
		return s.mapError(err)
	}
	defer func() { _ = s.port.SetReadTimeout(s.cfg.ReadTimeout) }()

	buf := make([]byte, pollChunk)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			return s.mapError(err)
		}
		if n == 0 {
			return nil
		}
		s.pending = append(s.pending, buf[:n]...)
		if n < len(buf) {
			return nil
		}
	}
}

// Close releases the port. Closing twice is not an error.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil

	err := s.port.Close()
	logging.LogPortEvent(s.cfg.Name, "closed")
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.cfg.Name, err)
	}
	return nil
}

func (s *Serial) mapError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %s", ErrClosed, s.cfg.Name)
	}
	return fmt.Errorf("serial %s: %w", s.cfg.Name, err)
}

// PortInfo describes a serial port found on the host
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListPorts enumerates serial ports with USB details where available
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}
