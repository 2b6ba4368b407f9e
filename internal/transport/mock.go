package transport

import "sync"

// Mock is an in-memory Port for tests and simulators.
//
// Inbound bytes are queued with Feed. Reads never block: a read that cannot
// be satisfied from the queue returns ErrTimeout. Errors queued with
// FailRead are returned by the next read calls, one each, before any data.
type Mock struct {
	mu       sync.Mutex
	inbound  []byte
	readErrs []error
	writeErr error
	writes   [][]byte
	respond  func(written []byte) []byte
	closed   bool
}

// NewMock returns an empty mock port
func NewMock() *Mock {
	return &Mock{}
}

// Feed queues inbound bytes
func (m *Mock) Feed(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.inbound = append(m.inbound, c...)
	}
}

// FailRead queues an error for the next read call
func (m *Mock) FailRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs = append(m.readErrs, err)
}

// FailWrite makes every following write fail with err. nil clears it.
func (m *Mock) FailWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// OnWrite installs a hook that sees every written chunk. Whatever it
// returns is queued as inbound bytes, which is how tests script replies.
func (m *Mock) OnWrite(fn func(written []byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
}

// Writes returns a copy of every chunk written so far
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Pending returns the number of queued inbound bytes
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inbound)
}

// Closed reports whether Close was called
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Read implements Port
func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if len(m.readErrs) > 0 {
		err := m.readErrs[0]
		m.readErrs = m.readErrs[1:]
		return 0, err
	}

	n := copy(p, m.inbound)
	m.inbound = m.inbound[n:]
	if n < len(p) {
		return n, ErrTimeout
	}
	return n, nil
}

// ReadByte implements io.ByteReader
func (m *Mock) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := m.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Write implements Port
func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrClosed
	}
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return 0, err
	}
	chunk := append([]byte(nil), p...)
	m.writes = append(m.writes, chunk)
	respond := m.respond
	m.mu.Unlock()

	if respond != nil {
		if reply := respond(chunk); len(reply) > 0 {
			m.Feed(reply)
		}
	}
	return len(p), nil
}

// Buffered implements Port
func (m *Mock) Buffered() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.inbound), nil
}

// ReadAvailable implements Port
func (m *Mock) ReadAvailable() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := m.inbound
	m.inbound = nil
	return out, nil
}

// Close implements Port
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
