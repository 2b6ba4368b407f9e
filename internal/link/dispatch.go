package link

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/precilaser/internal/protocol"
)

// ErrPayloadMissing is returned when a registered return arrives without
// the payload its handler needs
var ErrPayloadMissing = errors.New("return frame has no payload")

// Handler consumes the payload of one return frame
type Handler func(payload []byte) error

// Dispatcher routes every decoded return frame to the handler registered
// for its identifier. Frames without a handler pass through untouched.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[protocol.Return]Handler
}

// NewDispatcher returns an empty dispatch table
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[protocol.Return]Handler)}
}

// Register sets the handler for ret, replacing any previous one
func (d *Dispatcher) Register(ret protocol.Return, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[ret] = h
}

// Handles reports whether ret has a handler
func (d *Dispatcher) Handles(ret protocol.Return) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[ret]
	return ok
}

// Dispatch runs the handler for msg, if any
func (d *Dispatcher) Dispatch(msg protocol.Message) error {
	return d.dispatch(msg.ID(), msg.Payload())
}

func (d *Dispatcher) dispatch(id protocol.Identifier, payload []byte) error {
	ret, ok := id.(protocol.Return)
	if !ok {
		return nil
	}

	d.mu.RLock()
	h, ok := d.handlers[ret]
	d.mu.RUnlock()
	if !ok {
		return nil
	}

	if payload == nil {
		return fmt.Errorf("%w: %s", ErrPayloadMissing, ret)
	}
	if err := h(payload); err != nil {
		return fmt.Errorf("handle %s: %w", ret, err)
	}
	return nil
}

// Slot holds the latest value produced by a bound handler
type Slot[T any] struct {
	mu      sync.RWMutex
	value   T
	set     bool
	updated time.Time
}

// Load returns the latest value and whether one was ever stored
func (s *Slot[T]) Load() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.set
}

// Store replaces the value
func (s *Slot[T]) Store(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.set = true
	s.updated = time.Now()
}

// Updated returns when the value was last stored
func (s *Slot[T]) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// Bind registers a handler that decodes ret payloads with transform and
// stores the result in slot. A transform error leaves the slot unchanged.
func Bind[T any](d *Dispatcher, ret protocol.Return, slot *Slot[T], transform func(payload []byte) (T, error)) {
	d.Register(ret, func(payload []byte) error {
		v, err := transform(payload)
		if err != nil {
			return err
		}
		slot.Store(v)
		return nil
	})
}
