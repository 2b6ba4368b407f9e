package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/muurk/precilaser/internal/link"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/transport"
)

// Family identifies the kind of instrument behind an address
type Family int

const (
	FamilyAmplifier Family = iota
	FamilySeed
)

// String returns the family name used in profiles and flags
func (f Family) String() string {
	switch f {
	case FamilyAmplifier:
		return "amplifier"
	case FamilySeed:
		return "seed"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// ParseFamily accepts "amplifier"/"amp" and "seed"
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amplifier", "amp":
		return FamilyAmplifier, nil
	case "seed":
		return FamilySeed, nil
	default:
		return 0, fmt.Errorf("unknown device family %q (want amplifier or seed)", s)
	}
}

// Device is what every instrument family shares
type Device interface {
	Family() Family
	Address() byte
	// Drain reads and handles every frame already waiting on the port
	Drain() (int, error)
	Close() error
}

// Options configure how a device is addressed and framed
type Options struct {
	Address byte
	// Framing defaults to protocol.DefaultFraming when Header is empty
	Framing protocol.Framing
}

func (o Options) framing() protocol.Framing {
	if len(o.Framing.Header) == 0 && len(o.Framing.Terminator) == 0 {
		return protocol.DefaultFraming()
	}
	return o.Framing
}

// base is the link plumbing shared by Amplifier and Seed
type base struct {
	link   *link.Link
	family Family
}

func newBase(port transport.Port, family Family, opts Options) (base, error) {
	l, err := link.New(port, opts.Address, opts.framing())
	if err != nil {
		return base{}, fmt.Errorf("%s at address %d: %w", family, opts.Address, err)
	}
	return base{link: l, family: family}, nil
}

// Family returns the instrument family
func (b *base) Family() Family { return b.family }

// Address returns the device address
func (b *base) Address() byte { return b.link.Address() }

// Drain reads and handles every frame already waiting on the port
func (b *base) Drain() (int, error) { return b.link.Drain() }

// Close closes the port
func (b *base) Close() error { return b.link.Close() }

func (b *base) order() binary.ByteOrder { return b.link.Framing().ByteOrder() }

// scaled converts v to an integer count of 1/scale units, rejecting values
// that do not fit in two bytes
func scaled(parameter string, v, scale, min, max float64, unit string) (uint64, error) {
	if math.IsNaN(v) || v < min || v > max {
		return 0, &RangeError{Parameter: parameter, Value: v, Min: min, Max: max, Unit: unit}
	}
	return uint64(math.Round(v * scale)), nil
}

// echo checks the first n reply bytes against the requested value
func echo(operation string, msg protocol.Message, n int, want uint64, order binary.ByteOrder) error {
	payload := msg.Payload()
	if len(payload) < n {
		return fmt.Errorf("%s: %w", operation, link.ErrPayloadMissing)
	}
	got := protocol.Uint(payload[:n], order)
	if got != want {
		return &ConfirmationError{Operation: operation, Requested: want, Confirmed: got}
	}
	return nil
}
