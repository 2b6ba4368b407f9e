package device

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/precilaser/internal/link"
	"github.com/muurk/precilaser/internal/logging"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/status"
	"github.com/muurk/precilaser/internal/transport"
)

// Amplifier current limits. The wire carries hundredths of an amp in two
// bytes.
const (
	MinCurrent = 0.0
	MaxCurrent = 655.35
)

// enable masks for the three driver channels
const (
	enableAll  = 0b111
	enableNone = 0b000
)

// Amplifier drives a fiber amplifier.
//
// Amplifiers report status on their own at a fixed interval. Every status
// frame read on the link, requested or not, refreshes the cached status.
type Amplifier struct {
	base
	status link.Slot[status.Amplifier]
}

var _ Device = (*Amplifier)(nil)

// NewAmplifier binds an amplifier at opts.Address to port
func NewAmplifier(port transport.Port, opts Options) (*Amplifier, error) {
	b, err := newBase(port, FamilyAmplifier, opts)
	if err != nil {
		return nil, err
	}

	a := &Amplifier{base: b}
	order := b.order()
	link.Bind(b.link.Dispatcher(), protocol.RetAmpStatus, &a.status, func(p []byte) (status.Amplifier, error) {
		return status.DecodeAmplifier(p, order)
	})
	return a, nil
}

// QueryStatus requests a status report and returns it
func (a *Amplifier) QueryStatus() (status.Amplifier, error) {
	if _, err := a.link.Request(protocol.CmdAmpStatus, nil, protocol.RetAmpStatus); err != nil {
		return status.Amplifier{}, fmt.Errorf("query amplifier status: %w", err)
	}
	s, _ := a.status.Load()
	return s, nil
}

// Status returns the last status seen on the link without any I/O
func (a *Amplifier) Status() (status.Amplifier, bool) {
	return a.status.Load()
}

// Fault reports whether the cached status shows a fault. It is false until
// a status has been received.
func (a *Amplifier) Fault() bool {
	s, ok := a.status.Load()
	if !ok {
		return false
	}
	return s.Fault()
}

// SetCurrent sets the driver current in amps and waits for the echo
func (a *Amplifier) SetCurrent(amps float64) error {
	v, err := scaled("current", amps, 100, MinCurrent, MaxCurrent, "A")
	if err != nil {
		return err
	}
	payload, err := protocol.PutParam(v, 2, a.order())
	if err != nil {
		return err
	}

	msg, err := a.link.Request(protocol.CmdAmpSetCurrent, payload, protocol.RetAmpSetCurrent)
	if err != nil {
		return fmt.Errorf("set current: %w", err)
	}
	if err := echo("set current", msg, 2, v, a.order()); err != nil {
		return err
	}

	logging.Info("Amplifier current set",
		zap.Uint8("address", a.Address()),
		zap.Float64("amps", float64(v)/100),
	)
	return nil
}

// Enable switches all driver channels on. The amplifier does not
// acknowledge the command; check Status for the driver unlock bits.
func (a *Amplifier) Enable() error {
	return a.setEnable(enableAll)
}

// Disable switches all driver channels off. Like Enable it is not
// acknowledged.
func (a *Amplifier) Disable() error {
	return a.setEnable(enableNone)
}

func (a *Amplifier) setEnable(mask byte) error {
	if _, err := a.link.Send(protocol.CmdAmpEnable, []byte{mask}); err != nil {
		return fmt.Errorf("set enable mask %03b: %w", mask, err)
	}
	logging.Info("Amplifier enable mask written",
		zap.Uint8("address", a.Address()),
		zap.Uint8("mask", mask),
	)
	return nil
}

// SetPowerStabilization turns output power stabilization on or off and
// waits for the echo
func (a *Amplifier) SetPowerStabilization(on bool) error {
	var v uint64
	if on {
		v = 1
	}

	msg, err := a.link.Request(protocol.CmdAmpPowerStabilization, []byte{byte(v)}, protocol.RetAmpPowerStabilization)
	if err != nil {
		return fmt.Errorf("set power stabilization: %w", err)
	}
	return echo("set power stabilization", msg, 1, v, a.order())
}
