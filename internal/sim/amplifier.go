package sim

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/status"
)

// Amplifier simulates a fiber amplifier's status register file
type Amplifier struct {
	*Instrument

	mu     sync.Mutex
	state  status.Amplifier
	enable byte
	stab   bool
	order  binary.ByteOrder
}

// NewAmplifier returns a stable, disabled amplifier at room temperature
func NewAmplifier(address byte, f protocol.Framing) *Amplifier {
	a := &Amplifier{
		Instrument: NewInstrument(address, f),
		order:      f.ByteOrder(),
		state: status.Amplifier{
			Stable:       true,
			Temperatures: [4]float64{25.0, 25.0, 25.0, 25.0},
		},
	}

	a.Handle(protocol.CmdAmpStatus, func([]byte) (protocol.Return, []byte, bool) {
		return protocol.RetAmpStatus, a.payload(), true
	})
	a.Handle(protocol.CmdAmpSetCurrent, func(p []byte) (protocol.Return, []byte, bool) {
		amps := float64(protocol.Uint(p, a.order)) / 100
		a.Update(func(s *status.Amplifier) {
			for i := range s.DriverCurrent {
				s.DriverCurrent[i] = amps
			}
		})
		return protocol.RetAmpSetCurrent, p, true
	})
	a.Handle(protocol.CmdAmpEnable, func(p []byte) (protocol.Return, []byte, bool) {
		// the driver unlock byte doubles as the low system status byte, so
		// the mask is kept aside rather than reported as a fault
		a.mu.Lock()
		a.enable = p[0] & 0b111
		a.mu.Unlock()
		return 0, nil, false
	})
	a.Handle(protocol.CmdAmpPowerStabilization, func(p []byte) (protocol.Return, []byte, bool) {
		a.mu.Lock()
		a.stab = p[0] != 0
		a.mu.Unlock()
		return protocol.RetAmpPowerStabilization, p, true
	})
	return a
}

// State returns the current simulated status
func (a *Amplifier) State() status.Amplifier {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// EnableMask returns the last enable mask written by the host
func (a *Amplifier) EnableMask() byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enable
}

// PowerStabilization reports the last stabilization state written
func (a *Amplifier) PowerStabilization() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stab
}

// Update changes the simulated status
func (a *Amplifier) Update(fn func(*status.Amplifier)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.state)
}

// PushStatus queues an unsolicited status report, as the firmware sends
// on its own timer
func (a *Amplifier) PushStatus() error {
	return a.Push(protocol.RetAmpStatus, a.payload())
}

func (a *Amplifier) payload() []byte {
	return EncodeAmplifier(a.State(), a.order)
}

// EncodeAmplifier renders s into a 64 byte status payload. Overlapping
// fields are written in layout order, so the driver unlock register wins
// over the low system status byte and the photodiode status bytes win
// over the last photodiode value.
func EncodeAmplifier(s status.Amplifier, order binary.ByteOrder) []byte {
	if order == nil {
		order = binary.BigEndian
	}
	p := make([]byte, status.AmplifierSize)

	if s.Stable {
		p[0] = 1
	}
	order.PutUint16(p[3:], uint16(s.System))
	p[4] = byte(s.Driver)
	for i, c := range s.DriverCurrent {
		order.PutUint16(p[7+2*i:], uint16(math.Round(c*100)))
	}
	for i, v := range s.PDValue {
		order.PutUint16(p[28+2*i:], v)
	}
	for i, v := range s.PDStatus {
		p[36+i] = byte(v)
	}
	for i, t := range s.Temperatures {
		order.PutUint16(p[42+2*i:], uint16(math.Round(t*100)))
	}
	return p
}
