package sim

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/status"
)

// Seed simulates a seed laser. Each status query moves the actual
// temperature halfway to the setpoint.
type Seed struct {
	*Instrument

	mu    sync.Mutex
	state status.Seed
	order binary.ByteOrder
}

// NewSeed returns a seed in the state captured from a real unit
func NewSeed(address byte, f protocol.Framing) *Seed {
	s := &Seed{
		Instrument: NewInstrument(address, f),
		order:      f.ByteOrder(),
		state: status.Seed{
			TemperatureSet:   25.0,
			CurrentSet:       500,
			TemperatureDiode: 25.033,
			TemperatureAct:   25.087,
			CurrentAct:       22,
			RunHours:         850,
			RunMinutes:       11,
			Wavelength:       1086.7321,
			Power:            1,
		},
	}

	s.Handle(protocol.CmdSeedStatus, func([]byte) (protocol.Return, []byte, bool) {
		s.Update(func(st *status.Seed) {
			st.TemperatureAct = math.Round((st.TemperatureAct+st.TemperatureSet)/2*1000) / 1000
		})
		return protocol.RetSeedStatus, EncodeSeed(s.State(), s.order), true
	})
	s.Handle(protocol.CmdSeedSetTemperature, func(p []byte) (protocol.Return, []byte, bool) {
		set := protocol.Uint(p[:2], s.order)
		s.Update(func(st *status.Seed) { st.TemperatureSet = float64(set) / 1000 })

		reply := make([]byte, 4)
		copy(reply, p[:2])
		s.order.PutUint16(reply[2:], uint16(math.Round(s.State().TemperatureAct*1000)))
		return protocol.RetSeedSetTemperature, reply, true
	})
	s.Handle(protocol.CmdSeedSetPiezoVoltage, func(p []byte) (protocol.Return, []byte, bool) {
		v := protocol.Uint(p[:2], s.order)
		s.Update(func(st *status.Seed) { st.PiezoVoltage = float64(v) / 100 })
		return protocol.RetSeedSetPiezoVoltage, p[:2], true
	})
	return s
}

// State returns the current simulated status
func (s *Seed) State() status.Seed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update changes the simulated status
func (s *Seed) Update(fn func(*status.Seed)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// EncodeSeed renders s into a 40 byte status payload. Bytes without a
// known field are zero.
func EncodeSeed(s status.Seed, order binary.ByteOrder) []byte {
	if order == nil {
		order = binary.BigEndian
	}
	p := make([]byte, status.SeedSize)

	order.PutUint16(p[0:], uint16(math.Round(s.TemperatureSet*1000)))
	order.PutUint16(p[4:], s.CurrentSet)
	order.PutUint16(p[15:], uint16(math.Round(s.TemperatureDiode*1000)))
	order.PutUint16(p[18:], uint16(math.Round(s.TemperatureAct*1000)))
	order.PutUint16(p[23:], s.CurrentAct)
	order.PutUint16(p[27:], s.RunHours)
	p[29] = s.RunMinutes
	order.PutUint32(p[30:], uint32(math.Round(s.Wavelength*10000)))
	order.PutUint16(p[34:], uint16(math.Round(s.PiezoVoltage*100)))
	order.PutUint16(p[36:], s.Power)
	if s.Emission {
		p[38] = 1
	}
	return p
}
