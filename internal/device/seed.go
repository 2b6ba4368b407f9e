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

// Seed setpoint limits
const (
	MinPiezoVoltage = 0.0
	MaxPiezoVoltage = 74.0

	MinTemperature = 0.0
	MaxTemperature = 65.535
)

// EEPROM flag bytes appended to seed setpoint commands
const (
	eepromSave = '1'
	eepromSkip = '0'
)

// setpoints travel as two bytes ahead of the flag, and come back first in
// the reply
const setpointLen = 2

// SeedOptions configure a seed laser
type SeedOptions struct {
	Options
	// SaveToEEPROM makes setpoints survive a power cycle
	SaveToEEPROM bool
}

// Seed drives a seed laser.
//
// Temperature and piezo setpoints are written with a trailing EEPROM flag;
// the seed echoes the value it applied.
type Seed struct {
	base
	status link.Slot[status.Seed]
	save   bool
}

var _ Device = (*Seed)(nil)

// NewSeed binds a seed at opts.Address to port
func NewSeed(port transport.Port, opts SeedOptions) (*Seed, error) {
	b, err := newBase(port, FamilySeed, opts.Options)
	if err != nil {
		return nil, err
	}

	s := &Seed{base: b, save: opts.SaveToEEPROM}
	order := b.order()
	link.Bind(b.link.Dispatcher(), protocol.RetSeedStatus, &s.status, func(p []byte) (status.Seed, error) {
		return status.DecodeSeed(p, order)
	})
	return s, nil
}

// QueryStatus requests a status report and returns it
func (s *Seed) QueryStatus() (status.Seed, error) {
	if _, err := s.link.Request(protocol.CmdSeedStatus, nil, protocol.RetSeedStatus); err != nil {
		return status.Seed{}, fmt.Errorf("query seed status: %w", err)
	}
	st, _ := s.status.Load()
	return st, nil
}

// Status returns the last status seen on the link without any I/O
func (s *Seed) Status() (status.Seed, bool) {
	return s.status.Load()
}

// TemperatureSetpoint queries the seed and returns its temperature setpoint
// in °C
func (s *Seed) TemperatureSetpoint() (float64, error) {
	st, err := s.QueryStatus()
	if err != nil {
		return 0, err
	}
	return st.TemperatureSet, nil
}

// SetTemperatureSetpoint writes a temperature setpoint in °C
func (s *Seed) SetTemperatureSetpoint(celsius float64) error {
	v, err := scaled("temperature", celsius, 1000, MinTemperature, MaxTemperature, "°C")
	if err != nil {
		return err
	}
	if err := s.writeSetpoint("set temperature", protocol.CmdSeedSetTemperature, protocol.RetSeedSetTemperature, v); err != nil {
		return err
	}

	logging.Info("Seed temperature setpoint written",
		zap.Uint8("address", s.Address()),
		zap.Float64("celsius", float64(v)/1000),
		zap.Bool("eeprom", s.save),
	)
	return nil
}

// PiezoVoltage queries the seed and returns the piezo voltage in volts
func (s *Seed) PiezoVoltage() (float64, error) {
	st, err := s.QueryStatus()
	if err != nil {
		return 0, err
	}
	return st.PiezoVoltage, nil
}

// SetPiezoVoltage writes the piezo voltage. Values outside 0-74 V are
// rejected without touching the port.
func (s *Seed) SetPiezoVoltage(volts float64) error {
	v, err := scaled("piezo voltage", volts, 100, MinPiezoVoltage, MaxPiezoVoltage, "V")
	if err != nil {
		return err
	}
	if err := s.writeSetpoint("set piezo voltage", protocol.CmdSeedSetPiezoVoltage, protocol.RetSeedSetPiezoVoltage, v); err != nil {
		return err
	}

	logging.Info("Seed piezo voltage written",
		zap.Uint8("address", s.Address()),
		zap.Float64("volts", float64(v)/100),
		zap.Bool("eeprom", s.save),
	)
	return nil
}

func (s *Seed) writeSetpoint(operation string, cmd protocol.Command, ret protocol.Return, v uint64) error {
	payload, err := protocol.PutParam(v, setpointLen, s.order())
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	payload = append(payload, s.eepromFlag())

	msg, err := s.link.Request(cmd, payload, ret)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return echo(operation, msg, setpointLen, v, s.order())
}

func (s *Seed) eepromFlag() byte {
	if s.save {
		return eepromSave
	}
	return eepromSkip
}
