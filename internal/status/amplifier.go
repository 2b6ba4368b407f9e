package status

import (
	"encoding/binary"
	"encoding/json"
)

// AmplifierSize is the length of an AMP_STATUS payload
const AmplifierSize = 64

// Amplifier status payload offsets
const (
	ampStableOffset      = 0
	ampSystemOffset      = 3
	ampDriverOffset      = 4
	ampCurrentOffset     = 7
	ampPDValueOffset     = 28
	ampPDStatusOffset    = 36
	ampTemperatureOffset = 42
)

// SystemStatus is the amplifier system status register
type SystemStatus uint16

// PDProtection returns the photodiode protection bits 4 to 7
func (s SystemStatus) PDProtection() [4]bool {
	var out [4]bool
	for i := range out {
		out[i] = s>>(4+i)&1 == 1
	}
	return out
}

// TemperatureProtection returns the temperature protection bits 8 to 12
func (s SystemStatus) TemperatureProtection() [5]bool {
	var out [5]bool
	for i := range out {
		out[i] = s>>(8+i)&1 == 1
	}
	return out
}

// Fault is set whenever any bit of the register is set
func (s SystemStatus) Fault() bool {
	return s != 0
}

// MarshalJSON renders the decoded bits
func (s SystemStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Raw                   uint16  `json:"raw"`
		PDProtection          [4]bool `json:"pd_protection"`
		TemperatureProtection [5]bool `json:"temperature_protection"`
		Fault                 bool    `json:"fault"`
	}{uint16(s), s.PDProtection(), s.TemperatureProtection(), s.Fault()})
}

// DriverUnlock is the amplifier driver unlock register
type DriverUnlock byte

// EnableControl returns bits 0 to 2
func (d DriverUnlock) EnableControl() [3]bool {
	return [3]bool{d&1 != 0, d&2 != 0, d&4 != 0}
}

// EnableFlag returns bits 3 to 5
func (d DriverUnlock) EnableFlag() [3]bool {
	return [3]bool{d&8 != 0, d&16 != 0, d&32 != 0}
}

// Interlock returns bit 6
func (d DriverUnlock) Interlock() bool {
	return d&64 != 0
}

// MarshalJSON renders the decoded bits
func (d DriverUnlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Raw           uint8   `json:"raw"`
		EnableControl [3]bool `json:"enable_control"`
		EnableFlag    [3]bool `json:"enable_flag"`
		Interlock     bool    `json:"interlock"`
	}{uint8(d), d.EnableControl(), d.EnableFlag(), d.Interlock()})
}

// PDStatus is the status byte of one photodiode channel
type PDStatus byte

const (
	pdSamplingEnable PDStatus = 1 << iota
	pdHardwareProtection
	pdUpperLimitEnabled
	pdLowerLimitEnabled
	pdHardwareProtectionEvent
	pdUpperLimitEvent
	pdLowerLimitEvent
)

func (p PDStatus) SamplingEnabled() bool         { return p&pdSamplingEnable != 0 }
func (p PDStatus) HardwareProtection() bool      { return p&pdHardwareProtection != 0 }
func (p PDStatus) UpperLimitEnabled() bool       { return p&pdUpperLimitEnabled != 0 }
func (p PDStatus) LowerLimitEnabled() bool       { return p&pdLowerLimitEnabled != 0 }
func (p PDStatus) HardwareProtectionEvent() bool { return p&pdHardwareProtectionEvent != 0 }
func (p PDStatus) UpperLimitEvent() bool         { return p&pdUpperLimitEvent != 0 }
func (p PDStatus) LowerLimitEvent() bool         { return p&pdLowerLimitEvent != 0 }

// Fault is set when any of the three event bits is set
func (p PDStatus) Fault() bool {
	return p&(pdHardwareProtectionEvent|pdUpperLimitEvent|pdLowerLimitEvent) != 0
}

// MarshalJSON renders the decoded bits
func (p PDStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Raw                     uint8 `json:"raw"`
		SamplingEnabled         bool  `json:"sampling_enabled"`
		HardwareProtection      bool  `json:"hardware_protection"`
		UpperLimitEnabled       bool  `json:"upper_limit_enabled"`
		LowerLimitEnabled       bool  `json:"lower_limit_enabled"`
		HardwareProtectionEvent bool  `json:"hardware_protection_event"`
		UpperLimitEvent         bool  `json:"upper_limit_event"`
		LowerLimitEvent         bool  `json:"lower_limit_event"`
		Fault                   bool  `json:"fault"`
	}{
		uint8(p), p.SamplingEnabled(), p.HardwareProtection(),
		p.UpperLimitEnabled(), p.LowerLimitEnabled(),
		p.HardwareProtectionEvent(), p.UpperLimitEvent(), p.LowerLimitEvent(),
		p.Fault(),
	})
}

// Amplifier is a decoded AMP_STATUS payload.
//
// The fifth photodiode value overlaps the first two PD status bytes; both
// views are decoded from the same bytes, as the firmware reports them.
type Amplifier struct {
	Stable        bool         `json:"stable"`
	System        SystemStatus `json:"system_status"`
	Driver        DriverUnlock `json:"driver_unlock"`
	DriverCurrent [3]float64   `json:"driver_current_a"`
	PDValue       [5]uint16    `json:"pd_value"`
	PDStatus      [4]PDStatus  `json:"pd_status"`
	Temperatures  [4]float64   `json:"temperatures_c"`
	Raw           []byte       `json:"-"`
}

// DecodeAmplifier decodes a 64 byte AMP_STATUS payload. A nil order means
// big endian.
func DecodeAmplifier(payload []byte, order binary.ByteOrder) (Amplifier, error) {
	if len(payload) != AmplifierSize {
		return Amplifier{}, &DecodeError{Kind: "amplifier", Got: len(payload), Want: AmplifierSize}
	}
	if order == nil {
		order = binary.BigEndian
	}

	u16 := func(off int) uint16 { return order.Uint16(payload[off : off+2]) }

	a := Amplifier{
		Stable: payload[ampStableOffset] != 0,
		System: SystemStatus(u16(ampSystemOffset)),
		Driver: DriverUnlock(payload[ampDriverOffset]),
		Raw:    append([]byte(nil), payload...),
	}
	for i := range a.DriverCurrent {
		a.DriverCurrent[i] = float64(u16(ampCurrentOffset+2*i)) / 100
	}
	for i := range a.PDValue {
		a.PDValue[i] = u16(ampPDValueOffset + 2*i)
	}
	for i := range a.PDStatus {
		a.PDStatus[i] = PDStatus(payload[ampPDStatusOffset+i])
	}
	for i := range a.Temperatures {
		a.Temperatures[i] = float64(u16(ampTemperatureOffset+2*i)) / 100
	}
	return a, nil
}

// Fault reports a system status fault or a fault on any photodiode channel
func (a Amplifier) Fault() bool {
	if a.System.Fault() {
		return true
	}
	for _, pd := range a.PDStatus {
		if pd.Fault() {
			return true
		}
	}
	return false
}
