package status

import "encoding/binary"

// SeedSize is the length of a SEED_STATUS payload
const SeedSize = 40

// Seed status payload offsets. Bytes not listed here are kept in Seed.Raw.
const (
	seedTemperatureSetOffset   = 0
	seedCurrentSetOffset       = 4
	seedTemperatureDiodeOffset = 15
	seedTemperatureActOffset   = 18
	seedCurrentActOffset       = 23
	seedRunHoursOffset         = 27
	seedRunMinutesOffset       = 29
	seedWavelengthOffset       = 30
	seedPiezoVoltageOffset     = 34
	seedPowerOffset            = 36
	seedEmissionOffset         = 38
)

// Seed is a decoded SEED_STATUS payload
type Seed struct {
	TemperatureSet   float64 `json:"temperature_set_c"`
	CurrentSet       uint16  `json:"current_set_ma"`
	TemperatureDiode float64 `json:"temperature_diode_c"`
	TemperatureAct   float64 `json:"temperature_act_c"`
	CurrentAct       uint16  `json:"current_act_ma"`
	RunHours         uint16  `json:"run_hours"`
	RunMinutes       uint8   `json:"run_minutes"`
	Wavelength       float64 `json:"wavelength_nm"`
	PiezoVoltage     float64 `json:"piezo_voltage_v"`
	Power            uint16  `json:"power"`
	Emission         bool    `json:"emission"`
	Raw              []byte  `json:"-"`
}

// DecodeSeed decodes a 40 byte SEED_STATUS payload. A nil order means big
// endian.
func DecodeSeed(payload []byte, order binary.ByteOrder) (Seed, error) {
	if len(payload) != SeedSize {
		return Seed{}, &DecodeError{Kind: "seed", Got: len(payload), Want: SeedSize}
	}
	if order == nil {
		order = binary.BigEndian
	}

	u16 := func(off int) uint16 { return order.Uint16(payload[off : off+2]) }

	return Seed{
		TemperatureSet:   float64(u16(seedTemperatureSetOffset)) / 1000,
		CurrentSet:       u16(seedCurrentSetOffset),
		TemperatureDiode: float64(u16(seedTemperatureDiodeOffset)) / 1000,
		TemperatureAct:   float64(u16(seedTemperatureActOffset)) / 1000,
		CurrentAct:       u16(seedCurrentActOffset),
		RunHours:         u16(seedRunHoursOffset),
		RunMinutes:       payload[seedRunMinutesOffset],
		Wavelength:       float64(order.Uint32(payload[seedWavelengthOffset:seedWavelengthOffset+4])) / 10000,
		PiezoVoltage:     float64(u16(seedPiezoVoltageOffset)) / 100,
		Power:            u16(seedPowerOffset),
		Emission:         payload[seedEmissionOffset] != 0,
		Raw:              append([]byte(nil), payload...),
	}, nil
}
