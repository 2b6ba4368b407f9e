package protocol

import "fmt"

// Class separates host-to-device identifiers from device-to-host ones.
// The same byte value means different things depending on the class, and
// each class has its own param-length table.
type Class int

const (
	// ClassCommand marks frames sent by the host
	ClassCommand Class = iota
	// ClassReturn marks frames sent by the instrument, solicited or not
	ClassReturn
)

func (c Class) String() string {
	switch c {
	case ClassCommand:
		return "command"
	case ClassReturn:
		return "return"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Identifier is the command byte of a frame together with its class.
// The set of implementations is closed: Command and Return.
type Identifier interface {
	Class() Class
	Code() byte
	// ParamLength is the exact payload length for this identifier.
	// ok is false for codes missing from the table.
	ParamLength() (n int, ok bool)
	String() string

	identifier()
}

// Command identifiers (host → instrument).
type Command byte

const (
	CmdAmpEnable             Command = 0x30
	CmdAmpSetCurrent         Command = 0xA1
	CmdAmpPowerStabilization Command = 0x47
	CmdAmpStatus             Command = 0x04
	CmdSeedStatus            Command = 0xA9
	CmdSeedSetTemperature    Command = 0xA5
	CmdSeedSetPiezoVoltage   Command = 0xAE
)

// Return identifiers (instrument → host).
type Return byte

const (
	RetAmpEnable             Return = 0x40
	RetAmpSetCurrent         Return = 0x41
	RetAmpPowerStabilization Return = 0x57
	RetAmpStatus             Return = 0x44
	RetSeedStatus            Return = 0xB7
	RetSeedSetTemperature    Return = 0xB3
	RetSeedSetPiezoVoltage   Return = 0xBE
)

// Payload lengths per identifier. Decoding treats these as authoritative.
var (
	commandParamLengths = map[Command]int{
		CmdAmpEnable:             1,
		CmdAmpSetCurrent:         2,
		CmdAmpPowerStabilization: 1,
		CmdAmpStatus:             0,
		CmdSeedStatus:            0,
		CmdSeedSetTemperature:    3,
		CmdSeedSetPiezoVoltage:   3,
	}

	returnParamLengths = map[Return]int{
		RetAmpEnable:             13,
		RetAmpSetCurrent:         2,
		RetAmpPowerStabilization: 1,
		RetAmpStatus:             64,
		RetSeedStatus:            40,
		RetSeedSetTemperature:    4,
		RetSeedSetPiezoVoltage:   2,
	}

	commandNames = map[Command]string{
		CmdAmpEnable:             "AMP_ENABLE",
		CmdAmpSetCurrent:         "AMP_SET_CURRENT",
		CmdAmpPowerStabilization: "AMP_POWER_STABILIZATION",
		CmdAmpStatus:             "AMP_STATUS",
		CmdSeedStatus:            "SEED_STATUS",
		CmdSeedSetTemperature:    "SEED_SET_TEMP",
		CmdSeedSetPiezoVoltage:   "SEED_SET_VOLTAGE",
	}

	returnNames = map[Return]string{
		RetAmpEnable:             "AMP_ENABLE",
		RetAmpSetCurrent:         "AMP_SET_CURRENT",
		RetAmpPowerStabilization: "AMP_POWER_STABILIZATION",
		RetAmpStatus:             "AMP_STATUS",
		RetSeedStatus:            "SEED_STATUS",
		RetSeedSetTemperature:    "SEED_SET_TEMP",
		RetSeedSetPiezoVoltage:   "SEED_SET_VOLTAGE",
	}
)

func (c Command) Class() Class { return ClassCommand }
func (c Command) Code() byte   { return byte(c) }
func (c Command) identifier()  {}

func (c Command) ParamLength() (int, bool) {
	n, ok := commandParamLengths[c]
	return n, ok
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", byte(c))
}

func (r Return) Class() Class { return ClassReturn }
func (r Return) Code() byte   { return byte(r) }
func (r Return) identifier()  {}

func (r Return) ParamLength() (int, bool) {
	n, ok := returnParamLengths[r]
	return n, ok
}

func (r Return) String() string {
	if name, ok := returnNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Return(0x%02X)", byte(r))
}

// LookupReturn resolves an inbound command byte to a known Return.
func LookupReturn(code byte) (Return, bool) {
	r := Return(code)
	_, ok := returnParamLengths[r]
	return r, ok
}

// LookupCommand resolves an outbound command byte to a known Command.
func LookupCommand(code byte) (Command, bool) {
	c := Command(code)
	_, ok := commandParamLengths[c]
	return c, ok
}

// Commands returns every known Command in table order.
func Commands() []Command {
	return []Command{
		CmdAmpEnable,
		CmdAmpSetCurrent,
		CmdAmpPowerStabilization,
		CmdAmpStatus,
		CmdSeedStatus,
		CmdSeedSetTemperature,
		CmdSeedSetPiezoVoltage,
	}
}

// Returns returns every known Return in table order.
func Returns() []Return {
	return []Return{
		RetAmpEnable,
		RetAmpSetCurrent,
		RetAmpPowerStabilization,
		RetAmpStatus,
		RetSeedStatus,
		RetSeedSetTemperature,
		RetSeedSetPiezoVoltage,
	}
}
