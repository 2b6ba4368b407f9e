package protocol

import "testing"

func TestParamLengthTable(t *testing.T) {
	tests := []struct {
		id   Identifier
		code byte
		n    int
	}{
		{CmdAmpEnable, 0x30, 1},
		{CmdAmpSetCurrent, 0xA1, 2},
		{CmdAmpPowerStabilization, 0x47, 1},
		{CmdAmpStatus, 0x04, 0},
		{CmdSeedStatus, 0xA9, 0},
		{CmdSeedSetTemperature, 0xA5, 3},
		{CmdSeedSetPiezoVoltage, 0xAE, 3},
		{RetAmpEnable, 0x40, 13},
		{RetAmpSetCurrent, 0x41, 2},
		{RetAmpPowerStabilization, 0x57, 1},
		{RetAmpStatus, 0x44, 64},
		{RetSeedStatus, 0xB7, 40},
		{RetSeedSetTemperature, 0xB3, 4},
		{RetSeedSetPiezoVoltage, 0xBE, 2},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			if tt.id.Code() != tt.code {
				t.Errorf("Code() = 0x%02X, want 0x%02X", tt.id.Code(), tt.code)
			}
			n, ok := tt.id.ParamLength()
			if !ok || n != tt.n {
				t.Errorf("ParamLength() = %d, %v, want %d, true", n, ok, tt.n)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	for _, r := range Returns() {
		got, ok := LookupReturn(r.Code())
		if !ok || got != r {
			t.Errorf("LookupReturn(0x%02X) = %v, %v", r.Code(), got, ok)
		}
		if _, ok := LookupCommand(r.Code()); ok {
			t.Errorf("return code 0x%02X is also a command code", r.Code())
		}
	}
	for _, c := range Commands() {
		got, ok := LookupCommand(c.Code())
		if !ok || got != c {
			t.Errorf("LookupCommand(0x%02X) = %v, %v", c.Code(), got, ok)
		}
	}

	if _, ok := LookupReturn(0xFF); ok {
		t.Error("LookupReturn(0xFF) reported a known return")
	}
	if got := Return(0xFF).String(); got != "Return(0xFF)" {
		t.Errorf("String() = %q", got)
	}
	if got := Command(0x99).String(); got != "Command(0x99)" {
		t.Errorf("String() = %q", got)
	}
}
