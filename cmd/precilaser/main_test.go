package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/precilaser/internal/config"
	"github.com/muurk/precilaser/internal/device"
	"github.com/muurk/precilaser/internal/protocol"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "precilaser-cmd")
	if err != nil {
		panic(err)
	}
	os.Setenv(config.ConfigPathEnvVar, filepath.Join(dir, "config.yaml"))
	os.Unsetenv("PRECILASER_LOG_LEVEL")

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// runCLI executes the root command. Flag values persist between runs, so
// every call passes the full set of connection flags it relies on.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSimulatedCommands(t *testing.T) {
	seed := []string{"--simulate", "--family", "seed", "--address", "100", "--format", "json"}
	amp := []string{"--simulate", "--family", "amplifier", "--address", "0", "--format", "json"}

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr error
	}{
		{
			name: "seed status",
			args: append([]string{"status"}, seed...),
			want: `"wavelength_nm": 1086.7321`,
		},
		{
			name: "amplifier status",
			args: append([]string{"status"}, amp...),
			want: `"stable": true`,
		},
		{
			name: "set piezo",
			args: append([]string{"piezo", "set", "30"}, seed...),
			want: `"piezo_voltage_v": 30`,
		},
		{
			name:    "piezo out of range",
			args:    append([]string{"piezo", "set", "80"}, seed...),
			wantErr: device.ErrOutOfRange,
		},
		{
			name: "temperature setpoint",
			args: append([]string{"temperature", "get"}, seed...),
			want: `"temperature_set_c": 25`,
		},
		{
			name: "set current",
			args: append([]string{"current", "set", "2.5"}, amp...),
			want: `"current_a": 2.5`,
		},
		{
			name: "enable without prompt",
			args: append([]string{"enable", "--yes"}, amp...),
			want: `"enabled": true`,
		},
		{
			name: "power stabilization",
			args: append([]string{"stabilization", "on"}, amp...),
			want: `"power_stabilization": true`,
		},
		{
			name: "drain idle port",
			args: append([]string{"drain"}, amp...),
			want: `"frames": 0`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v\n%s", err, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestWrongFamily(t *testing.T) {
	_, err := runCLI(t, "temperature", "get", "--simulate", "--family", "amplifier", "--address", "0", "--format", "json")
	if err == nil || !strings.Contains(err.Error(), "needs a seed") {
		t.Errorf("error = %v, want family mismatch", err)
	}

	_, err = runCLI(t, "current", "set", "1", "--simulate", "--family", "seed", "--address", "100", "--format", "json")
	if err == nil || !strings.Contains(err.Error(), "needs an amplifier") {
		t.Errorf("error = %v, want family mismatch", err)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := runCLI(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, `"go_version"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"OFF", false, false},
		{"true", true, false},
		{"0", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		got, err := parseOnOff(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseOnOff(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseOnOff(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		want    protocol.Identifier
		wantErr error
	}{
		{
			name: "seed set temperature reply",
			hex:  "50 00 64 b3 04 61 a8 61 c1 46 ba 0d 0a",
			want: protocol.RetSeedSetTemperature,
		},
		{
			name: "amplifier status request",
			hex:  "50:00:64:04:00:68:60:0d:0a",
			want: protocol.CmdAmpStatus,
		},
		{
			name:    "corrupted checksum",
			hex:     "50 00 64 b3 04 61 a8 61 c1 47 ba 0d 0a",
			wantErr: protocol.ErrChecksumMismatch,
		},
		{
			name:    "short",
			hex:     "50 00",
			wantErr: protocol.ErrShortFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeFrame(tt.hex, protocol.DefaultFraming())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("decodeFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeFrame() error = %v", err)
			}
			if msg.ID() != tt.want || msg.Address() != 100 {
				t.Errorf("decodeFrame() = %v", msg)
			}
		})
	}
}

func TestDecodeCommand(t *testing.T) {
	out, err := runCLI(t, "decode", "50 00 64 b3 04 61 a8 61 c1 46 ba 0d 0a", "50 00 64 04 00 68 60 0d 0a", "--format", "json")
	if err != nil {
		t.Fatalf("error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Decoded frames") {
		t.Errorf("missing summary:\n%s", out)
	}

	// summary rows follow id order, and short replies show their payload
	seedSet := "50 00 64 b3 04 61 a8 61 c1 46 ba 0d 0a"
	ampReq := "50 00 64 04 00 68 60 0d 0a"
	first, err := runCLI(t, "decode", seedSet, ampReq, seedSet, "--format", "json")
	if err != nil {
		t.Fatalf("error = %v\n%s", err, first)
	}
	if !strings.Contains(first, "payload 61 A8 61 C1") {
		t.Errorf("missing payload line:\n%s", first)
	}
	amp, seed := strings.LastIndex(first, "AMP_STATUS"), strings.LastIndex(first, "SEED_SET_TEMP")
	if amp < 0 || seed < 0 || amp > seed {
		t.Errorf("summary rows not sorted:\n%s", first)
	}
	for i := 0; i < 3; i++ {
		again, _ := runCLI(t, "decode", seedSet, ampReq, seedSet, "--format", "json")
		if again != first {
			t.Fatalf("decode output changed between runs:\n%s\n---\n%s", first, again)
		}
	}

	_, err = runCLI(t, "decode", "zz", "--format", "json")
	if err == nil {
		t.Error("invalid frame did not fail the command")
	}
}
