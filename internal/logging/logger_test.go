package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
}

func TestLogFrameOnlyAtDebug(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)
	LogFrame("tx", 100, "SEED_STATUS", []byte{0x50, 0x00})
	if logs.Len() != 0 {
		t.Fatalf("got %d entries at info level, want 0", logs.Len())
	}

	logs = observe(t, zapcore.DebugLevel)
	LogFrame("rx", 100, "SEED_STATUS", []byte{0x50, 0x00, 0x64})
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hex"] != "500064" {
		t.Errorf("hex = %v, want 500064", fields["hex"])
	}
	if fields["direction"] != "rx" {
		t.Errorf("direction = %v, want rx", fields["direction"])
	}
}

func TestLogResync(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogResync(1, nil, "nothing")
	if logs.Len() != 0 {
		t.Fatalf("empty resync logged %d entries", logs.Len())
	}

	LogResync(1, []byte("ab\x00"), "header mismatch")
	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(entries) != 1 {
		t.Fatalf("got %d warn entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["ascii"]; got != "ab." {
		t.Errorf("ascii = %v, want ab.", got)
	}
}

func TestDumpTruncation(t *testing.T) {
	data := make([]byte, maxDumpBytes+10)
	if got := hexDump(data); !strings.HasSuffix(got, "...") || len(got) != 2*maxDumpBytes+3 {
		t.Errorf("hexDump() length = %d, want %d with ellipsis", len(got), 2*maxDumpBytes+3)
	}
	if got := asciiDump(data); len(got) != maxDumpBytes {
		t.Errorf("asciiDump() length = %d, want %d", len(got), maxDumpBytes)
	}
	if hexDump(nil) != "" || asciiDump(nil) != "" {
		t.Error("empty input should produce empty dumps")
	}
}
