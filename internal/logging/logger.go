package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "PRECILASER_LOG_LEVEL"

// maxDumpBytes caps hex and ascii dumps. The largest frame on the link is
// well under this.
const maxDumpBytes = 256

// ParseLevel maps a level name to a zap level. Unknown names map to info
// so that an explicitly requested but misspelled level still produces output.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Initialize creates a new logger with the specified level.
// If level is empty, it checks PRECILASER_LOG_LEVEL.
// If neither is set, logging is disabled (silent mode).
//
// Output goes to stderr so that status output on stdout stays machine
// readable with --format json.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l

	return nil
}

// InitializeFromEnv initializes the logger from PRECILASER_LOG_LEVEL.
// This is what the CLI uses so that it is silent by default.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the package logger and returns the previous one.
// Tests use it with zaptest/observer to assert on emitted entries.
func SetLogger(l *zap.Logger) *zap.Logger {
	prev := GetLogger()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
	return prev
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// silent until initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogPortEvent logs a serial port lifecycle event such as open or close
func LogPortEvent(port string, event string, fields ...zap.Field) {
	Info("Serial port event",
		append([]zap.Field{
			zap.String("port", port),
			zap.String("event", event),
		}, fields...)...,
	)
}

// LogFrame logs one frame crossing the link. direction is "tx" or "rx".
// The hex dump is only rendered when debug output is enabled.
func LogFrame(direction string, address byte, identifier string, frame []byte) {
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		return
	}
	Debug("Frame",
		zap.String("direction", direction),
		zap.Uint8("address", address),
		zap.String("identifier", identifier),
		zap.Int("length", len(frame)),
		zap.String("hex", hexDump(frame)),
	)
}

// LogResync logs bytes the frame synchronizer discarded while hunting for a
// header. Nothing is logged when nothing was skipped.
func LogResync(address byte, skipped []byte, reason string) {
	if len(skipped) == 0 {
		return
	}
	Warn("Discarded bytes while resynchronizing",
		zap.Uint8("address", address),
		zap.String("reason", reason),
		zap.Int("skipped", len(skipped)),
		zap.String("hex", hexDump(skipped)),
		zap.String("ascii", asciiDump(skipped)),
	)
}

// LogRawBytes logs raw bytes (useful for debugging protocol issues)
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		data = data[:maxDumpBytes]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
