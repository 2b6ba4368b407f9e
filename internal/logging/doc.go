// Package logging provides structured logging for the laser link.
//
// It wraps a package-level zap logger that is silent until initialized, so
// library code can log unconditionally and CLI commands stay quiet unless
// the user asks for output.
//
// # Log Levels
//
//   - Debug: frame hex dumps, raw bytes, drained input
//   - Info: port open and close, device state changes
//   - Warn: discarded bytes during resync, length byte disagreements
//   - Error: failures the caller is about to return
//
// # Configuration
//
// The level comes from the --log-level flag or PRECILASER_LOG_LEVEL:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output is written to stderr in console format.
//
// # Link Logging
//
//	logging.LogPortEvent("/dev/ttyUSB0", "opened", zap.Int("baud", 115200))
//	logging.LogFrame("tx", 100, "SEED_STATUS", frame)
//	logging.LogResync(100, skipped, "header mismatch")
//
// # Testing
//
// Tests swap the logger with SetLogger and a zaptest/observer core:
//
//	core, logs := observer.New(zapcore.DebugLevel)
//	prev := logging.SetLogger(zap.New(core))
//	defer logging.SetLogger(prev)
//
// # Thread Safety
//
// The log functions are safe for concurrent use. Initialize and SetLogger
// are not; call them before starting goroutines that log.
package logging
