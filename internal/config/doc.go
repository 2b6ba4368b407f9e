// Package config manages the YAML file of named device profiles.
//
// A profile says where an instrument is (serial port and address), what it
// is (amplifier or seed) and how it frames messages. The CLI picks a
// profile with --device; flags given on the command line override it.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/precilaser/config.yaml or $HOME/.config/precilaser/config.yaml
//   - macOS: $HOME/.config/precilaser/config.yaml
//   - Windows: %LOCALAPPDATA%\precilaser\config.yaml
//
// PRECILASER_CONFIG overrides the location.
//
// # File Format
//
//	version: 1
//	devices:
//	  amp:
//	    port: /dev/ttyUSB0
//	    address: 0
//	    family: amplifier
//	  seed:
//	    port: /dev/ttyUSB0
//	    address: 100
//	    family: seed
//	    header: "50"
//	    terminator: "0d0a"
//	    endian: big
//	    read_timeout: 2s
//	    save_to_eeprom: false
//	preferences:
//	  default_device: amp
//	  format: detailed
//	  watch_interval: 1s
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profile, err := registry.Profile("seed")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	framing, err := profile.Framing()
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
