package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/precilaser/internal/config"
	"github.com/muurk/precilaser/internal/device"
	"github.com/muurk/precilaser/internal/logging"
	"github.com/muurk/precilaser/internal/sim"
	"github.com/muurk/precilaser/internal/transport"
	"github.com/muurk/precilaser/internal/ui"
)

// Connection flags, persistent on root
var (
	deviceName   string
	portName     string
	baudRate     int
	address      int
	familyName   string
	readTimeout  time.Duration
	outputFormat string
	logLevel     string
	simulate     bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&deviceName, "device", "d", "", "Device profile name from the config file")
	flags.StringVarP(&portName, "port", "p", "", "Serial port (overrides the profile)")
	flags.IntVar(&baudRate, "baud", transport.DefaultBaudRate, "Baud rate")
	flags.IntVarP(&address, "address", "a", 0, "Device address (0-255)")
	flags.StringVarP(&familyName, "family", "f", "amplifier", "Device family (amplifier, seed)")
	flags.DurationVar(&readTimeout, "timeout", transport.DefaultReadTimeout, "Read timeout")
	flags.StringVar(&outputFormat, "format", "", "Output format (detailed, json)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from $"+logging.LogLevelEnvVar)
	flags.BoolVar(&simulate, "simulate", false, "Talk to a simulated instrument instead of a serial port")
}

// session is an open connection to one instrument
type session struct {
	name    string // profile name, empty for ad hoc connections
	profile *config.Device
	dev     device.Device
	panel   ui.Panel
	format  string
	printer *ui.Printer
}

// resolveProfile merges the selected profile with any connection flags the
// user set explicitly. It returns the resolved profile and its name.
func resolveProfile(cmd *cobra.Command) (*config.Device, string, *config.Registry, error) {
	flags := cmd.Flags()

	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var (
		base *config.Device
		name string
	)
	// An explicit port without --device is an ad hoc connection
	if deviceName != "" || !flags.Changed("port") {
		name = reg.ResolveName(deviceName)
		base, err = reg.Profile(deviceName)
		switch {
		case err == nil:
		case errors.Is(err, config.ErrProfileNotFound) && deviceName == "" && simulate:
			name = ""
		case errors.Is(err, config.ErrProfileNotFound) && deviceName == "":
			return nil, "", nil, fmt.Errorf("no device selected: pass --device, --port or --simulate, or run 'precilaser config init'")
		default:
			return nil, "", nil, err
		}
	}
	if base == nil {
		base = &config.Device{}
	}

	if flags.Changed("port") {
		base.Port = portName
	}
	if flags.Changed("baud") {
		base.Baud = baudRate
	}
	if flags.Changed("address") {
		base.Address = address
	}
	if flags.Changed("family") || base.Family == "" {
		base.Family = familyName
	}
	if flags.Changed("timeout") {
		base.ReadTimeout = readTimeout
	}

	resolved, err := base.Resolved()
	if err != nil {
		return nil, "", nil, err
	}
	if resolved.Port == "" && !simulate {
		return nil, "", nil, fmt.Errorf("no serial port configured: pass --port or set one in the profile")
	}
	return resolved, name, reg, nil
}

// openPort opens the profile's serial port, or a simulated instrument
func openPort(profile *config.Device, family device.Family) (transport.Port, error) {
	if !simulate {
		return transport.OpenSerial(profile.SerialConfig())
	}

	framing, err := profile.Framing()
	if err != nil {
		return nil, err
	}
	addr := byte(profile.Address)
	switch family {
	case device.FamilySeed:
		return sim.NewSeed(addr, framing).Port(), nil
	default:
		return sim.NewAmplifier(addr, framing).Port(), nil
	}
}

// connect opens the selected instrument
func connect(cmd *cobra.Command) (*session, error) {
	profile, name, reg, err := resolveProfile(cmd)
	if err != nil {
		return nil, err
	}

	family, err := profile.DeviceFamily()
	if err != nil {
		return nil, err
	}
	framing, err := profile.Framing()
	if err != nil {
		return nil, err
	}

	port, err := openPort(profile, family)
	if err != nil {
		return nil, err
	}

	opts := device.Options{Address: byte(profile.Address), Framing: framing}
	var dev device.Device
	switch family {
	case device.FamilySeed:
		dev, err = device.NewSeed(port, device.SeedOptions{Options: opts, SaveToEEPROM: profile.SaveToEEPROM || saveEEPROM})
	default:
		dev, err = device.NewAmplifier(port, opts)
	}
	if err != nil {
		_ = port.Close()
		return nil, err
	}

	connection := fmt.Sprintf("%s @ %d baud, address %d", profile.Port, profile.Baud, profile.Address)
	if simulate {
		connection = fmt.Sprintf("simulated, address %d", profile.Address)
	}
	title := family.String()
	if name != "" {
		title = fmt.Sprintf("%s (%s)", name, family)
	}

	format := outputFormat
	if format == "" && reg.Preferences != nil {
		format = reg.Preferences.Format
	}

	if name != "" && !simulate {
		reg.TouchDevice(name)
		if err := reg.Save(); err != nil {
			logging.Warn("Failed to record profile use", zap.String("profile", name), zap.Error(err))
		}
	}

	logging.Debug("Connected",
		zap.String("profile", name),
		zap.String("port", profile.Port),
		zap.Int("address", profile.Address),
		zap.String("family", family.String()),
		zap.Bool("simulated", simulate),
	)

	return &session{
		name:    name,
		profile: profile,
		dev:     dev,
		panel:   ui.Panel{Title: title, Connection: connection},
		format:  format,
		printer: ui.NewPrinter(cmd.OutOrStdout()),
	}, nil
}

// Close releases the port
func (s *session) Close() {
	if err := s.dev.Close(); err != nil {
		logging.Warn("Failed to close device", zap.Error(err))
	}
}

func (s *session) amplifier() (*device.Amplifier, error) {
	amp, ok := s.dev.(*device.Amplifier)
	if !ok {
		return nil, fmt.Errorf("%s is a %s; this command needs an amplifier", s.describe(), s.dev.Family())
	}
	return amp, nil
}

func (s *session) seed() (*device.Seed, error) {
	seed, ok := s.dev.(*device.Seed)
	if !ok {
		return nil, fmt.Errorf("%s is an %s; this command needs a seed", s.describe(), s.dev.Family())
	}
	return seed, nil
}

func (s *session) describe() string {
	if s.name != "" {
		return fmt.Sprintf("profile %q", s.name)
	}
	return fmt.Sprintf("address %d", s.dev.Address())
}

// queryStatus reads a fresh status from whichever instrument is connected
func (s *session) queryStatus() (any, error) {
	switch d := s.dev.(type) {
	case *device.Amplifier:
		return d.QueryStatus()
	case *device.Seed:
		return d.QueryStatus()
	default:
		return nil, fmt.Errorf("unsupported device %T", s.dev)
	}
}

// fail prints a failure box and returns err so the exit status reflects it
func (s *session) fail(title string, err error) error {
	if s.format == ui.FormatJSON {
		return err
	}
	s.printer.PrintError(title, err, ui.SerialTroubleshooting())
	return err
}
