package config

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muurk/precilaser/internal/device"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/transport"
)

// CurrentVersion is the registry file format version
const CurrentVersion = 1

// ErrProfileNotFound is returned when a named device profile does not exist
var ErrProfileNotFound = errors.New("device profile not found")

// Registry represents the entire user configuration file.
// It stores named device profiles and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by profile name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device is a named connection profile for one addressed instrument.
// Empty fields fall back to the protocol defaults.
type Device struct {
	Description  string        `yaml:"description,omitempty"`
	Port         string        `yaml:"port"`                     // e.g. /dev/ttyUSB0 or COM3
	Baud         int           `yaml:"baud,omitempty"`           // Default 115200
	Address      int           `yaml:"address"`                  // Device address 0-255
	Family       string        `yaml:"family"`                   // amplifier or seed
	Header       string        `yaml:"header,omitempty"`         // Hex, default "50" ("P")
	Terminator   string        `yaml:"terminator,omitempty"`     // Hex, default "0d0a"
	Endian       string        `yaml:"endian,omitempty"`         // big or little, default big
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`   // Default 2s
	SaveToEEPROM bool          `yaml:"save_to_eeprom,omitempty"` // Seeds only
	LastUsed     time.Time     `yaml:"last_used,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultDevice string        `yaml:"default_device,omitempty"` // Profile used when --device is not given
	Format        string        `yaml:"format,omitempty"`         // detailed or json
	WatchInterval time.Duration `yaml:"watch_interval,omitempty"` // Poll interval for watch
}

// Default preference values
const (
	DefaultFormat        = "detailed"
	DefaultWatchInterval = time.Second
)

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: CurrentVersion,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			Format:        DefaultFormat,
			WatchInterval: DefaultWatchInterval,
		},
	}
}

// GetDevice retrieves a profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// SetDevice validates and stores a profile under name
func (r *Registry) SetDevice(name string, d *Device) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	r.Devices[name] = d
	return nil
}

// RemoveDevice deletes a profile. It reports whether the profile existed.
func (r *Registry) RemoveDevice(name string) bool {
	if _, ok := r.Devices[name]; !ok {
		return false
	}
	delete(r.Devices, name)
	if r.Preferences != nil && r.Preferences.DefaultDevice == name {
		r.Preferences.DefaultDevice = ""
	}
	return true
}

// Names returns the profile names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveName returns name, or the profile an empty name stands for: the
// default device, else the only profile. It returns "" when neither exists.
func (r *Registry) ResolveName(name string) string {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultDevice
	}
	if name == "" && len(r.Devices) == 1 {
		name = r.Names()[0]
	}
	return name
}

// Profile resolves a profile by name. An empty name selects the default
// device, or the only profile when there is exactly one. The returned
// copy has every default filled in.
func (r *Registry) Profile(name string) (*Device, error) {
	name = r.ResolveName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: no profile named and no default set", ErrProfileNotFound)
	}

	d, ok := r.Devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	resolved, err := d.Resolved()
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	return resolved, nil
}

// Resolved returns a validated copy of d with every default filled in
func (d *Device) Resolved() (*Device, error) {
	resolved := *d
	resolved.applyDefaults()
	if err := resolved.Validate(); err != nil {
		return nil, err
	}
	return &resolved, nil
}

// TouchDevice records that a profile was just used
func (r *Registry) TouchDevice(name string) {
	if d, ok := r.Devices[name]; ok {
		d.LastUsed = time.Now()
	}
}

func (d *Device) applyDefaults() {
	if d.Baud == 0 {
		d.Baud = transport.DefaultBaudRate
	}
	if d.Family == "" {
		d.Family = device.FamilyAmplifier.String()
	}
	if d.Header == "" {
		d.Header = hex.EncodeToString(protocol.DefaultFraming().Header)
	}
	if d.Terminator == "" {
		d.Terminator = hex.EncodeToString(protocol.DefaultFraming().Terminator)
	}
	if d.Endian == "" {
		d.Endian = "big"
	}
	if d.ReadTimeout == 0 {
		d.ReadTimeout = transport.DefaultReadTimeout
	}
}

// Validate checks the fields that can be checked without opening the port
func (d *Device) Validate() error {
	if d.Address < 0 || d.Address > 255 {
		return fmt.Errorf("address %d outside 0-255", d.Address)
	}
	if d.Baud < 0 {
		return fmt.Errorf("invalid baud rate %d", d.Baud)
	}
	if d.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout %s", d.ReadTimeout)
	}
	if d.Family != "" {
		if _, err := device.ParseFamily(d.Family); err != nil {
			return err
		}
	}
	if _, err := d.Framing(); err != nil {
		return err
	}
	return nil
}

// DeviceFamily parses the family field, defaulting to amplifier
func (d *Device) DeviceFamily() (device.Family, error) {
	if d.Family == "" {
		return device.FamilyAmplifier, nil
	}
	return device.ParseFamily(d.Family)
}

// Framing builds the protocol framing for this profile
func (d *Device) Framing() (protocol.Framing, error) {
	f := protocol.DefaultFraming()

	if d.Header != "" {
		h, err := hex.DecodeString(d.Header)
		if err != nil || len(h) == 0 {
			return protocol.Framing{}, fmt.Errorf("invalid header %q: want hex bytes", d.Header)
		}
		f.Header = h
	}
	if d.Terminator != "" {
		t, err := hex.DecodeString(d.Terminator)
		if err != nil || len(t) == 0 {
			return protocol.Framing{}, fmt.Errorf("invalid terminator %q: want hex bytes", d.Terminator)
		}
		f.Terminator = t
	}

	switch strings.ToLower(d.Endian) {
	case "", "big":
		f.Order = binary.BigEndian
	case "little":
		f.Order = binary.LittleEndian
	default:
		return protocol.Framing{}, fmt.Errorf("invalid endian %q: want big or little", d.Endian)
	}
	return f, nil
}

// SerialConfig returns the transport settings for this profile
func (d *Device) SerialConfig() transport.SerialConfig {
	return transport.SerialConfig{
		Name:        d.Port,
		BaudRate:    d.Baud,
		ReadTimeout: d.ReadTimeout,
	}
}
