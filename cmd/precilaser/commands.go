package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/precilaser/internal/config"
	"github.com/muurk/precilaser/internal/device"
	"github.com/muurk/precilaser/internal/transport"
	"github.com/muurk/precilaser/internal/ui"
)

// Command flags
var (
	watchInterval time.Duration
	assumeYes     bool
	saveEEPROM    bool
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(stabilizationCmd)
	rootCmd.AddCommand(temperatureCmd)
	rootCmd.AddCommand(piezoCmd)
	rootCmd.AddCommand(drainCmd)
	rootCmd.AddCommand(portsCmd)

	currentCmd.AddCommand(currentSetCmd)
	temperatureCmd.AddCommand(temperatureGetCmd, temperatureSetCmd)
	piezoCmd.AddCommand(piezoGetCmd, piezoSetCmd)

	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "Poll interval (default from config, else 1s)")
	enableCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the safety confirmation")
	temperatureSetCmd.Flags().BoolVar(&saveEEPROM, "save", false, "Store the setpoint in EEPROM")
	piezoSetCmd.Flags().BoolVar(&saveEEPROM, "save", false, "Store the setpoint in EEPROM")
}

// statusCmd queries and prints status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show instrument status",
	Long: `Query the selected instrument and print its decoded status.

Amplifiers report pump driver currents, photodiode readings and protection
flags. Seeds report temperatures, currents, wavelength, piezo voltage and
emission state.`,
	Example: `  # Status of the default profile
  precilaser status

  # Seed status as JSON for scripting
  precilaser status --device seed --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.queryStatus()
	if err != nil {
		return s.fail("Status query", err)
	}
	if err := s.printer.PrintStatus(s.format, s.panel, st); err != nil {
		return err
	}

	if amp, ok := s.dev.(*device.Amplifier); ok && amp.Fault() && s.format != ui.FormatJSON {
		s.printer.PrintWarning("Amplifier reports a fault",
			ui.Detail{Key: "Address", Value: strconv.Itoa(int(amp.Address()))},
		)
	}
	return nil
}

// watchCmd polls status until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously poll instrument status",
	Long: `Poll the selected instrument at a fixed interval and redraw its status.

With --format json one status object is printed per line until interrupted.`,
	Example: `  # Watch the seed temperature settle
  precilaser watch --device seed

  # Log amplifier status every 5 seconds
  precilaser watch --interval 5s --format json >> amp.log`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	interval := watchInterval
	if interval <= 0 {
		if reg, err := config.LoadRegistry(); err == nil && reg.Preferences != nil {
			interval = reg.Preferences.WatchInterval
		}
	}
	if interval <= 0 {
		interval = config.DefaultWatchInterval
	}

	if s.format == ui.FormatJSON {
		return watchJSON(cmd, s, interval)
	}

	return ui.RunWatch(func(width int) (string, error) {
		st, err := s.queryStatus()
		if err != nil {
			return "", err
		}
		return ui.RenderStatus(ui.FormatDetailed, s.panel, st, width)
	}, interval)
}

func watchJSON(cmd *cobra.Command, s *session, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := s.queryStatus()
		if err != nil {
			return err
		}
		if err := enc.Encode(struct {
			Time   time.Time `json:"time"`
			Status any       `json:"status"`
		}{time.Now(), st}); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// currentCmd groups pump current commands
var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Amplifier pump current",
}

var currentSetCmd = &cobra.Command{
	Use:   "set <amps>",
	Short: "Set the amplifier pump current",
	Long: fmt.Sprintf(`Set the pump current of all amplifier drivers.

The current is sent in hundredths of an amp and must be between %.2f and
%.2f A. The amplifier echoes the applied value, which is checked.`, device.MinCurrent, device.MaxCurrent),
	Example: `  precilaser current set 2.5 --device amp`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCurrentSet,
}

func runCurrentSet(cmd *cobra.Command, args []string) error {
	amps, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid current %q: %w", args[0], err)
	}

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	amp, err := s.amplifier()
	if err != nil {
		return err
	}
	if err := amp.SetCurrent(amps); err != nil {
		return s.fail("Set pump current", err)
	}

	return s.report("Pump current set", map[string]any{"current_a": amps},
		ui.Detail{Key: "Address", Value: strconv.Itoa(int(amp.Address()))},
		ui.Detail{Key: "Current", Value: fmt.Sprintf("%.2f A", amps)},
	)
}

// enableCmd unlocks the amplifier drivers
var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the amplifier pump drivers",
	Long: `Unlock all three amplifier pump drivers.

The amplifier does not acknowledge this command; check the driver flags
with 'precilaser status' afterwards. A confirmation is required unless
--yes is given.`,
	Example: `  precilaser enable --device amp
  precilaser enable --device amp --yes`,
	Args: cobra.NoArgs,
	RunE: runEnable,
}

func runEnable(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	amp, err := s.amplifier()
	if err != nil {
		return err
	}

	if !assumeYes && !ui.ConfirmEmission(cmd.InOrStdin(), cmd.ErrOrStderr(), amp.Address()) {
		return errors.New("enable cancelled")
	}

	if err := amp.Enable(); err != nil {
		return s.fail("Enable drivers", err)
	}
	return s.report("Drivers enabled", map[string]any{"enabled": true},
		ui.Detail{Key: "Address", Value: strconv.Itoa(int(amp.Address()))},
	)
}

// disableCmd locks the amplifier drivers
var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the amplifier pump drivers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		amp, err := s.amplifier()
		if err != nil {
			return err
		}
		if err := amp.Disable(); err != nil {
			return s.fail("Disable drivers", err)
		}
		return s.report("Drivers disabled", map[string]any{"enabled": false},
			ui.Detail{Key: "Address", Value: strconv.Itoa(int(amp.Address()))},
		)
	},
}

// stabilizationCmd toggles output power stabilization
var stabilizationCmd = &cobra.Command{
	Use:     "stabilization <on|off>",
	Aliases: []string{"power-stabilization"},
	Short:   "Turn amplifier output power stabilization on or off",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}

		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		amp, err := s.amplifier()
		if err != nil {
			return err
		}
		if err := amp.SetPowerStabilization(on); err != nil {
			return s.fail("Set power stabilization", err)
		}
		return s.report("Power stabilization updated", map[string]any{"power_stabilization": on},
			ui.Detail{Key: "Address", Value: strconv.Itoa(int(amp.Address()))},
			ui.Detail{Key: "Stabilization", Value: onOff(on)},
		)
	},
}

// temperatureCmd groups seed temperature commands
var temperatureCmd = &cobra.Command{
	Use:     "temperature",
	Aliases: []string{"temp"},
	Short:   "Seed laser temperature setpoint",
}

var temperatureGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the seed temperature setpoint and actual temperature",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		seed, err := s.seed()
		if err != nil {
			return err
		}
		set, err := seed.TemperatureSetpoint()
		if err != nil {
			return s.fail("Read temperature", err)
		}
		st, _ := seed.Status()

		return s.report("Seed temperature", map[string]any{
			"temperature_set_c": set,
			"temperature_act_c": st.TemperatureAct,
		},
			ui.Detail{Key: "Setpoint", Value: fmt.Sprintf("%.3f °C", set)},
			ui.Detail{Key: "Actual", Value: fmt.Sprintf("%.3f °C", st.TemperatureAct)},
		)
	},
}

var temperatureSetCmd = &cobra.Command{
	Use:   "set <celsius>",
	Short: "Set the seed temperature setpoint",
	Long: fmt.Sprintf(`Set the seed laser temperature setpoint.

The setpoint is sent in thousandths of a degree and must be between %.3f
and %.3f °C. With --save the seed stores it in EEPROM.`, device.MinTemperature, device.MaxTemperature),
	Example: `  precilaser temperature set 25.5 --device seed`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		celsius, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q: %w", args[0], err)
		}

		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		seed, err := s.seed()
		if err != nil {
			return err
		}
		if err := seed.SetTemperatureSetpoint(celsius); err != nil {
			return s.fail("Set temperature", err)
		}
		return s.report("Temperature setpoint updated", map[string]any{"temperature_set_c": celsius},
			ui.Detail{Key: "Setpoint", Value: fmt.Sprintf("%.3f °C", celsius)},
			ui.Detail{Key: "Saved to EEPROM", Value: yesNo(saveEEPROM || s.profile.SaveToEEPROM)},
		)
	},
}

// piezoCmd groups seed piezo commands
var piezoCmd = &cobra.Command{
	Use:   "piezo",
	Short: "Seed laser piezo voltage",
}

var piezoGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the seed piezo voltage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		seed, err := s.seed()
		if err != nil {
			return err
		}
		v, err := seed.PiezoVoltage()
		if err != nil {
			return s.fail("Read piezo voltage", err)
		}
		return s.report("Seed piezo voltage", map[string]any{"piezo_voltage_v": v},
			ui.Detail{Key: "Piezo voltage", Value: fmt.Sprintf("%.2f V", v)},
		)
	},
}

var piezoSetCmd = &cobra.Command{
	Use:   "set <volts>",
	Short: "Set the seed piezo voltage",
	Long: fmt.Sprintf(`Set the seed laser piezo voltage.

The voltage must be between %.0f and %.0f V; values outside the range are
rejected before anything is sent.`, device.MinPiezoVoltage, device.MaxPiezoVoltage),
	Example: `  precilaser piezo set 30 --device seed`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		volts, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid voltage %q: %w", args[0], err)
		}

		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		seed, err := s.seed()
		if err != nil {
			return err
		}
		if err := seed.SetPiezoVoltage(volts); err != nil {
			return s.fail("Set piezo voltage", err)
		}
		return s.report("Piezo voltage updated", map[string]any{"piezo_voltage_v": volts},
			ui.Detail{Key: "Piezo voltage", Value: fmt.Sprintf("%.2f V", volts)},
			ui.Detail{Key: "Saved to EEPROM", Value: yesNo(saveEEPROM || s.profile.SaveToEEPROM)},
		)
	},
}

// drainCmd consumes whatever is waiting on the port
var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Read and handle every frame waiting on the port",
	Long: `Read every frame already buffered on the serial port, updating the
cached status from any status frames found, and report how many were read.

Amplifiers send status on their own; drain shows the latest one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.dev.Drain()
		if err != nil {
			return s.fail("Drain", err)
		}

		if err := s.report("Port drained", map[string]any{"frames": n},
			ui.Detail{Key: "Frames read", Value: strconv.Itoa(n)},
		); err != nil {
			return err
		}

		if amp, ok := s.dev.(*device.Amplifier); ok {
			if st, ok := amp.Status(); ok {
				return s.printer.PrintStatus(s.format, s.panel, st)
			}
		}
		return nil
	},
}

// portsCmd lists serial ports
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListPorts()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputFormat == ui.FormatJSON {
			data, err := json.MarshalIndent(ports, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(ports) == 0 {
			fmt.Fprintln(out, "No serial ports found.")
			return nil
		}
		for _, p := range ports {
			line := p.Name
			if p.IsUSB {
				line += fmt.Sprintf("  USB %s:%s", p.VID, p.PID)
				if p.Product != "" {
					line += "  " + p.Product
				}
				if p.SerialNumber != "" {
					line += "  serial " + p.SerialNumber
				}
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

// report prints a success box, or v as JSON
func (s *session) report(title string, v any, details ...ui.Detail) error {
	if s.format == ui.FormatJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		s.printer.Println(string(data))
		return nil
	}
	s.printer.PrintSuccess(title, details...)
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid value %q (want on or off)", s)
	}
	return b, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
