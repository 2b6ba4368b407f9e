package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/precilaser/internal/config"
	"github.com/muurk/precilaser/internal/ui"
)

// Profile flags for config add
var (
	profileDescription string
	profileHeader      string
	profileTerminator  string
	profileEndian      string
	profileSave        bool
	profileDefault     bool
	forceInit          bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd, configAddCmd, configRemoveCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration file")

	configAddCmd.Flags().StringVar(&profileDescription, "description", "", "Free text description")
	configAddCmd.Flags().StringVar(&profileHeader, "header", "", "Frame header as hex (default 50)")
	configAddCmd.Flags().StringVar(&profileTerminator, "terminator", "", "Frame terminator as hex (default 0d0a)")
	configAddCmd.Flags().StringVar(&profileEndian, "endian", "", "Multi-byte field order (big, little)")
	configAddCmd.Flags().BoolVar(&profileSave, "save-eeprom", false, "Seeds only: store setpoints in EEPROM")
	configAddCmd.Flags().BoolVar(&profileDefault, "default", false, "Make this the default profile")
}

// configCmd groups configuration file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage device profiles",
	Long: `Manage the configuration file holding named device profiles.

The file lives in the user configuration directory, or at $` + config.ConfigPathEnvVar + `
when set.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with example profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.CreateDefaultConfig(); err != nil {
			return fmt.Errorf("failed to create configuration: %w", err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration created",
			ui.Detail{Key: "Path", Value: path},
			ui.Detail{Key: "Profiles", Value: "amp (address 0), seed (address 100)"},
		)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}

		var data []byte
		if outputFormat == ui.FormatJSON {
			data, err = json.MarshalIndent(reg, "", "  ")
		} else {
			data, err = yaml.Marshal(reg)
		}
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a device profile",
	Long: `Add or replace a named device profile.

The connection flags --port, --baud, --address, --family and --timeout set
the profile's connection; the remaining fields default to the protocol
defaults.`,
	Example: `  # An amplifier at address 0
  precilaser config add amp --port /dev/ttyUSB0 --address 0 --family amplifier --default

  # A seed on the same port that saves setpoints
  precilaser config add seed --port /dev/ttyUSB0 --address 100 --family seed --save-eeprom`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !cmd.Flags().Changed("port") {
			return errors.New("--port is required")
		}

		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}

		d := &config.Device{
			Description:  profileDescription,
			Port:         portName,
			Baud:         baudRate,
			Address:      address,
			Family:       familyName,
			Header:       profileHeader,
			Terminator:   profileTerminator,
			Endian:       profileEndian,
			ReadTimeout:  readTimeout,
			SaveToEEPROM: profileSave,
		}
		if err := reg.SetDevice(name, d); err != nil {
			return err
		}
		if profileDefault {
			reg.Preferences.DefaultDevice = name
		}
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}

		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Profile saved",
			ui.Detail{Key: "Name", Value: name},
			ui.Detail{Key: "Port", Value: d.Port},
			ui.Detail{Key: "Address", Value: fmt.Sprint(d.Address)},
			ui.Detail{Key: "Family", Value: d.Family},
		)
		return nil
	},
}

var configRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a device profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if !reg.RemoveDevice(args[0]) {
			return fmt.Errorf("%w: %q", config.ErrProfileNotFound, args[0])
		}
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed profile %q\n", args[0])
		return nil
	},
}
