// Precilaser drives Precilaser fiber amplifiers and seed lasers over their
// serial link.
//
// Each instrument on the link has an address; a named profile in the
// configuration file records the port, address and family of one
// instrument so commands can refer to it with --device.
//
// Usage:
//
//	precilaser [command] [flags]
//
// See 'precilaser --help' for available commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/precilaser/internal/logging"
	"github.com/muurk/precilaser/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "precilaser",
	Short: "Precilaser Amplifier and Seed Laser Control",
	Long: `Control Precilaser fiber amplifiers and seed lasers over a serial link.

Reads amplifier and seed status, sets pump current, seed temperature and
piezo voltage, and enables or disables the amplifier drivers.

Instruments are selected with a named profile (--device) from the
configuration file, or directly with --port, --address and --family.
Use --simulate to try any command against a built-in simulated instrument.`,
	Version:      version.Get().Version,
	SilenceUsage: true,
	Example: `  # Create a configuration file with example profiles
  precilaser config init

  # Show amplifier status using the default profile
  precilaser status

  # Show seed status on an explicit port
  precilaser status --port /dev/ttyUSB0 --address 100 --family seed

  # Try the commands without hardware
  precilaser watch --simulate --family seed`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == "json" {
			data, err := json.MarshalIndent(version.Get(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "precilaser %s\n", version.Full())
		return nil
	},
}
