package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/precilaser/internal/config"
	"github.com/muurk/precilaser/internal/protocol"
	"github.com/muurk/precilaser/internal/status"
	"github.com/muurk/precilaser/internal/ui"
)

var decodeFile string

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeFile, "file", "", "Read frames from a file, one hex frame per line (- for stdin)")
}

// decodeCmd validates and decodes captured frames offline
var decodeCmd = &cobra.Command{
	Use:   "decode [hex-frame...]",
	Short: "Decode captured frames",
	Long: `Validate and decode frames captured from the serial link.

Each frame is given as hex; spaces and colons are ignored. The address is
taken from the frame itself. Status replies are decoded in full. Framing
comes from --device when given, otherwise the protocol defaults apply.

Lines starting with # are skipped when reading from a file.`,
	Example: `  # Decode a single frame
  precilaser decode "50 00 64 b3 04 61 a8 61 c1 46 ba 0d 0a"

  # Check every frame in a capture and print a summary
  precilaser decode --file capture.txt`,
	RunE: runDecode,
}

// decodeStats tracks results across a batch of frames
type decodeStats struct {
	total    int
	ok       int
	byID     map[string]int
	failures []string
}

func runDecode(cmd *cobra.Command, args []string) error {
	framing := protocol.DefaultFraming()
	if deviceName != "" {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		profile, err := reg.Profile(deviceName)
		if err != nil {
			return err
		}
		if framing, err = profile.Framing(); err != nil {
			return err
		}
	}

	lines := args
	if decodeFile != "" {
		var err error
		if lines, err = readFrameLines(cmd.InOrStdin(), decodeFile); err != nil {
			return err
		}
	}
	if len(lines) == 0 {
		return errors.New("no frames given")
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	stats := decodeStats{byID: make(map[string]int)}
	for i, line := range lines {
		stats.total++
		msg, err := decodeFrame(line, framing)
		if err != nil {
			stats.failures = append(stats.failures, fmt.Sprintf("frame %d: %v", i+1, err))
			printer.Println(ui.ErrorMessageStyle.Render(fmt.Sprintf("%d  %s  %v", i+1, ui.FailureMarker, err)))
			continue
		}
		stats.ok++
		stats.byID[msg.ID().String()]++
		printer.Println(fmt.Sprintf("%d  %s  %s", i+1, ui.SuccessMarker, msg))

		if err := printDecodedStatus(printer, msg); err != nil {
			return err
		}
	}

	if stats.total > 1 {
		result := ui.NewSuccessResult("Decoded frames")
		if len(stats.failures) > 0 {
			result = ui.NewWarningResult("Decoded frames")
		}
		result.SetWidth(printer.Width()).
			AddDetail("Frames", fmt.Sprint(stats.total)).
			AddDetail("Valid", fmt.Sprint(stats.ok)).
			AddDetail("Invalid", fmt.Sprint(len(stats.failures)))
		ids := make([]string, 0, len(stats.byID))
		for id := range stats.byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			result.AddDetail(id, fmt.Sprint(stats.byID[id]))
		}
		printer.Println(result.Render())
	}

	if len(stats.failures) > 0 {
		return fmt.Errorf("%d of %d frames invalid", len(stats.failures), stats.total)
	}
	return nil
}

// decodeFrame parses one hex frame as a reply, falling back to a command
func decodeFrame(text string, f protocol.Framing) (protocol.Message, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\t", "", "0x", "").Replace(strings.TrimSpace(text))
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("invalid hex: %w", err)
	}

	addrAt := len(f.Header) + 1
	if len(raw) <= addrAt {
		_, err := protocol.Decode(raw, 0, f)
		return protocol.Message{}, err
	}
	addr := raw[addrAt]

	msg, err := protocol.Decode(raw, addr, f)
	if errors.Is(err, protocol.ErrUnknownCommand) {
		return protocol.DecodeCommand(raw, addr, f)
	}
	return msg, err
}

func printDecodedStatus(p *ui.Printer, msg protocol.Message) error {
	order := msg.Framing().ByteOrder()
	panel := ui.Panel{Title: msg.ID().String(), Connection: fmt.Sprintf("address %d", msg.Address())}

	switch {
	case msg.Is(protocol.RetAmpStatus):
		st, err := status.DecodeAmplifier(msg.Payload(), order)
		if err != nil {
			return err
		}
		return p.PrintStatus(outputFormat, panel, st)
	case msg.Is(protocol.RetSeedStatus):
		st, err := status.DecodeSeed(msg.Payload(), order)
		if err != nil {
			return err
		}
		return p.PrintStatus(outputFormat, panel, st)
	case msg.HasPayload():
		p.Println(fmt.Sprintf("   payload % X", msg.Payload()))
	}
	return nil
}

func readFrameLines(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read frames: %w", err)
	}
	return lines, nil
}
