package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase is what the user must type to confirm a hazardous operation
const ConfirmPhrase = "ENABLE"

// Confirm displays a warning box on out and reads a line from in. It
// returns true only when the line equals phrase.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, phrase string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)),
		"",
	}
	for _, warning := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+warning))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, resultBoxStyle(width, WarningColor).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", phrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == phrase {
		return true
	}

	_, _ = fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	return false
}

// ConfirmEmission asks before unlocking the amplifier pump drivers
func ConfirmEmission(in io.Reader, out io.Writer, address byte) bool {
	return Confirm(in, out,
		fmt.Sprintf("ENABLE AMPLIFIER %d", address),
		[]string{
			"This unlocks all pump drivers and the amplifier may emit laser radiation",
			"Check that the output fiber is terminated or collimated into a beam dump",
			"Wear eye protection rated for the operating wavelength",
			"Set the pump current before enabling; it is applied immediately",
		},
		ConfirmPhrase,
	)
}
