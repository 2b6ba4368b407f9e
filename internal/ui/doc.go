// Package ui provides terminal output for the precilaser CLI.
//
// Static output (status panels, result boxes, confirmation prompts) is
// rendered with Lipgloss and written through a Printer. The watch command
// uses WatchModel, a Bubble Tea model that polls an instrument on a ticker
// and redraws the latest status panel in place.
//
// Status panels accept the decoded types from the status package:
//
//	p := ui.NewPrinter(os.Stdout)
//	err := p.PrintStatus(ui.FormatDetailed, ui.Panel{Title: "Seed"}, st)
//
// The json format bypasses styling and emits the status with
// encoding/json, suitable for scripts.
package ui
