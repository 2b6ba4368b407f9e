package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/precilaser/internal/status"
)

// Output formats accepted by RenderStatus
const (
	FormatDetailed = "detailed"
	FormatJSON     = "json"
)

// Panel identifies the instrument a status panel describes
type Panel struct {
	Title      string // e.g. "Amplifier"
	Connection string // e.g. "/dev/ttyUSB0 @ 115200, address 0"
}

// RenderStatus renders a decoded status in the given format. v must be a
// status.Amplifier or status.Seed.
func RenderStatus(format string, panel Panel, v any, width int) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode status: %w", err)
		}
		return string(data), nil
	case "", FormatDetailed:
	default:
		return "", fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatDetailed, FormatJSON)
	}

	switch s := v.(type) {
	case status.Amplifier:
		return RenderAmplifierStatus(panel, s, width), nil
	case status.Seed:
		return RenderSeedStatus(panel, s, width), nil
	default:
		return "", fmt.Errorf("cannot render %T", v)
	}
}

// RenderAmplifierStatus renders an amplifier status panel
func RenderAmplifierStatus(panel Panel, s status.Amplifier, width int) string {
	width = clampWidth(width)

	overall := flag(!s.Fault(), "OK", "FAULT")
	general := []string{
		renderDetail("Status", overall),
		renderDetail("Stable", flag(s.Stable, "yes", "no")),
		renderDetail("Interlock", bitText(s.Driver.Interlock())),
	}

	drivers := make([]string, 0, len(s.DriverCurrent))
	enabled := s.Driver.EnableFlag()
	for i, c := range s.DriverCurrent {
		drivers = append(drivers, renderDetail(
			fmt.Sprintf("Driver %d", i+1),
			fmt.Sprintf("%6.2f A  %s", c, enabledText(enabled[i])),
		))
	}

	var protection []string
	for i, tripped := range s.System.PDProtection() {
		protection = append(protection, renderDetail(fmt.Sprintf("PD %d protection", i+1), flag(!tripped, "ok", "tripped")))
	}
	for i, tripped := range s.System.TemperatureProtection() {
		protection = append(protection, renderDetail(fmt.Sprintf("Temp %d protection", i+1), flag(!tripped, "ok", "tripped")))
	}

	photodiodes := make([]string, 0, len(s.PDValue))
	for i, v := range s.PDValue {
		line := fmt.Sprintf("%5d", v)
		if i < len(s.PDStatus) {
			line += "  " + pdText(s.PDStatus[i])
		}
		photodiodes = append(photodiodes, renderDetail(fmt.Sprintf("PD %d", i+1), line))
	}

	temps := make([]string, 0, len(s.Temperatures))
	for i, t := range s.Temperatures {
		temps = append(temps, renderDetail(fmt.Sprintf("Sensor %d", i+1), fmt.Sprintf("%.2f °C", t)))
	}

	return renderPanel(panel, width,
		section{"General", general},
		section{"Drivers", drivers},
		section{"Protection", protection},
		section{"Photodiodes", photodiodes},
		section{"Temperatures", temps},
	)
}

// RenderSeedStatus renders a seed laser status panel
func RenderSeedStatus(panel Panel, s status.Seed, width int) string {
	width = clampWidth(width)

	emission := ResultValueStyle.Render("off")
	if s.Emission {
		emission = lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("ON")
	}

	laser := []string{
		renderDetail("Emission", emission),
		renderDetail("Wavelength", fmt.Sprintf("%.4f nm", s.Wavelength)),
		renderDetail("Power", fmt.Sprintf("%d", s.Power)),
		renderDetail("Piezo voltage", fmt.Sprintf("%.2f V", s.PiezoVoltage)),
		renderDetail("Run time", fmt.Sprintf("%dh %02dm", s.RunHours, s.RunMinutes)),
	}
	thermal := []string{
		renderDetail("Setpoint", fmt.Sprintf("%.3f °C", s.TemperatureSet)),
		renderDetail("Actual", fmt.Sprintf("%.3f °C", s.TemperatureAct)),
		renderDetail("Diode", fmt.Sprintf("%.3f °C", s.TemperatureDiode)),
	}
	current := []string{
		renderDetail("Setpoint", fmt.Sprintf("%d mA", s.CurrentSet)),
		renderDetail("Actual", fmt.Sprintf("%d mA", s.CurrentAct)),
	}

	return renderPanel(panel, width,
		section{"Laser", laser},
		section{"Temperature", thermal},
		section{"Current", current},
	)
}

type section struct {
	title string
	lines []string
}

func renderPanel(panel Panel, width int, sections ...section) string {
	top := []string{HeaderTitleStyle.Render(strings.ToUpper(panel.Title))}
	if panel.Connection != "" {
		top = append(top, HeaderCommandStyle.Render(panel.Connection))
	}

	dividerWidth := width - 6 // Account for border and padding
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	top = append(top, RenderHorizontalDivider(dividerWidth, "─"))

	body := top
	for _, s := range sections {
		body = append(body, SectionTitleStyle.Render(s.title))
		body = append(body, s.lines...)
		body = append(body, "")
	}
	return PanelStyle(width).Render(strings.TrimRight(strings.Join(body, "\n"), "\n"))
}

// flag renders text in the nominal colour when ok is true
func flag(ok bool, okText, faultText string) string {
	if ok {
		return OKValueStyle.Render(okText)
	}
	return FaultValueStyle.Render(faultText)
}

func bitText(set bool) string {
	if set {
		return ResultValueStyle.Render("set")
	}
	return ResultValueStyle.Render("clear")
}

func enabledText(on bool) string {
	if on {
		return lipgloss.NewStyle().Foreground(WarningColor).Render("enabled")
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render("disabled")
}

func pdText(p status.PDStatus) string {
	var events []string
	if p.HardwareProtectionEvent() {
		events = append(events, "hw protection")
	}
	if p.UpperLimitEvent() {
		events = append(events, "upper limit")
	}
	if p.LowerLimitEvent() {
		events = append(events, "lower limit")
	}
	if len(events) > 0 {
		return FaultValueStyle.Render(strings.Join(events, ", "))
	}
	if !p.SamplingEnabled() {
		return lipgloss.NewStyle().Foreground(MutedColor).Render("sampling off")
	}
	return OKValueStyle.Render("ok")
}
