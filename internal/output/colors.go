package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title     *color.Color
	Section   *color.Color
	Value     *color.Color
	Dim       *color.Color
	Good      *color.Color
	Warn      *color.Color
	Bad       *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Section:   color.New(color.Bold),
		Value:     color.New(color.FgCyan),
		Dim:       color.New(color.Faint),
		Good:      color.New(color.FgGreen),
		Warn:      color.New(color.FgYellow, color.Bold),
		Bad:       color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range []*color.Color{
		scheme.Title, scheme.Section, scheme.Value, scheme.Dim,
		scheme.Good, scheme.Warn, scheme.Bad, scheme.Highlight,
	} {
		c.DisableColor()
	}
	return scheme
}

// ForceColorScheme returns the default scheme with colors on even when the
// writer is not a terminal.
func ForceColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range []*color.Color{
		scheme.Title, scheme.Section, scheme.Value, scheme.Dim,
		scheme.Good, scheme.Warn, scheme.Bad, scheme.Highlight,
	} {
		c.EnableColor()
	}
	return scheme
}

// SeverityColor picks the color of an anomaly severity.
func (s *ColorScheme) SeverityColor(severity string) *color.Color {
	switch severity {
	case "CRITICAL":
		return s.Bad
	case "WARNING":
		return s.Warn
	default:
		return s.Value
	}
}

// PriorityColor picks the color of a bottleneck priority.
func (s *ColorScheme) PriorityColor(priority int) *color.Color {
	switch {
	case priority >= 70:
		return s.Bad
	case priority >= 40:
		return s.Warn
	default:
		return s.Good
	}
}

// SuccessIcon returns a checkmark symbol with appropriate color
func SuccessIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// WarningIcon returns a warning symbol with appropriate color
func WarningIcon(noColor bool) string {
	if noColor {
		return "⚠"
	}
	return color.New(color.FgYellow).Sprint("⚠")
}

// ErrorIcon returns an X symbol with appropriate color
func ErrorIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}
