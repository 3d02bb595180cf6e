package ui

import "github.com/charmbracelet/lipgloss"

// Palette shared with internal/output.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the dashboard styles.
type Styles struct {
	Header    lipgloss.Style
	Value     lipgloss.Style
	Label     lipgloss.Style
	Dim       lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Border    lipgloss.Style
	Sparkline lipgloss.Style
}

// DefaultStyles returns the coloured styles.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Value:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Sparkline: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns unstyled components.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:    plain,
		Value:     plain,
		Label:     plain,
		Dim:       plain,
		Warning:   plain,
		Error:     plain,
		Border:    plain,
		Sparkline: plain,
	}
}
