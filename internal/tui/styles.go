package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

var (
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorGray    = lipgloss.Color("#6272A4")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle  = lipgloss.NewStyle().Foreground(colorGray)
	headerStyle = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	coolStyle   = lipgloss.NewStyle().Foreground(colorCyan)
	helpStyle   = lipgloss.NewStyle().Foreground(colorGray)
)

func statusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusCritical:
		return critStyle
	case models.StatusWarning:
		return warnStyle
	case models.StatusCool:
		return coolStyle
	default:
		return okStyle
	}
}
