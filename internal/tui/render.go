// Package tui renders snapshots for the terminal: a static lipgloss table for
// one-off inspection and a bubbletea live view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

type column struct {
	title string
	width int
}

var columns = []column{
	{"SENSOR", 16},
	{"CURRENT", 9},
	{"AVG", 7},
	{"MAX", 7},
	{"N", 4},
	{"CORES", 6},
	{"USAGE", 7},
	{"STATUS", 9},
	{"ACTION", 13},
}

// RenderSnapshot draws snap as a bordered table followed by its summary.
func RenderSnapshot(snap models.Snapshot) string {
	var b strings.Builder

	source := string(snap.Source)
	if snap.Synthetic {
		source += " (synthetic)"
	}
	title := titleStyle.Render("Thermal snapshot") + "  " + labelStyle.Render(source)
	if snap.LogTime != "" {
		title += labelStyle.Render("  log time " + snap.LogTime)
	}
	b.WriteString(title)
	b.WriteString("\n")

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = pad(c.title, c.width)
	}
	b.WriteString(headerStyle.Render(strings.Join(header, " ")))
	b.WriteString("\n")

	for _, s := range snap.Sensors {
		usage := fmt.Sprintf("%d%%", s.Usage)
		if s.UsageSynthetic {
			usage += "*"
		}
		cells := []string{
			pad(truncate(s.Name, columns[0].width), columns[0].width),
			pad(formatTemp(s.CurrentTemperature), columns[1].width),
			pad(formatTemp(s.AverageTemperature), columns[2].width),
			pad(formatTemp(s.MaxTemperature), columns[3].width),
			pad(fmt.Sprintf("%d", s.Samples), columns[4].width),
			pad(fmt.Sprintf("%d", s.Cores), columns[5].width),
			pad(usage, columns[6].width),
			statusStyle(s.Status).Render(pad(string(s.Status), columns[7].width)),
			pad(s.Action, columns[8].width),
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}

	sum := snap.Summary
	b.WriteString(labelStyle.Render(fmt.Sprintf(
		"max %s  min %s  avg %s  ", formatTemp(sum.MaxTemp), formatTemp(sum.MinTemp), formatTemp(sum.AvgTemp))))
	b.WriteString(critStyle.Render(fmt.Sprintf("%d critical", sum.CriticalCount)))
	b.WriteString("  ")
	b.WriteString(warnStyle.Render(fmt.Sprintf("%d warning", sum.WarningCount)))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  policy %s", snap.Policy)))

	return panelStyle.Render(b.String())
}

func formatTemp(v float64) string {
	return fmt.Sprintf("%.1f%s", v, models.CelsiusUnit)
}

func pad(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
