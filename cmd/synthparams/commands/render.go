package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primary = lipgloss.Color("#00ff9f")
	dim     = lipgloss.Color("#6e7681")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	cellStyle   = lipgloss.NewStyle()
)

// renderTable lays out rows in left aligned columns under a bold header.
func renderTable(title string, header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(titleStyle.Render(title))
		b.WriteByte('\n')
	}
	line := func(cells []string, style lipgloss.Style) {
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(style.Render(c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))))
		}
		b.WriteByte('\n')
	}
	line(header, headerStyle)
	total := 0
	for _, w := range widths {
		total += w
	}
	b.WriteString(dimStyle.Render(strings.Repeat("─", total+2*(len(widths)-1))))
	b.WriteByte('\n')
	for _, row := range rows {
		line(row, cellStyle)
	}
	return b.String()
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6g", v)
}
