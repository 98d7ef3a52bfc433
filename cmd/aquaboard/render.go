package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/aquaboard"
	"github.com/jpalmerr/aquaboard/series"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	readyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// statusStyle picks the colour a status message is printed in.
func statusStyle(s aquaboard.Status) lipgloss.Style {
	switch {
	case s.IsError():
		return errorStyle
	case s == aquaboard.StatusReady:
		return readyStyle
	default:
		return warnStyle
	}
}

// renderTable lays out t with one column per field. Headers use the field
// labels and units where known.
func renderTable(t series.Table, fields []aquaboard.Field) string {
	headers := make([]string, 0, len(t.Columns)+1)
	headers = append(headers, "Time")
	for _, name := range t.Columns {
		headers = append(headers, columnHeader(name, fields))
	}

	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string{r.Time}, r.Cells...)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	// room for the padding on both sides
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	sep := mutedStyle.Render("|")

	for i, h := range headers {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")

	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				sb.WriteString(sep)
			}
			// numbers read better right-aligned
			style := cellStyle.Width(widths[i])
			if i > 0 {
				style = style.Align(lipgloss.Right)
			}
			sb.WriteString(style.Render(cell))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func columnHeader(name string, fields []aquaboard.Field) string {
	for _, f := range fields {
		if f.Name() != name {
			continue
		}
		if f.Unit() != "" {
			return f.Label() + " (" + f.Unit() + ")"
		}
		return f.Label()
	}
	return name
}
