package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

var (
	green  = lipgloss.Color("#B2FF00")
	yellow = lipgloss.Color("#FFDC65")
	orange = lipgloss.Color("#FC7B00")
	red    = lipgloss.Color("#FF007F")
	gray   = lipgloss.Color("#8A8783")
	blue   = lipgloss.Color("#1AAEFC")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(blue)
	mutedStyle  = lipgloss.NewStyle().Foreground(gray)
	okStyle     = lipgloss.NewStyle().Foreground(green)
	warnStyle   = lipgloss.NewStyle().Foreground(yellow)
)

const maxCell = 40

func statusStyle(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusOnline:
		return lipgloss.NewStyle().Foreground(green)
	case domain.StatusMaintenance:
		return lipgloss.NewStyle().Foreground(yellow)
	default:
		return mutedStyle
	}
}

func healthStyle(h domain.HealthStatus) lipgloss.Style {
	switch h {
	case domain.HealthReachable:
		return lipgloss.NewStyle().Foreground(green)
	case domain.HealthUnreachable:
		return lipgloss.NewStyle().Foreground(red)
	case domain.HealthNetworkError:
		return lipgloss.NewStyle().Foreground(orange)
	default:
		return mutedStyle
	}
}

// cell is a table value with an optional style. Widths are computed on the
// plain text so styling never breaks alignment.
type cell struct {
	text  string
	style *lipgloss.Style
}

func plain(s string) cell { return cell{text: s} }

func styled(s string, st lipgloss.Style) cell { return cell{text: s, style: &st} }

// writeTable prints rows under headers with columns padded to the widest
// cell, counting East Asian wide runes as two columns.
func writeTable(w io.Writer, headers []string, rows [][]cell) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range row {
			row[i].text = runewidth.Truncate(row[i].text, maxCell, "…")
			if n := runewidth.StringWidth(row[i].text); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(headerStyle.Render(pad(h, widths[i], i == len(headers)-1)))
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), " "))

	for _, row := range rows {
		b.Reset()
		for i, c := range row {
			text := pad(c.text, widths[i], i == len(row)-1)
			if c.style != nil {
				text = c.style.Render(text)
			}
			b.WriteString(text)
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return s + strings.Repeat(" ", width-runewidth.StringWidth(s)+2)
}

// notice prints a highlighted line to w.
func notice(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(format, args...)))
}

func done(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}
