// Package ctl implements the commands behind tlectl. Local commands run the
// parser in-process; the rest talk to a running tlecheckd over HTTP and
// WebSocket. Everything renders to the terminal, or as JSON with --json.
package ctl

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/large-farva/tlecheck/internal/tle"
)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	white  = "\033[37m"
)

// stdout is where every command writes. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// colorEnabled reports whether stdout is a terminal. When output is piped
// or redirected, ANSI escape codes are suppressed.
func colorEnabled() bool {
	if stdout != io.Writer(os.Stdout) {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// stateColor returns the ANSI color code appropriate for a daemon state.
func stateColor(state string) string {
	if !colorEnabled() {
		return ""
	}
	switch state {
	case "IDLE":
		return green
	case "PARSING":
		return cyan
	case "BOOTING":
		return dim
	default:
		return white
	}
}

// finalStateColor colors a parser final state.
func finalStateColor(s tle.State) string {
	switch s {
	case tle.StateCompleted:
		return green
	case tle.StateError:
		return red
	default:
		return white
	}
}

func severityColor(s tle.Severity) string {
	switch s {
	case tle.SeverityCritical:
		return bold + red
	case tle.SeverityError:
		return red
	default:
		return yellow
	}
}

// colorize wraps text with an ANSI color sequence.
// Returns the text unchanged when color output is disabled.
func colorize(color, text string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return color + text + reset
}

// header returns a bold section header, or plain text when color is off.
func header(title string) string {
	if colorEnabled() {
		return bold + title + reset
	}
	return title
}

func rule(width int) string {
	return colorize(dim, "  "+strings.Repeat("─", width))
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatDuration renders a time.Duration as a compact human string like
// "2h 14m 8s" or "45s".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatBytes renders a byte count as a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// progressBar builds a simple ASCII bar of the given width.
// The filled portion is colored green when color output is enabled.
func progressBar(pct, width int) string {
	filled := (pct * width) / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled
	return colorize(green, strings.Repeat("=", filled)) + strings.Repeat(" ", empty)
}

// table collects rows and prints them with padded columns. Cells are
// measured before coloring, so color must be applied through rowColored.
type table struct {
	indent string
	head   []string
	rows   [][]string
	colors [][]string
	right  map[int]bool
}

func newTable(indent string, head ...string) *table {
	return &table{indent: indent, head: head, right: make(map[int]bool)}
}

func (t *table) alignRight(cols ...int) {
	for _, c := range cols {
		t.right[c] = true
	}
}

func (t *table) row(cells ...string) {
	t.rowColored(nil, cells...)
}

// rowColored adds a row; colors[i], when set, colors cell i.
func (t *table) rowColored(colors []string, cells ...string) {
	t.rows = append(t.rows, cells)
	t.colors = append(t.colors, colors)
}

func (t *table) flush() {
	widths := make([]int, len(t.head))
	for i, h := range t.head {
		widths[i] = len(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	cell := func(i int, s string) string {
		if t.right[i] {
			return padLeft(s, widths[i])
		}
		return padRight(s, widths[i])
	}

	heads := make([]string, len(t.head))
	for i, h := range t.head {
		heads[i] = colorize(dim, cell(i, h))
	}
	fmt.Fprintln(stdout, t.indent+strings.TrimRight(strings.Join(heads, "  "), " "))

	for ri, r := range t.rows {
		out := make([]string, len(r))
		for i, c := range r {
			if i >= len(widths) {
				out[i] = c
				continue
			}
			s := cell(i, c)
			if cs := t.colors[ri]; i < len(cs) && cs[i] != "" {
				s = colorize(cs[i], s)
			}
			out[i] = s
		}
		fmt.Fprintln(stdout, t.indent+strings.TrimRight(strings.Join(out, "  "), " "))
	}
}
