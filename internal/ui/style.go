package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// SetColor turns terminal styling on or off for every helper in this package.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// ColorEnabled reports whether styling is currently applied.
func ColorEnabled() bool { return !color.NoColor }

// PrintLogo renders the colored atomation banner to w.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	bars := color.New(color.FgYellow)
	crit := color.New(color.FgRed, color.Bold)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +----------------------------+")
	bars.Fprintln(w, "   |  ====                      |")
	crit.Fprintln(w, "   |      ########              |")
	bars.Fprintln(w, "   |      ====                  |")
	crit.Fprintln(w, "   |              ##########    |")
	frame.Fprintln(w, "   |============================|")
	brand.Fprintln(w, "   |   A T O M A T I O N        |")
	frame.Fprintln(w, "   +----------------------------+")
	tag.Fprintf(w, "   %s Critical path scheduling\n", Dim("📅"))
	fmt.Fprintln(w)
}

// StatusIcon returns a colored icon for a task's board status.
func StatusIcon(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "done":
		return Green("✓")
	case "in progress":
		return Cyan("●")
	case "to do", "todo":
		return Dim("◌")
	case "":
		return " "
	default:
		return Yellow("?")
	}
}

// CriticalMark returns the lightning marker for critical tasks, or a space.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// SlackText formats slack in days, red when negative and dim when zero.
func SlackText(days int) string {
	s := fmt.Sprintf("%+dd", days)
	switch {
	case days < 0:
		return Red(s)
	case days == 0:
		return Dim("0d")
	default:
		return Green(s)
	}
}

// WaveStatus returns a colored wave label.
func WaveStatus(critical bool) string {
	if critical {
		return BoldYellow("critical")
	}
	return Dim("slack")
}
