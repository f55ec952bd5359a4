package reporter

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/graph"
	"github.com/AlgoNouir/atomation/internal/ui"
)

const (
	DefaultDateFormat = "2006-01-02"
	DefaultWidth      = 60
)

// Options controls how schedules are rendered.
type Options struct {
	DateFormat string // Go time layout
	Width      int    // Gantt bar columns
	Source     string
	Milestone  string
}

func (o Options) dateFormat() string {
	if o.DateFormat == "" {
		return DefaultDateFormat
	}
	return o.DateFormat
}

func (o Options) width() int {
	if o.Width <= 0 {
		return DefaultWidth
	}
	return o.Width
}

// Summary writes the schedule overview and per-wave task table to w. The
// output is also returned as a string for reuse (e.g. as context for Claude
// narrative reports).
func Summary(w io.Writer, g *graph.TaskGraph, result *cpm.CPMResult, opts Options) string {
	var b strings.Builder
	mw := io.MultiWriter(w, &b)
	layout := opts.dateFormat()

	edges := 0
	for _, out := range g.Adj {
		edges += len(out)
	}

	// --- Header ---
	fmt.Fprintf(mw, "📅 %s\n", ui.BoldCyan("Schedule Analysis"))
	fmt.Fprintln(mw, ui.Cyan("═════════════════════"))
	if opts.Source != "" {
		fmt.Fprintf(mw, "Source:    %s\n", ui.Dim(opts.Source))
	}
	if opts.Milestone != "" {
		fmt.Fprintf(mw, "Milestone: %s\n", ui.Bold(opts.Milestone))
	}
	fmt.Fprintf(mw, "Tasks:     %s (%d dependencies", ui.Bold(g.TaskCount()), edges)
	if len(g.Dangling) > 0 {
		fmt.Fprintf(mw, ", %s", ui.Yellow(fmt.Sprintf("%d dangling", len(g.Dangling))))
	}
	fmt.Fprintln(mw, ")")
	fmt.Fprintf(mw, "Relations: %s\n", result.Relations)
	if len(result.TopoOrder) > 0 {
		fmt.Fprintf(mw, "Span:      %s → %s (%s)\n",
			result.ProjectStart.Format(layout), result.ProjectFinish.Format(layout),
			ui.Bold(fmt.Sprintf("%d days", result.TotalDays)))
	}
	if len(result.CriticalPath) > 0 {
		fmt.Fprintf(mw, "⚡ Critical path: %s (%d tasks)\n",
			ui.BoldYellow(strings.Join(result.CriticalPath, " → ")), len(result.CriticalPath))
	} else {
		fmt.Fprintf(mw, "⚡ Critical path: %s\n", ui.Dim("none"))
	}
	fmt.Fprintln(mw)

	// --- Per-wave breakdown ---
	for _, wave := range result.Waves {
		fmt.Fprintf(mw, "🌊 %s %d  %s  (%d tasks, %s):\n",
			ui.BoldWhite("Wave"), wave.Index+1, wave.Day.Format(layout),
			len(wave.TaskIDs), ui.WaveStatus(wave.IsCritical))
		for _, id := range wave.TaskIDs {
			printTaskRow(mw, g.Tasks[id], result.Tasks[id], layout)
		}
		fmt.Fprintln(mw)
	}

	// --- Footer: diagnostics ---
	if len(result.Diagnostics) > 0 {
		fmt.Fprintf(mw, "%s\n", ui.BoldYellow("Warnings:"))
		for _, d := range result.Diagnostics {
			fmt.Fprintf(mw, "  %s %s %s\n", ui.Yellow("!"), ui.BoldMagenta(d.TaskID), d.Message)
		}
	}

	return b.String()
}

func printTaskRow(w io.Writer, task *graph.Task, ts *cpm.TaskSchedule, layout string) {
	title := truncate(task.Title, 36)
	fmt.Fprintf(w, "  %s %s %-10s %-36s  ES %s  LS %s  %2dd  slack %s\n",
		ui.CriticalMark(ts.IsCritical),
		ui.StatusIcon(task.Status),
		ui.BoldMagenta(task.ID),
		title,
		ts.EarlyStart.Format(layout),
		ts.LateStart.Format(layout),
		ts.Duration,
		ui.SlackText(ts.SlackDays()))
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
