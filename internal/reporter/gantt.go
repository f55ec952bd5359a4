package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/graph"
	"github.com/AlgoNouir/atomation/internal/ui"
)

const (
	barCritical = '#'
	barNormal   = '='
	markDL      = '|'
	maxLabel    = 16
)

// Gantt draws each task's planned window (startDate to dueDate) as a bar on
// a shared time axis, in topological order. Critical tasks are drawn with
// '#', others with '='; a '|' marks a deadline beyond the due date.
func Gantt(w io.Writer, g *graph.TaskGraph, result *cpm.CPMResult, opts Options) {
	width := opts.width()
	layout := opts.dateFormat()

	if len(result.TopoOrder) == 0 {
		fmt.Fprintln(w, ui.Dim("no tasks"))
		return
	}

	lo, hi := chartBounds(g, result.TopoOrder)
	span := hi.Sub(lo)
	if span <= 0 {
		span = 24 * time.Hour
	}
	col := func(t time.Time) int {
		c := int(float64(t.Sub(lo)) / float64(span) * float64(width))
		if c < 0 {
			return 0
		}
		if c > width {
			return width
		}
		return c
	}

	label := 0
	for _, id := range result.TopoOrder {
		if n := len([]rune(id)); n > label {
			label = n
		}
	}
	if label > maxLabel {
		label = maxLabel
	}

	// Axis
	loStr, hiStr := lo.Format(layout), hi.Format(layout)
	pad := width - len(loStr) - len(hiStr)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(w, "%-*s  %s%s%s\n", label, "", ui.Dim(loStr), strings.Repeat(" ", pad), ui.Dim(hiStr))

	for _, id := range result.TopoOrder {
		task := g.Tasks[id]
		critical := result.IsCritical(id)

		due := task.DueDate
		if due.Before(task.StartDate) {
			due = task.StartDate
		}

		row := []rune(strings.Repeat(" ", width))
		start, end := col(task.StartDate), col(due)
		if start >= width {
			start = width - 1
		}
		if end <= start {
			end = start + 1
		}

		ch := barNormal
		if critical {
			ch = barCritical
		}
		for i := start; i < end; i++ {
			row[i] = ch
		}
		if task.Deadline != nil && task.Deadline.After(due) {
			if dl := col(*task.Deadline); dl >= end && dl < width {
				row[dl] = markDL
			} else if dl >= width && end < width {
				row[width-1] = markDL
			}
		}

		bar := string(row[start:end])
		if critical {
			bar = ui.BoldRed(bar)
		} else {
			bar = ui.Cyan(bar)
		}

		fmt.Fprintf(w, "%-*s  %s%s%s  %s → %s %s\n",
			label, truncate(id, label),
			string(row[:start]), bar, ui.Dim(string(row[end:])),
			task.StartDate.Format(layout), due.Format(layout),
			ui.CriticalMark(critical))
	}
}

// chartBounds returns the earliest start and the latest due date or deadline
// across the given tasks.
func chartBounds(g *graph.TaskGraph, ids []string) (lo, hi time.Time) {
	for i, id := range ids {
		t := g.Tasks[id]
		end := t.DueDate
		if t.Deadline != nil && t.Deadline.After(end) {
			end = *t.Deadline
		}
		if end.Before(t.StartDate) {
			end = t.StartDate
		}
		if i == 0 || t.StartDate.Before(lo) {
			lo = t.StartDate
		}
		if i == 0 || end.After(hi) {
			hi = end
		}
	}
	return lo, hi
}
