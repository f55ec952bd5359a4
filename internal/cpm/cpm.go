package cpm

import (
	"fmt"
	"sort"
	"time"

	"github.com/AlgoNouir/atomation/internal/graph"
)

// Options tunes an analysis. The zero value enforces all four relation types
// and ignores deadlines.
type Options struct {
	Relations RelationMode
	// UseDeadlines seeds each task's late finish with its Deadline instead of
	// its DueDate when the deadline is set and not before the due date.
	UseDeadlines bool
}

// AnalyzeTasks builds the task graph and analyzes it in one step.
func AnalyzeTasks(tasks []graph.Task, opts Options) (*CPMResult, error) {
	g, err := graph.Build(tasks)
	if err != nil {
		return nil, err
	}
	return Analyze(g, opts)
}

// Analyze performs critical path method analysis on a task graph.
//
// Each task's own StartDate seeds its early start and its DueDate caps its
// late finish (its Deadline, with UseDeadlines); dependencies can only push
// the early start later and the late finish earlier. The passes move tasks by
// their exact window, so an unconstrained task finishes on its due date.
// A task is critical when its early and late starts coincide. The graph is
// only read.
func Analyze(g *graph.TaskGraph, opts Options) (*CPMResult, error) {
	mode := opts.Relations
	if mode == "" {
		mode = RelationsTyped
	}
	if _, err := ParseRelationMode(string(mode)); err != nil {
		return nil, err
	}

	order, err := graph.TopoSort(g)
	if err != nil {
		return nil, err
	}

	result := &CPMResult{
		Tasks:     make(map[string]*TaskSchedule, len(order)),
		TopoOrder: order,
		Relations: mode,
	}

	for _, d := range g.Dangling {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Kind:    DanglingDependency,
			TaskID:  d.To,
			Ref:     d.From,
			Message: fmt.Sprintf("dependency on unknown task %q ignored", d.From),
		})
	}

	for _, r := range g.Retargeted {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Kind:    MismatchedTarget,
			TaskID:  r.Owner,
			Ref:     r.DeclaredTo,
			Message: fmt.Sprintf("dependency on %q declares target %q; attached to %q", r.From, r.DeclaredTo, r.Owner),
		})
	}

	// Resolve each task's working window once; bad windows are clamped.
	windows := make(map[string]window, len(order))
	for _, id := range order {
		w, diags := resolveWindow(g.Tasks[id], opts.UseDeadlines)
		windows[id] = w
		result.Diagnostics = append(result.Diagnostics, diags...)
		result.Tasks[id] = &TaskSchedule{TaskID: id, Duration: w.duration}
	}

	forwardPass(g, order, windows, mode, result)
	backwardPass(g, order, windows, mode, result)

	for _, id := range order {
		ts := result.Tasks[id]
		if ts.IsCritical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
		if ts.Slack < 0 {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Kind:   NegativeSlack,
				TaskID: id,
				Message: fmt.Sprintf("late start %s precedes early start %s",
					ts.LateStart.Format(time.RFC3339), ts.EarlyStart.Format(time.RFC3339)),
			})
		}
	}

	computeSpan(result)
	result.Waves = computeWaves(result)

	return result, nil
}

// window is a task's effective schedule window after validation. duration is
// the reported whole-day length; span is the exact length the passes use.
type window struct {
	start        time.Time
	latestFinish time.Time
	duration     int
	span         time.Duration
}

func resolveWindow(t *graph.Task, useDeadlines bool) (window, []Diagnostic) {
	var diags []Diagnostic

	due := t.DueDate
	dur := Duration(t)
	if t.DueDate.Before(t.StartDate) {
		diags = append(diags, Diagnostic{
			Kind:   InvalidDuration,
			TaskID: t.ID,
			Message: fmt.Sprintf("due date %s is before start date %s; duration clamped to 0",
				t.DueDate.Format(time.RFC3339), t.StartDate.Format(time.RFC3339)),
		})
		dur = 0
		due = t.StartDate
	}

	latest := due
	if useDeadlines && t.Deadline != nil {
		if t.Deadline.Before(due) {
			diags = append(diags, Diagnostic{
				Kind:   InvalidDeadline,
				TaskID: t.ID,
				Message: fmt.Sprintf("deadline %s is before due date %s; deadline ignored",
					t.Deadline.Format(time.RFC3339), due.Format(time.RFC3339)),
			})
		} else {
			latest = *t.Deadline
		}
	}

	return window{start: t.StartDate, latestFinish: latest, duration: dur, span: due.Sub(t.StartDate)}, diags
}

// forwardPass computes early start and finish in topological order.
func forwardPass(g *graph.TaskGraph, order []string, windows map[string]window, mode RelationMode, result *CPMResult) {
	for _, id := range order {
		w := windows[id]
		span := w.span

		es := w.start
		for _, e := range g.RevAdj[id] {
			rel, ok := mode.effective(e.Type)
			if !ok {
				continue
			}
			pred, ok := result.Tasks[e.From]
			if !ok {
				continue
			}
			at, b := forwardConstraint(rel, pred)
			if b == boundFinish {
				at = at.Add(-span)
			}
			if at.After(es) {
				es = at
			}
		}

		ts := result.Tasks[id]
		ts.EarlyStart = es
		ts.EarlyFinish = es.Add(span)
	}
}

// backwardPass computes late start and finish in reverse topological order
// and classifies each task.
func backwardPass(g *graph.TaskGraph, order []string, windows map[string]window, mode RelationMode, result *CPMResult) {
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		w := windows[id]
		span := w.span

		lf := w.latestFinish
		for _, e := range g.Adj[id] {
			rel, ok := mode.effective(e.Type)
			if !ok {
				continue
			}
			succ, ok := result.Tasks[e.To]
			if !ok {
				continue
			}
			at, b := backwardConstraint(rel, succ)
			if b == boundStart {
				at = at.Add(span)
			}
			if at.Before(lf) {
				lf = at
			}
		}

		ts := result.Tasks[id]
		ts.LateFinish = lf
		ts.LateStart = lf.Add(-span)
		ts.Slack = ts.LateStart.Sub(ts.EarlyStart)
		ts.IsCritical = ts.LateStart.Equal(ts.EarlyStart)
	}
}

func computeSpan(result *CPMResult) {
	first := true
	for _, id := range result.TopoOrder {
		ts := result.Tasks[id]
		if first || ts.EarlyStart.Before(result.ProjectStart) {
			result.ProjectStart = ts.EarlyStart
		}
		if first || ts.EarlyFinish.After(result.ProjectFinish) {
			result.ProjectFinish = ts.EarlyFinish
		}
		first = false
	}
	if !first {
		span := result.ProjectFinish.Sub(result.ProjectStart)
		result.TotalDays = int((span + day - 1) / day)
	}
}

// computeWaves groups tasks by the calendar day of their early start.
func computeWaves(result *CPMResult) []Wave {
	groups := make(map[time.Time][]string)
	for _, id := range result.TopoOrder {
		d := calendarDay(result.Tasks[id].EarlyStart)
		groups[d] = append(groups[d], id)
	}

	keys := make([]time.Time, 0, len(groups))
	for d := range groups {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	waves := make([]Wave, len(keys))
	for i, d := range keys {
		taskIDs := groups[d]
		sort.Strings(taskIDs)

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Critical tasks first within a wave
		sort.SliceStable(taskIDs, func(a, b int) bool {
			return result.Tasks[taskIDs[a]].IsCritical && !result.Tasks[taskIDs[b]].IsCritical
		})

		waves[i] = Wave{
			Index:      i,
			Day:        d,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}

func calendarDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// IsCritical reports whether the task with the given ID is on the critical path.
func (r *CPMResult) IsCritical(id string) bool {
	ts, ok := r.Tasks[id]
	return ok && ts.IsCritical
}

// CriticalIDs returns the critical task IDs in topological order. A nil
// result yields nil.
func CriticalIDs(r *CPMResult) []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.CriticalPath))
	copy(out, r.CriticalPath)
	return out
}
