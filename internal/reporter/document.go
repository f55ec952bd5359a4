package reporter

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/graph"
	"github.com/AlgoNouir/atomation/internal/source"
)

// ErrCannotCompute is the user-facing label for a fatal analysis failure.
const ErrCannotCompute = "cannot compute schedule"

// Document is the machine-readable analysis output shared by the CLI's
// --json mode and the HTTP API.
type Document struct {
	Source       string           `json:"source,omitempty"`
	Format       source.Format    `json:"format,omitempty"`
	Milestone    string           `json:"milestone,omitempty"`
	Relations    cpm.RelationMode `json:"relations,omitempty"`
	Error        string           `json:"error,omitempty"`
	Detail       string           `json:"detail,omitempty"`
	Cycle        []string         `json:"cycle,omitempty"`
	ProjectStart *time.Time       `json:"project_start,omitempty"`
	ProjectEnd   *time.Time       `json:"project_finish,omitempty"`
	TotalDays    int              `json:"total_days"`
	CriticalPath []string         `json:"critical_path"`
	Tasks        []TaskEntry      `json:"tasks"`
	Waves        []cpm.Wave       `json:"waves,omitempty"`
	Diagnostics  []cpm.Diagnostic `json:"diagnostics,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// TaskEntry joins a task's input window with its computed schedule.
type TaskEntry struct {
	ID           string             `json:"id"`
	Title        string             `json:"title,omitempty"`
	Status       string             `json:"status,omitempty"`
	Assignee     string             `json:"assignee,omitempty"`
	StartDate    time.Time          `json:"startDate"`
	DueDate      time.Time          `json:"dueDate"`
	Deadline     *time.Time         `json:"deadline,omitempty"`
	Dependencies []graph.Dependency `json:"dependencies,omitempty"`

	DurationDays int       `json:"duration_days"`
	EarlyStart   time.Time `json:"earlyStart"`
	EarlyFinish  time.Time `json:"earlyFinish"`
	LateStart    time.Time `json:"lateStart"`
	LateFinish   time.Time `json:"lateFinish"`
	SlackDays    int       `json:"slack_days"`
	IsCritical   bool      `json:"isCritical"`
	Wave         int       `json:"wave"`
}

// NewDocument assembles the output document. When err is non-nil the
// document carries the "cannot compute schedule" indicator instead of
// schedule data; a cyclic dependency also reports the cycle path.
func NewDocument(meta source.Meta, g *graph.TaskGraph, result *cpm.CPMResult, err error) *Document {
	doc := &Document{
		Source:       meta.Source,
		Format:       meta.Format,
		Milestone:    meta.Milestone,
		Warnings:     meta.Warnings,
		CriticalPath: []string{},
		Tasks:        []TaskEntry{},
	}

	if err != nil {
		doc.Error = ErrCannotCompute
		doc.Detail = err.Error()
		var cycErr *graph.CyclicDependencyError
		if errors.As(err, &cycErr) {
			doc.Cycle = cycErr.Cycle
		}
		return doc
	}
	if g == nil || result == nil {
		return doc
	}

	doc.Relations = result.Relations
	doc.TotalDays = result.TotalDays
	doc.CriticalPath = cpm.CriticalIDs(result)
	doc.Waves = result.Waves
	doc.Diagnostics = result.Diagnostics
	if len(result.TopoOrder) > 0 {
		start, end := result.ProjectStart, result.ProjectFinish
		doc.ProjectStart, doc.ProjectEnd = &start, &end
	}

	for _, id := range result.TopoOrder {
		t := g.Tasks[id]
		ts := result.Tasks[id]
		doc.Tasks = append(doc.Tasks, TaskEntry{
			ID:           t.ID,
			Title:        t.Title,
			Status:       t.Status,
			Assignee:     t.Assignee,
			StartDate:    t.StartDate,
			DueDate:      t.DueDate,
			Deadline:     t.Deadline,
			Dependencies: t.Dependencies,
			DurationDays: ts.Duration,
			EarlyStart:   ts.EarlyStart,
			EarlyFinish:  ts.EarlyFinish,
			LateStart:    ts.LateStart,
			LateFinish:   ts.LateFinish,
			SlackDays:    ts.SlackDays(),
			IsCritical:   ts.IsCritical,
			Wave:         ts.Wave,
		})
	}
	return doc
}

// JSON returns the indented document.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
