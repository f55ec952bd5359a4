package cpm

import "time"

// CPMResult holds the complete critical path analysis.
type CPMResult struct {
	Tasks         map[string]*TaskSchedule `json:"tasks"`
	CriticalPath  []string                 `json:"critical_path"` // critical task IDs in topological order
	TopoOrder     []string                 `json:"topo_order"`
	Waves         []Wave                   `json:"waves"`
	ProjectStart  time.Time                `json:"project_start"`
	ProjectFinish time.Time                `json:"project_finish"`
	TotalDays     int                      `json:"total_days"`
	Relations     RelationMode             `json:"relations"`
	Diagnostics   []Diagnostic             `json:"diagnostics,omitempty"`
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID      string        `json:"task_id"`
	Duration    int           `json:"duration_days"`
	EarlyStart  time.Time     `json:"early_start"`
	EarlyFinish time.Time     `json:"early_finish"`
	LateStart   time.Time     `json:"late_start"`
	LateFinish  time.Time     `json:"late_finish"`
	Slack       time.Duration `json:"slack"`
	IsCritical  bool          `json:"is_critical"`
	Wave        int           `json:"wave"`
}

// SlackDays returns the slack in whole days, truncated toward zero.
func (ts *TaskSchedule) SlackDays() int {
	return int(ts.Slack / day)
}

// Wave groups tasks that can start on the same calendar day.
type Wave struct {
	Index      int       `json:"index"`
	Day        time.Time `json:"day"`
	TaskIDs    []string  `json:"task_ids"`
	IsCritical bool      `json:"is_critical"` // true if wave contains critical path tasks
}

// DiagnosticKind classifies a non-fatal data-quality finding.
type DiagnosticKind string

const (
	DanglingDependency DiagnosticKind = "dangling-dependency"
	InvalidDuration    DiagnosticKind = "invalid-duration"
	InvalidDeadline    DiagnosticKind = "invalid-deadline"
	NegativeSlack      DiagnosticKind = "negative-slack"
	MismatchedTarget   DiagnosticKind = "mismatched-target"
)

// Diagnostic is a non-fatal problem found while analyzing. The analysis still
// produces a result; the caller decides how loudly to report it.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	TaskID  string         `json:"task_id"`
	Ref     string         `json:"ref,omitempty"`
	Message string         `json:"message"`
}
