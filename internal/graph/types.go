package graph

import (
	"fmt"
	"strings"
	"time"
)

// RelationType is a precedence relation between two tasks.
type RelationType string

const (
	FinishToStart  RelationType = "FS"
	StartToStart   RelationType = "SS"
	FinishToFinish RelationType = "FF"
	StartToFinish  RelationType = "SF"
)

// IsValid reports whether r is one of the four precedence relations.
func (r RelationType) IsValid() bool {
	switch r {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// ParseRelationType parses a relation tag case-insensitively.
// An empty tag is FS, which is what the backend stores by default.
func ParseRelationType(s string) (RelationType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return FinishToStart, nil
	}
	r := RelationType(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRelation, s)
	}
	return r, nil
}

// Dependency is a directed edge From -> To. A task carries the edges that
// point into it, so To is normally the owning task's ID.
type Dependency struct {
	From string       `json:"from" yaml:"from"`
	To   string       `json:"to" yaml:"to"`
	Type RelationType `json:"type" yaml:"type"`
}

// Task is a single schedulable unit within a milestone.
type Task struct {
	ID           string       `json:"id" yaml:"id"`
	Title        string       `json:"title,omitempty" yaml:"title,omitempty"`
	Status       string       `json:"status,omitempty" yaml:"status,omitempty"`
	Assignee     string       `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	StartDate    time.Time    `json:"startDate" yaml:"startDate"`
	DueDate      time.Time    `json:"dueDate" yaml:"dueDate"`
	Deadline     *time.Time   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Edge is a resolved dependency between two tasks present in the graph.
type Edge struct {
	From string
	To   string
	Type RelationType
}

// TaskGraph is a directed graph of tasks keyed by ID.
type TaskGraph struct {
	Tasks      map[string]*Task
	Adj        map[string][]Edge // task -> edges to its successors
	RevAdj     map[string][]Edge // task -> edges from its predecessors
	Roots      []string          // tasks with no predecessors
	Leaves     []string          // tasks with no successors
	Dangling   []Dependency      // edges whose predecessor is not in the graph
	Retargeted []Retarget        // dependencies attached to their owner despite a different To
}

// Retarget records a dependency whose declared To differs from the task that
// carries it. The edge is attached to Owner.
type Retarget struct {
	Owner      string
	From       string
	DeclaredTo string
}
