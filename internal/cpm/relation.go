package cpm

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlgoNouir/atomation/internal/graph"
)

// RelationMode selects how dependency types drive date propagation.
type RelationMode string

const (
	// RelationsTyped enforces FS, SS, FF and SF with their own semantics.
	RelationsTyped RelationMode = "typed"
	// RelationsAsFS propagates every edge as finish-to-start regardless of
	// its tag, the way the web client's Gantt chart always has.
	RelationsAsFS RelationMode = "as-fs"
	// RelationsFSOnly propagates FS edges only. Other edges still order the
	// graph and count toward cycles but impose no dates.
	RelationsFSOnly RelationMode = "fs-only"
)

// RelationModes lists the accepted modes.
func RelationModes() []RelationMode {
	return []RelationMode{RelationsTyped, RelationsAsFS, RelationsFSOnly}
}

// ParseRelationMode parses a mode name. Empty means typed.
func ParseRelationMode(s string) (RelationMode, error) {
	m := RelationMode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return RelationsTyped, nil
	}
	for _, known := range RelationModes() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown relation mode %q (use typed, as-fs or fs-only)", s)
}

// effective maps an edge's tag to the relation applied under mode m. The
// second return is false when the edge imposes no date constraint.
func (m RelationMode) effective(rel graph.RelationType) (graph.RelationType, bool) {
	switch m {
	case RelationsAsFS:
		return graph.FinishToStart, true
	case RelationsFSOnly:
		return rel, rel == graph.FinishToStart
	default:
		return rel, true
	}
}

// bound says which end of a task a constraint applies to.
type bound int

const (
	boundStart bound = iota
	boundFinish
)

// forwardConstraint returns the earliest date a predecessor's early schedule
// allows for the successor, and which end of the successor it binds.
func forwardConstraint(rel graph.RelationType, pred *TaskSchedule) (time.Time, bound) {
	switch rel {
	case graph.StartToStart:
		return pred.EarlyStart, boundStart
	case graph.FinishToFinish:
		return pred.EarlyFinish, boundFinish
	case graph.StartToFinish:
		return pred.EarlyStart, boundFinish
	default:
		return pred.EarlyFinish, boundStart
	}
}

// backwardConstraint returns the latest date a successor's late schedule
// allows for the predecessor, and which end of the predecessor it binds.
func backwardConstraint(rel graph.RelationType, succ *TaskSchedule) (time.Time, bound) {
	switch rel {
	case graph.StartToStart:
		return succ.LateStart, boundStart
	case graph.FinishToFinish:
		return succ.LateFinish, boundFinish
	case graph.StartToFinish:
		return succ.LateFinish, boundStart
	default:
		return succ.LateStart, boundFinish
	}
}
