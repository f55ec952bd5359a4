package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrDuplicateTask    = errors.New("duplicate task id")
	ErrEmptyTaskID      = errors.New("empty task id")
	ErrInvalidRelation  = errors.New("invalid relation type")
)

// CyclicDependencyError reports a dependency cycle. Cycle lists the tasks on
// the cycle in edge order, with the first task repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrCyclicDependency.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Cycle, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}
