package graph

import (
	"fmt"
	"sort"
)

// Build constructs a TaskGraph from a milestone's task list. The input slice
// and the tasks in it are never modified; the graph holds its own copies.
//
// Each dependency is attached to the task that carries it: the owning task is
// the successor and Dependency.From is the predecessor. A declared To naming
// a different task is recorded in Retargeted. Dependencies whose predecessor
// is not in the input set are recorded in Dangling and otherwise ignored.
func Build(tasks []Task) (*TaskGraph, error) {
	g := &TaskGraph{
		Tasks:  make(map[string]*Task, len(tasks)),
		Adj:    make(map[string][]Edge),
		RevAdj: make(map[string][]Edge),
	}

	for i := range tasks {
		t := cloneTask(&tasks[i])
		if t.ID == "" {
			return nil, fmt.Errorf("task at index %d: %w", i, ErrEmptyTaskID)
		}
		if _, ok := g.Tasks[t.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
		}
		g.Tasks[t.ID] = t
	}

	edgeSet := make(map[Edge]bool)
	addEdge := func(e Edge) {
		if edgeSet[e] {
			return
		}
		edgeSet[e] = true
		g.Adj[e.From] = append(g.Adj[e.From], e)
		g.RevAdj[e.To] = append(g.RevAdj[e.To], e)
	}

	for _, id := range sortedIDs(g.Tasks) {
		task := g.Tasks[id]
		for _, dep := range task.Dependencies {
			rel := dep.Type
			if rel == "" {
				rel = FinishToStart
			}
			if !rel.IsValid() {
				return nil, fmt.Errorf("task %s: %w: %q", id, ErrInvalidRelation, dep.Type)
			}
			if dep.To != "" && dep.To != id {
				g.Retargeted = append(g.Retargeted, Retarget{Owner: id, From: dep.From, DeclaredTo: dep.To})
			}
			if _, ok := g.Tasks[dep.From]; !ok {
				g.Dangling = append(g.Dangling, Dependency{From: dep.From, To: id, Type: rel})
				continue
			}
			addEdge(Edge{From: dep.From, To: id, Type: rel})
		}
	}

	// Sort adjacency lists for deterministic ordering
	for k := range g.Adj {
		sortEdges(g.Adj[k], func(e Edge) string { return e.To })
	}
	for k := range g.RevAdj {
		sortEdges(g.RevAdj[k], func(e Edge) string { return e.From })
	}

	for _, id := range sortedIDs(g.Tasks) {
		if len(g.RevAdj[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Adj[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}

	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &CyclicDependencyError{Cycle: cycle}
	}

	return g, nil
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *TaskGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, e := range g.Adj[node] {
			next := e.To
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range sortedIDs(g.Tasks) {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Tasks)
}

// Filter returns a new TaskGraph containing only tasks matching the predicate.
// Edges to filtered-out tasks are dropped without being reported as dangling.
func (g *TaskGraph) Filter(pred func(*Task) bool) (*TaskGraph, error) {
	var filtered []Task
	for _, id := range sortedIDs(g.Tasks) {
		if t := g.Tasks[id]; pred(t) {
			filtered = append(filtered, *t)
		}
	}

	fg, err := Build(filtered)
	if err != nil {
		return nil, err
	}

	dangling := fg.Dangling[:0]
	for _, d := range fg.Dangling {
		if _, known := g.Tasks[d.From]; !known {
			dangling = append(dangling, d)
		}
	}
	fg.Dangling = dangling
	return fg, nil
}

func cloneTask(t *Task) *Task {
	c := *t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.Dependencies != nil {
		c.Dependencies = append([]Dependency(nil), t.Dependencies...)
	}
	return &c
}

func sortedIDs(tasks map[string]*Task) []string {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortEdges(edges []Edge, key func(Edge) string) {
	sort.Slice(edges, func(i, j int) bool {
		ki, kj := key(edges[i]), key(edges[j])
		if ki != kj {
			return ki < kj
		}
		return edges[i].Type < edges[j].Type
	})
}
