package graph

import "sort"

// TopoSort orders the graph with Kahn's algorithm so that every predecessor
// precedes its successors. Ready tasks are taken in ID order, which makes the
// result deterministic. A graph with a cycle yields a *CyclicDependencyError.
func TopoSort(g *TaskGraph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Tasks))
	for id := range g.Tasks {
		inDegree[id] = len(g.RevAdj[id])
	}

	var queue []string
	for id, d := range inDegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.Tasks))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, e := range g.Adj[node] {
			inDegree[e.To]--
			if inDegree[e.To] == 0 {
				newReady = append(newReady, e.To)
			}
		}
		sort.Strings(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(g.Tasks) {
		cycle := g.DetectCycle()
		if cycle == nil {
			// Leftover in-degree without a reachable cycle means the
			// adjacency maps disagree; report the unsorted tasks.
			for id, d := range inDegree {
				if d > 0 {
					cycle = append(cycle, id)
				}
			}
			sort.Strings(cycle)
		}
		return nil, &CyclicDependencyError{Cycle: cycle}
	}

	return order, nil
}
