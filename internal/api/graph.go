package api

import (
	"time"

	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/graph"
	"github.com/AlgoNouir/atomation/internal/source"
)

// --- Graph types (the visualization layer's Graph schema) ---

type GraphNode struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Assignee   string     `json:"assignee,omitempty"`
	StartDate  time.Time  `json:"start_date"`
	DueDate    time.Time  `json:"due_date"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	IsCritical bool       `json:"is_critical"`
	SlackDays  int        `json:"slack_days"`
	WaveIndex  int        `json:"wave_index"`
}

type GraphEdge struct {
	From string             `json:"from"`
	To   string             `json:"to"`
	Type graph.RelationType `json:"type"`
}

type GraphMetadata struct {
	Milestone  string           `json:"milestone,omitempty"`
	CreatedAt  string           `json:"created_at"`
	Relations  cpm.RelationMode `json:"relations"`
	TotalTasks int              `json:"total_tasks"`
	TotalWaves int              `json:"total_waves"`
	TotalDays  int              `json:"total_days"`
}

type Graph struct {
	Nodes        []GraphNode   `json:"nodes"`
	Edges        []GraphEdge   `json:"edges"`
	CriticalPath []string      `json:"critical_path"`
	Metadata     GraphMetadata `json:"metadata"`
}

// toGraph converts an analysis into the normalised Graph the UI renders.
// Nodes follow topological order and keep the tasks' own windows; the
// computed schedule contributes only the critical flag, slack and wave.
func toGraph(meta source.Meta, g *graph.TaskGraph, result *cpm.CPMResult) *Graph {
	nodes := make([]GraphNode, 0, len(result.TopoOrder))
	edges := []GraphEdge{}
	for _, id := range result.TopoOrder {
		t := g.Tasks[id]
		ts := result.Tasks[id]
		nodes = append(nodes, GraphNode{
			ID:         t.ID,
			Title:      t.Title,
			Status:     t.Status,
			Assignee:   t.Assignee,
			StartDate:  t.StartDate,
			DueDate:    t.DueDate,
			Deadline:   t.Deadline,
			IsCritical: ts.IsCritical,
			SlackDays:  ts.SlackDays(),
			WaveIndex:  ts.Wave,
		})
		for _, e := range g.Adj[id] {
			edges = append(edges, GraphEdge{From: e.From, To: e.To, Type: e.Type})
		}
	}

	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		CriticalPath: cpm.CriticalIDs(result),
		Metadata: GraphMetadata{
			Milestone:  meta.Milestone,
			CreatedAt:  time.Now().UTC().Format(time.RFC3339),
			Relations:  result.Relations,
			TotalTasks: g.TaskCount(),
			TotalWaves: len(result.Waves),
			TotalDays:  result.TotalDays,
		},
	}
}
