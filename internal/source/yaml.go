package source

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/AlgoNouir/atomation/internal/graph"
)

type yamlDoc struct {
	Milestone string     `yaml:"milestone"`
	Tasks     []yamlTask `yaml:"tasks"`
}

type yamlTask struct {
	ID           string    `yaml:"id"`
	Title        string    `yaml:"title"`
	Status       string    `yaml:"status"`
	Assignee     string    `yaml:"assignee"`
	StartDate    string    `yaml:"startDate"`
	DueDate      string    `yaml:"dueDate"`
	EndDate      string    `yaml:"endDate"`
	Deadline     string    `yaml:"deadline"`
	Dependencies []yamlDep `yaml:"dependencies"`
}

type yamlDep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Type string `yaml:"type"`
}

// parseYAML decodes the client task shape written as YAML. Dates are kept as
// strings by the decoder so the same layouts as JSON are accepted.
func parseYAML(data []byte) ([]graph.Task, Meta, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		// A bare list of tasks is accepted as well.
		var list []yamlTask
		if err2 := yaml.Unmarshal(data, &list); err2 != nil {
			return nil, Meta{}, err
		}
		doc.Tasks = list
	}

	tasks := make([]graph.Task, 0, len(doc.Tasks))
	for i, yt := range doc.Tasks {
		t, err := yt.toTask()
		if err != nil {
			return nil, Meta{}, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, Meta{Milestone: doc.Milestone}, nil
}

func (yt yamlTask) toTask() (graph.Task, error) {
	t := graph.Task{
		ID:       yt.ID,
		Title:    yt.Title,
		Status:   yt.Status,
		Assignee: yt.Assignee,
	}

	if yt.StartDate == "" {
		return t, fmt.Errorf("missing startDate")
	}
	start, err := parseDate(yt.StartDate)
	if err != nil {
		return t, err
	}
	t.StartDate = start

	due := yt.DueDate
	if due == "" {
		due = yt.EndDate
	}
	if due == "" {
		return t, fmt.Errorf("missing dueDate")
	}
	if t.DueDate, err = parseDate(due); err != nil {
		return t, err
	}

	if yt.Deadline != "" {
		dl, err := parseDate(yt.Deadline)
		if err != nil {
			return t, err
		}
		t.Deadline = &dl
	}

	for _, d := range yt.Dependencies {
		rel, err := graph.ParseRelationType(d.Type)
		if err != nil {
			return t, err
		}
		to := d.To
		if to == "" {
			to = t.ID
		}
		t.Dependencies = append(t.Dependencies, graph.Dependency{From: d.From, To: to, Type: rel})
	}
	return t, nil
}
