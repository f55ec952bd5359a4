package source

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/AlgoNouir/atomation/internal/graph"
)

// tasksArray returns the task array of a document that is either a bare
// array or an object with a "tasks" key.
func tasksArray(doc gjson.Result) (gjson.Result, error) {
	if doc.IsArray() {
		return doc, nil
	}
	tasks := doc.Get("tasks")
	if !tasks.Exists() {
		return gjson.Result{}, fmt.Errorf("no tasks array found")
	}
	if !tasks.IsArray() {
		return gjson.Result{}, fmt.Errorf("tasks is not an array")
	}
	return tasks, nil
}

func looksLikeMilestone(data []byte) bool {
	if !gjson.ValidBytes(data) {
		return false
	}
	doc := gjson.ParseBytes(data)
	arr, err := tasksArray(doc)
	if err != nil {
		return false
	}
	first := arr.Get("0")
	return first.Get("start_date").Exists() || first.Get("dependencies_from").Exists()
}

// parseClientJSON decodes the web client's task shape.
func parseClientJSON(data []byte) ([]graph.Task, Meta, error) {
	if !gjson.ValidBytes(data) {
		return nil, Meta{}, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	arr, err := tasksArray(doc)
	if err != nil {
		return nil, Meta{}, err
	}

	meta := Meta{Milestone: firstString(doc, "milestone", "name", "id")}

	var tasks []graph.Task
	for i, item := range arr.Array() {
		t, err := clientTask(item)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, meta, nil
}

func clientTask(item gjson.Result) (graph.Task, error) {
	t := graph.Task{
		ID:       item.Get("id").String(),
		Title:    firstString(item, "title", "name"),
		Status:   item.Get("status").String(),
		Assignee: firstString(item, "assignee", "assignedTo"),
	}

	var err error
	if t.StartDate, err = requiredDate(item, "startDate"); err != nil {
		return t, err
	}
	due := "dueDate"
	if !item.Get(due).Exists() {
		due = "endDate"
	}
	if t.DueDate, err = requiredDate(item, due); err != nil {
		return t, err
	}
	if t.Deadline, err = optionalDate(item, "deadline"); err != nil {
		return t, err
	}

	for _, dep := range item.Get("dependencies").Array() {
		rel, err := graph.ParseRelationType(dep.Get("type").String())
		if err != nil {
			return t, err
		}
		to := dep.Get("to").String()
		if to == "" {
			to = t.ID
		}
		t.Dependencies = append(t.Dependencies, graph.Dependency{
			From: dep.Get("from").String(),
			To:   to,
			Type: rel,
		})
	}
	return t, nil
}

// parseMilestoneJSON decodes the backend serializer's milestone shape. The
// backend lists each dependency under its from_task; the analyzer wants it
// under its to_task, so edges are collected first and then re-attached.
func parseMilestoneJSON(data []byte) ([]graph.Task, Meta, error) {
	if !gjson.ValidBytes(data) {
		return nil, Meta{}, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	arr, err := tasksArray(doc)
	if err != nil {
		return nil, Meta{}, err
	}

	meta := Meta{Milestone: firstString(doc, "name", "id")}

	var tasks []graph.Task
	index := make(map[string]int)
	var edges []graph.Dependency

	for i, item := range arr.Array() {
		t := graph.Task{
			ID:       item.Get("id").String(),
			Title:    item.Get("title").String(),
			Status:   item.Get("status").String(),
			Assignee: item.Get("assignee").String(),
		}
		if t.StartDate, err = requiredDate(item, "start_date"); err != nil {
			return nil, Meta{}, fmt.Errorf("task %d: %w", i, err)
		}
		if t.DueDate, err = requiredDate(item, "due_date"); err != nil {
			return nil, Meta{}, fmt.Errorf("task %d: %w", i, err)
		}
		if t.Deadline, err = optionalDate(item, "deadline"); err != nil {
			return nil, Meta{}, fmt.Errorf("task %d: %w", i, err)
		}

		for _, dep := range item.Get("dependencies_from").Array() {
			rel, err := graph.ParseRelationType(dep.Get("type").String())
			if err != nil {
				return nil, Meta{}, fmt.Errorf("task %d: %w", i, err)
			}
			from := dep.Get("from_task").String()
			if from == "" {
				from = t.ID
			}
			edges = append(edges, graph.Dependency{From: from, To: dep.Get("to_task").String(), Type: rel})
		}

		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}

	for _, e := range edges {
		i, ok := index[e.To]
		if !ok {
			meta.Warnings = append(meta.Warnings,
				fmt.Sprintf("dependency %s -> %s dropped: successor not in milestone", e.From, e.To))
			continue
		}
		tasks[i].Dependencies = append(tasks[i].Dependencies, e)
	}

	return tasks, meta, nil
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			return v.String()
		}
	}
	return ""
}

func requiredDate(item gjson.Result, key string) (time.Time, error) {
	v := item.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return time.Time{}, fmt.Errorf("missing %s", key)
	}
	return parseDate(v.String())
}

func optionalDate(item gjson.Result, key string) (*time.Time, error) {
	v := item.Get(key)
	if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
		return nil, nil
	}
	t, err := parseDate(v.String())
	if err != nil {
		return nil, err
	}
	return &t, nil
}
