// Package source loads milestone task lists from files or stdin.
//
// Three document formats are understood:
//
//   - json: the web client's shape, either a bare array of tasks or an object
//     with a "tasks" array. Tasks use camelCase keys (startDate, dueDate or
//     endDate, deadline) and carry incoming edges in "dependencies".
//   - milestone: the REST backend's milestone serializer output. Tasks use
//     snake_case keys and carry their outgoing edges in "dependencies_from"
//     as {from_task, to_task, type}; edges are re-attached to their to_task.
//   - yaml: the json shape written as YAML.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlgoNouir/atomation/internal/graph"
)

// Format identifies a task document format.
type Format string

const (
	FormatAuto      Format = ""
	FormatJSON      Format = "json"
	FormatMilestone Format = "milestone"
	FormatYAML      Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown task document format")

// Meta describes where a task list came from.
type Meta struct {
	Source    string   `json:"source"`
	Format    Format   `json:"format"`
	Milestone string   `json:"milestone,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ParseFormat validates a format name. Empty and "auto" mean detect.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, "auto":
		return FormatAuto, nil
	case FormatJSON, FormatMilestone, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Load reads a task document from path, or from stdin when path is "" or "-".
func Load(path string, format Format) ([]graph.Task, Meta, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		path = "-"
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, Meta{}, fmt.Errorf("read tasks: %w", err)
	}

	if format == FormatAuto {
		format = DetectFormat(path, data)
	}

	tasks, meta, err := Parse(data, format)
	if err != nil {
		return nil, Meta{}, err
	}
	meta.Source = path
	return tasks, meta, nil
}

// Parse decodes a task document of the given format.
func Parse(data []byte, format Format) ([]graph.Task, Meta, error) {
	if format == FormatAuto {
		format = DetectFormat("", data)
	}

	var (
		tasks []graph.Task
		meta  Meta
		err   error
	)
	switch format {
	case FormatJSON:
		tasks, meta, err = parseClientJSON(data)
	case FormatMilestone:
		tasks, meta, err = parseMilestoneJSON(data)
	case FormatYAML:
		tasks, meta, err = parseYAML(data)
	default:
		return nil, Meta{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, Meta{}, fmt.Errorf("parse %s tasks: %w", format, err)
	}
	meta.Format = format
	return tasks, meta, nil
}

// DetectFormat guesses a document's format from its file extension, then
// from its content.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}

	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return FormatYAML
	}
	if looksLikeMilestone(data) {
		return FormatMilestone
	}
	return FormatJSON
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts RFC 3339 timestamps, naive timestamps (read as UTC) and
// plain dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
