// Package taskfile loads batches of tasks from a YAML manifest so a
// whole conversion run can be described declaratively and submitted in
// one go.
package taskfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Manifest is the top-level structure of a task file.
type Manifest struct {
	Version int     `yaml:"version"`
	Tasks   []Entry `yaml:"tasks"`
}

// Entry describes one task in the manifest.
type Entry struct {
	ID           string            `yaml:"id,omitempty"`
	Type         string            `yaml:"type"`
	File         string            `yaml:"file,omitempty"`
	Source       string            `yaml:"source,omitempty"`      // Inline source text
	SourceFile   string            `yaml:"source_file,omitempty"` // Path to read source from
	Priority     int               `yaml:"priority,omitempty"`
	DependsOn    []string          `yaml:"depends_on,omitempty"`
	Timeout      string            `yaml:"timeout,omitempty"` // Go duration string
	MaxRetries   int               `yaml:"max_retries,omitempty"`
	Capabilities []string          `yaml:"capabilities,omitempty"`
	Options      map[string]string `yaml:"options,omitempty"`
}

// Load reads a manifest and converts it into tasks ready for
// submission. Entries referencing a source_file have the file content
// resolved relative to the manifest's directory.
func Load(path string) ([]*scheduler.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m.Version != 0 && m.Version != 1 {
		return nil, fmt.Errorf("unsupported task file version %d", m.Version)
	}
	if len(m.Tasks) == 0 {
		return nil, fmt.Errorf("%s contains no tasks", path)
	}

	baseDir := filepath.Dir(path)
	tasks := make([]*scheduler.Task, 0, len(m.Tasks))
	for i, e := range m.Tasks {
		task, err := e.toTask(baseDir)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (e Entry) toTask(baseDir string) (*scheduler.Task, error) {
	source := e.Source
	if e.SourceFile != "" {
		if source != "" {
			return nil, fmt.Errorf("source and source_file are mutually exclusive")
		}
		p := e.SourceFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading source_file: %w", err)
		}
		source = string(data)
	}

	var timeout time.Duration
	if e.Timeout != "" {
		d, err := time.ParseDuration(e.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", e.Timeout, err)
		}
		timeout = d
	}

	caps := make([]scheduler.Capability, 0, len(e.Capabilities))
	for _, c := range e.Capabilities {
		caps = append(caps, scheduler.Capability(c))
	}

	task := &scheduler.Task{
		ID:                   e.ID,
		Type:                 scheduler.TaskType(e.Type),
		Priority:             e.Priority,
		Payload:              scheduler.Payload{File: e.File, Source: source, Options: e.Options},
		RequiredCapabilities: caps,
		DependsOn:            append([]string(nil), e.DependsOn...),
		Timeout:              timeout,
		MaxRetries:           e.MaxRetries,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}
