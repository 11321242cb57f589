package scheduler

import (
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus int

const (
	TaskQueued    TaskStatus = iota // Waiting in the pending queue
	TaskAssigned                    // Agent selected, locks held, not yet running
	TaskRunning                     // Currently executing on an agent
	TaskCompleted                   // Finished successfully
	TaskFailed                      // Finished with error, retries exhausted
)

// String returns the human-readable status name.
func (s TaskStatus) String() string {
	switch s {
	case TaskQueued:
		return "queued"
	case TaskAssigned:
		return "assigned"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskType is the closed enumeration of work the pipeline performs.
type TaskType string

const (
	TypeConvert    TaskType = "convert"    // Rewrite a source file into the target language
	TypeValidate   TaskType = "validate"   // Check converted output for correctness
	TypeOptimize   TaskType = "optimize"   // Pattern-based rewrite passes over converted code
	TypeDocument   TaskType = "document"   // Extract and generate documentation
	TypeMonitor    TaskType = "monitor"    // Read-only pipeline health reporting
	TypeSpecialize TaskType = "specialize" // Domain-specific conversion passes
	TypeAnalyze    TaskType = "analyze"    // Read-only source analysis
)

// TaskTypes lists every valid task type.
func TaskTypes() []TaskType {
	return []TaskType{
		TypeConvert, TypeValidate, TypeOptimize,
		TypeDocument, TypeMonitor, TypeSpecialize, TypeAnalyze,
	}
}

// Valid reports whether t is a member of the closed task-type enumeration.
func (t TaskType) Valid() bool {
	switch t {
	case TypeConvert, TypeValidate, TypeOptimize, TypeDocument, TypeMonitor, TypeSpecialize, TypeAnalyze:
		return true
	}
	return false
}

// Mutating reports whether tasks of this type mutate shared artefacts.
// Mutating types take exclusive resource locks; the rest take shared locks.
func (t TaskType) Mutating() bool {
	switch t {
	case TypeConvert, TypeOptimize, TypeDocument, TypeSpecialize:
		return true
	}
	return false
}

// Capability is a tag an agent declares and a task may require.
type Capability string

const (
	CapConversion    Capability = "code-conversion"
	CapValidation    Capability = "validation"
	CapOptimization  Capability = "optimization"
	CapDocumentation Capability = "documentation"
	CapMonitoring    Capability = "monitoring"
	CapSpecialized   Capability = "specialized-conversion"
	CapAnalysis      Capability = "analysis"
)

// Payload is the typed input a task carries. File is the workspace path
// the task operates on (empty for opaque tasks); Source is the raw input
// text; Options are free-form per-type knobs.
type Payload struct {
	File    string            `json:"file,omitempty"`
	Source  string            `json:"source,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

// Task represents a unit of work flowing through the coordinator.
// All mutation happens under the coordinator's lock; agents receive
// tasks read-only.
type Task struct {
	ID                   string
	Type                 TaskType
	Priority             int // higher = more urgent
	Payload              Payload
	RequiredCapabilities []Capability
	DependsOn            []string
	Timeout              time.Duration // 0 = no per-task timeout

	RetryCount int
	MaxRetries int // 0 = use the strategy default

	AssignedAgent string // agent the task is, or last was, placed on
	Status        TaskStatus
	Output        string
	Error         string

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Validate checks the submission-time fields of a task.
func (t *Task) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("invalid task type %q", t.Type)
	}
	if t.Payload.File == "" && t.Payload.Source == "" && t.Type != TypeMonitor {
		return fmt.Errorf("task of type %q requires a file or source payload", t.Type)
	}
	return nil
}

// Clone returns a shallow copy of the task, with slice fields copied,
// safe for handing to status callers.
func (t *Task) Clone() *Task {
	c := *t
	c.RequiredCapabilities = append([]Capability(nil), t.RequiredCapabilities...)
	c.DependsOn = append([]string(nil), t.DependsOn...)
	return &c
}

// TaskResult is the structured outcome an agent returns from Execute.
// Agents never propagate errors; failures are reported here so the
// coordinator's retry policy is the single source of truth.
type TaskResult struct {
	TaskID   string
	Success  bool
	Output   string
	Error    string
	Duration time.Duration
}
