package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Status is the lifecycle state of an agent.
type Status int

const (
	StatusInitializing Status = iota
	StatusIdle
	StatusBusy
	StatusError
	StatusStopped
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusIdle:
		return "idle"
	case StatusBusy:
		return "busy"
	case StatusError:
		return "error"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Agent defines the interface every worker variant implements.
// Dispatch is by capability predicate, not concrete type, so new
// variants can be added without touching the coordinator.
type Agent interface {
	ID() string
	Type() Type
	Name() string
	Capabilities() []scheduler.Capability

	// PriorityWeight orders agents during selection; higher weight
	// agents are preferred, and starvation resolution sacrifices the
	// lowest-weight agent in a cycle.
	PriorityWeight() int

	Status() Status
	CurrentTask() string
	LastActivity() time.Time

	// Initialize transitions initializing -> idle, or fails.
	Initialize(ctx context.Context) error

	// CanHandle is a pure predicate over task type and capabilities.
	CanHandle(task *scheduler.Task) bool

	// Execute performs the unit of work. It must catch all internal
	// errors and return a structured failure instead of propagating,
	// so the coordinator's retry policy stays the single source of
	// truth for failure handling.
	Execute(ctx context.Context, task *scheduler.Task) scheduler.TaskResult

	// Stop transitions to stopped and clears the current task.
	Stop()
}

// Info is a read-only view of an agent for status reporting.
type Info struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	CurrentTask  string    `json:"current_task,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

// Describe builds an Info snapshot for an agent.
func Describe(a Agent) Info {
	return Info{
		ID:           a.ID(),
		Type:         string(a.Type()),
		Name:         a.Name(),
		Status:       a.Status().String(),
		CurrentTask:  a.CurrentTask(),
		LastActivity: a.LastActivity(),
	}
}

// base carries the state machine shared by every variant.
// Invariant: currentTask is non-empty iff status is busy.
type base struct {
	id      string
	typ     Type
	name    string
	caps    []scheduler.Capability
	weight  int
	handles []scheduler.TaskType

	mu           sync.Mutex
	status       Status
	currentTask  string
	lastActivity time.Time
}

func newBase(id string, typ Type, name string, weight int, caps []scheduler.Capability, handles []scheduler.TaskType) base {
	return base{
		id:      id,
		typ:     typ,
		name:    name,
		caps:    caps,
		weight:  weight,
		handles: handles,
		status:  StatusInitializing,
	}
}

func (b *base) ID() string                           { return b.id }
func (b *base) Type() Type                           { return b.typ }
func (b *base) Name() string                         { return b.name }
func (b *base) Capabilities() []scheduler.Capability { return b.caps }
func (b *base) PriorityWeight() int                  { return b.weight }

func (b *base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *base) CurrentTask() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentTask
}

func (b *base) LastActivity() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastActivity
}

// Initialize transitions initializing -> idle.
func (b *base) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == StatusStopped {
		return fmt.Errorf("agent %s is stopped", b.id)
	}
	b.status = StatusIdle
	b.lastActivity = time.Now()
	return nil
}

// CanHandle reports whether the agent serves the task's type and
// declares every capability the task requires.
func (b *base) CanHandle(task *scheduler.Task) bool {
	typeOK := false
	for _, t := range b.handles {
		if t == task.Type {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}

	for _, required := range task.RequiredCapabilities {
		found := false
		for _, have := range b.caps {
			if have == required {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Stop transitions to stopped and clears the current task.
func (b *base) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = StatusStopped
	b.currentTask = ""
	b.lastActivity = time.Now()
}

// beginTask marks the agent busy on the given task.
func (b *base) beginTask(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = StatusBusy
	b.currentTask = taskID
	b.lastActivity = time.Now()
}

// endTask returns the agent to idle unless it was stopped mid-task.
func (b *base) endTask() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != StatusStopped {
		b.status = StatusIdle
	}
	b.currentTask = ""
	b.lastActivity = time.Now()
}

// run executes fn with panic containment, so a broken variant yields a
// structured failure instead of taking down the dispatch loop.
func (b *base) run(task *scheduler.Task, fn func() scheduler.TaskResult) (result scheduler.TaskResult) {
	start := time.Now()
	b.beginTask(task.ID)
	defer b.endTask()
	defer func() {
		if r := recover(); r != nil {
			result = scheduler.TaskResult{
				TaskID:   task.ID,
				Success:  false,
				Error:    fmt.Sprintf("agent %s panicked: %v", b.id, r),
				Duration: time.Since(start),
			}
		}
	}()

	result = fn()
	result.TaskID = task.ID
	result.Duration = time.Since(start)
	return result
}
