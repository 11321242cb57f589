package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants. One topic per logical pipeline stage; agents and
// external observers subscribe to the stages they care about.
const (
	TopicConversion    = "conversion-pipeline"
	TopicQuality       = "quality-assurance"
	TopicDocumentation = "documentation"
	TopicSecurity      = "security"
	TopicGeneral       = "general"
)

// TopicFor maps a task type to the pipeline stage topic its outcome
// is announced on. Unknown types land on the general topic.
func TopicFor(taskType string) string {
	switch taskType {
	case "convert", "optimize", "specialize":
		return TopicConversion
	case "validate", "analyze":
		return TopicQuality
	case "document":
		return TopicDocumentation
	case "monitor":
		return TopicSecurity
	default:
		return TopicGeneral
	}
}

// Event type constants
const (
	EventTypeTaskQueued    = "task.queued"
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypeTaskRetried   = "task.retried"
	EventTypeQueueProgress = "queue.progress"
	EventTypeLockCleared   = "lock.cleared"
)

// TaskQueuedEvent is published when a task is accepted onto the queue.
type TaskQueuedEvent struct {
	ID        string
	Type      string
	Priority  int
	Timestamp time.Time
}

func (e TaskQueuedEvent) EventType() string { return EventTypeTaskQueued }
func (e TaskQueuedEvent) TaskID() string    { return e.ID }

// TaskStartedEvent is published when a task begins execution on an agent.
type TaskStartedEvent struct {
	ID        string
	Type      string
	AgentID   string
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskOutcomeEvent announces a terminal task result on the stage topic
// for the task's type.
type TaskOutcomeEvent struct {
	ID        string
	Type      string
	Success   bool
	Output    string
	AgentID   string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskOutcomeEvent) EventType() string {
	if e.Success {
		return EventTypeTaskCompleted
	}
	return EventTypeTaskFailed
}
func (e TaskOutcomeEvent) TaskID() string { return e.ID }

// TaskRetriedEvent is published when a failed task is requeued for retry.
type TaskRetriedEvent struct {
	ID         string
	Type       string
	RetryCount int
	MaxRetries int
	Timestamp  time.Time
}

func (e TaskRetriedEvent) EventType() string { return EventTypeTaskRetried }
func (e TaskRetriedEvent) TaskID() string    { return e.ID }

// QueueProgressEvent is published after every dispatch pass.
type QueueProgressEvent struct {
	Queued    int
	InFlight  int
	Completed int
	Failed    int
	Timestamp time.Time
}

func (e QueueProgressEvent) EventType() string { return EventTypeQueueProgress }
func (e QueueProgressEvent) TaskID() string    { return "" }

// LockClearedEvent is published when an agent's locks are force-released,
// either on agent stop or by starvation resolution.
type LockClearedEvent struct {
	AgentID   string
	Resources []string
	Reason    string
	Timestamp time.Time
}

func (e LockClearedEvent) EventType() string { return EventTypeLockCleared }
func (e LockClearedEvent) TaskID() string    { return "" }
