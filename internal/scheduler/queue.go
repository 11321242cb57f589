package scheduler

import (
	"sync"
)

// Queue is the priority-ordered pending queue. Higher priority tasks
// come out first; within a priority tier tasks keep submission order.
// Requeued tasks re-enter at the front of their tier so recovery is
// preferred over fresh work without jumping more urgent tiers.
type Queue struct {
	mu    sync.Mutex
	tasks []*Task
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{tasks: []*Task{}}
}

// Push appends a task behind every task of equal or higher priority.
func (q *Queue) Push(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := len(q.tasks)
	for ; i > 0; i-- {
		if q.tasks[i-1].Priority >= t.Priority {
			break
		}
	}
	q.insert(i, t)
}

// PushFront inserts a task ahead of every task of equal or lower
// priority, i.e. at the front of its priority tier. Used for retries
// and for tasks bounced by a lock conflict, so they are reconsidered
// before fresh work of the same urgency.
func (q *Queue) PushFront(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := 0
	for ; i < len(q.tasks); i++ {
		if q.tasks[i].Priority <= t.Priority {
			break
		}
	}
	q.insert(i, t)
}

// insert places t at index i. Caller holds q.mu.
func (q *Queue) insert(i int, t *Task) {
	q.tasks = append(q.tasks, nil)
	copy(q.tasks[i+1:], q.tasks[i:])
	q.tasks[i] = t
}

// Pop removes and returns the head of the queue, or nil if empty.
func (q *Queue) Pop() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

// Peek returns the head of the queue without removing it, or nil.
func (q *Queue) Peek() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	return q.tasks[0]
}

// Remove deletes the task with the given ID from the queue.
// Returns the removed task, or nil if not queued.
func (q *Queue) Remove(taskID string) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.tasks {
		if t.ID == taskID {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return t
		}
	}
	return nil
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Clear empties the queue and returns the removed tasks in order.
func (q *Queue) Clear() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := q.tasks
	q.tasks = []*Task{}
	return removed
}

// Snapshot returns the queued task IDs in dispatch order.
func (q *Queue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]string, len(q.tasks))
	for i, t := range q.tasks {
		ids[i] = t.ID
	}
	return ids
}
