package scheduler

import (
	"testing"
)

func queued(id string, priority int) *Task {
	return &Task{ID: id, Type: TypeConvert, Priority: priority, Status: TaskQueued}
}

// TestQueue_PriorityOrder verifies higher priority pops first and
// submission order is kept within a tier.
func TestQueue_PriorityOrder(t *testing.T) {
	q := NewQueue()
	q.Push(queued("low-1", 1))
	q.Push(queued("high-1", 10))
	q.Push(queued("low-2", 1))
	q.Push(queued("mid-1", 5))
	q.Push(queued("high-2", 10))

	want := []string{"high-1", "high-2", "mid-1", "low-1", "low-2"}
	for i, id := range want {
		got := q.Pop()
		if got == nil || got.ID != id {
			t.Fatalf("pop %d: expected %s, got %v", i, id, got)
		}
	}
	if q.Pop() != nil {
		t.Error("expected empty queue")
	}
}

// TestQueue_PushFrontJumpsTier verifies a requeued task lands ahead of
// its tier but never ahead of more urgent work.
func TestQueue_PushFrontJumpsTier(t *testing.T) {
	q := NewQueue()
	q.Push(queued("high", 10))
	q.Push(queued("mid-1", 5))
	q.Push(queued("mid-2", 5))
	q.Push(queued("low", 1))

	q.PushFront(queued("mid-retry", 5))

	want := []string{"high", "mid-retry", "mid-1", "mid-2", "low"}
	for i, id := range want {
		got := q.Pop()
		if got == nil || got.ID != id {
			t.Fatalf("pop %d: expected %s, got %v", i, id, got)
		}
	}
}

// TestQueue_RemoveAndClear verifies removal by ID and queue clearing.
func TestQueue_RemoveAndClear(t *testing.T) {
	q := NewQueue()
	q.Push(queued("a", 1))
	q.Push(queued("b", 1))
	q.Push(queued("c", 1))

	if removed := q.Remove("b"); removed == nil || removed.ID != "b" {
		t.Fatalf("expected to remove b, got %v", removed)
	}
	if removed := q.Remove("missing"); removed != nil {
		t.Errorf("expected nil for unknown ID, got %v", removed)
	}

	snap := q.Snapshot()
	if len(snap) != 2 || snap[0] != "a" || snap[1] != "c" {
		t.Errorf("unexpected snapshot after remove: %v", snap)
	}

	cleared := q.Clear()
	if len(cleared) != 2 || q.Len() != 0 {
		t.Errorf("expected clear to drain queue, got %d cleared, %d left", len(cleared), q.Len())
	}
}

// TestQueue_PeekDoesNotRemove verifies Peek leaves the head in place.
func TestQueue_PeekDoesNotRemove(t *testing.T) {
	q := NewQueue()
	if q.Peek() != nil {
		t.Error("expected nil peek on empty queue")
	}
	q.Push(queued("only", 3))
	if p := q.Peek(); p == nil || p.ID != "only" {
		t.Fatalf("unexpected peek result: %v", p)
	}
	if q.Len() != 1 {
		t.Error("peek must not remove the task")
	}
}
