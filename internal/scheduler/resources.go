package scheduler

import (
	"fmt"
)

// LockRequest names one resource a task needs and the kind of lock.
type LockRequest struct {
	Resource string
	Kind     LockKind
}

// ResourcesFor derives the lock requests for a task from its type and
// payload. File-backed tasks lock "file:<path>"; mutating task types
// request exclusive access, read-only types shared. Tasks with no file
// fall back to an exclusive lock on their own "task:<id>" key so
// opaque work is still serialized per task.
func ResourcesFor(t *Task) []LockRequest {
	kind := LockShared
	if t.Type.Mutating() {
		kind = LockExclusive
	}

	if t.Payload.File == "" {
		return []LockRequest{{
			Resource: fmt.Sprintf("task:%s", t.ID),
			Kind:     LockExclusive,
		}}
	}

	requests := []LockRequest{{
		Resource: fmt.Sprintf("file:%s", t.Payload.File),
		Kind:     kind,
	}}

	// A task may name extra logical resources via its options, comma
	// separated. These follow the task type's lock kind.
	if extra, ok := t.Payload.Options["resources"]; ok && extra != "" {
		for _, r := range splitResources(extra) {
			requests = append(requests, LockRequest{Resource: r, Kind: kind})
		}
	}
	return requests
}

// splitResources splits a comma-separated resource list, trimming
// empty entries.
func splitResources(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
