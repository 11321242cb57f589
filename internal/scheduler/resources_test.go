package scheduler

import (
	"strings"
	"testing"
)

// TestResourcesFor_LockKindsPerType verifies mutating task types take
// exclusive file locks and read-only types take shared ones.
func TestResourcesFor_LockKindsPerType(t *testing.T) {
	cases := []struct {
		taskType TaskType
		want     LockKind
	}{
		{TypeConvert, LockExclusive},
		{TypeOptimize, LockExclusive},
		{TypeDocument, LockExclusive},
		{TypeSpecialize, LockExclusive},
		{TypeValidate, LockShared},
		{TypeAnalyze, LockShared},
		{TypeMonitor, LockShared},
	}

	for _, tc := range cases {
		task := &Task{ID: "t1", Type: tc.taskType, Payload: Payload{File: "src/lib.rs"}}
		reqs := ResourcesFor(task)
		if len(reqs) != 1 {
			t.Fatalf("%s: expected 1 request, got %d", tc.taskType, len(reqs))
		}
		if reqs[0].Resource != "file:src/lib.rs" {
			t.Errorf("%s: unexpected resource %q", tc.taskType, reqs[0].Resource)
		}
		if reqs[0].Kind != tc.want {
			t.Errorf("%s: expected %v lock, got %v", tc.taskType, tc.want, reqs[0].Kind)
		}
	}
}

// TestResourcesFor_OpaqueFallback verifies tasks without a file lock
// their own task key exclusively.
func TestResourcesFor_OpaqueFallback(t *testing.T) {
	task := &Task{ID: "abc123", Type: TypeMonitor}
	reqs := ResourcesFor(task)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Resource != "task:abc123" || reqs[0].Kind != LockExclusive {
		t.Errorf("unexpected fallback request: %+v", reqs[0])
	}
}

// TestResourcesFor_ExtraResources verifies extra logical resources from
// payload options are included with the type's lock kind.
func TestResourcesFor_ExtraResources(t *testing.T) {
	task := &Task{
		ID:   "t1",
		Type: TypeConvert,
		Payload: Payload{
			File:    "src/main.rs",
			Options: map[string]string{"resources": "artifact:bindings,doc:index"},
		},
	}
	reqs := ResourcesFor(task)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requests, got %d: %+v", len(reqs), reqs)
	}
	var names []string
	for _, r := range reqs {
		names = append(names, r.Resource)
		if r.Kind != LockExclusive {
			t.Errorf("expected exclusive lock for %s", r.Resource)
		}
	}
	joined := strings.Join(names, " ")
	for _, want := range []string{"file:src/main.rs", "artifact:bindings", "doc:index"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing resource %q in %v", want, names)
		}
	}
}

// TestTaskValidate verifies submission-time validation rules.
func TestTaskValidate(t *testing.T) {
	valid := &Task{Type: TypeConvert, Payload: Payload{File: "a.cs"}}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid task, got %v", err)
	}

	badType := &Task{Type: TaskType("transmogrify"), Payload: Payload{File: "a.cs"}}
	if err := badType.Validate(); err == nil {
		t.Error("expected invalid type rejection")
	}

	noPayload := &Task{Type: TypeConvert}
	if err := noPayload.Validate(); err == nil {
		t.Error("expected payload requirement for convert tasks")
	}

	// Monitor tasks are allowed to run without a file or source.
	monitor := &Task{Type: TypeMonitor}
	if err := monitor.Validate(); err != nil {
		t.Errorf("expected monitor task without payload to validate, got %v", err)
	}
}
