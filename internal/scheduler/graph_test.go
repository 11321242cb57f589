package scheduler

import (
	"testing"
)

// TestValidateDependencies_AcceptsChain verifies a valid dependency
// chain passes validation.
func TestValidateDependencies_AcceptsChain(t *testing.T) {
	tasks := map[string]*Task{
		"a": {ID: "a", Type: TypeConvert},
		"b": {ID: "b", Type: TypeValidate, DependsOn: []string{"a"}},
		"c": {ID: "c", Type: TypeDocument, DependsOn: []string{"a", "b"}},
	}
	if err := ValidateDependencies(tasks); err != nil {
		t.Fatalf("expected valid chain, got: %v", err)
	}
}

// TestValidateDependencies_RejectsCycle verifies circular dependencies
// are rejected synchronously.
func TestValidateDependencies_RejectsCycle(t *testing.T) {
	tasks := map[string]*Task{
		"a": {ID: "a", Type: TypeConvert, DependsOn: []string{"c"}},
		"b": {ID: "b", Type: TypeValidate, DependsOn: []string{"a"}},
		"c": {ID: "c", Type: TypeDocument, DependsOn: []string{"b"}},
	}
	if err := ValidateDependencies(tasks); err == nil {
		t.Fatal("expected cycle rejection")
	}
}

// TestValidateDependencies_RejectsUnknownReference verifies dangling
// dependency IDs are rejected.
func TestValidateDependencies_RejectsUnknownReference(t *testing.T) {
	tasks := map[string]*Task{
		"a": {ID: "a", Type: TypeConvert, DependsOn: []string{"ghost"}},
	}
	if err := ValidateDependencies(tasks); err == nil {
		t.Fatal("expected unknown-reference rejection")
	}
}

// TestDependenciesSatisfied verifies only completed dependencies gate
// a task into dispatchability.
func TestDependenciesSatisfied(t *testing.T) {
	done := &Task{ID: "done", Status: TaskCompleted}
	failed := &Task{ID: "failed", Status: TaskFailed}
	running := &Task{ID: "running", Status: TaskRunning}

	lookup := func(id string) (*Task, bool) {
		switch id {
		case "done":
			return done, true
		case "failed":
			return failed, true
		case "running":
			return running, true
		}
		return nil, false
	}

	cases := []struct {
		name      string
		dependsOn []string
		want      bool
	}{
		{"no dependencies", nil, true},
		{"completed dependency", []string{"done"}, true},
		{"failed dependency", []string{"failed"}, false},
		{"running dependency", []string{"running"}, false},
		{"mixed", []string{"done", "running"}, false},
		{"unknown", []string{"ghost"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := &Task{ID: "t", DependsOn: tc.dependsOn}
			if got := DependenciesSatisfied(task, lookup); got != tc.want {
				t.Errorf("DependenciesSatisfied(%v) = %v, want %v", tc.dependsOn, got, tc.want)
			}
		})
	}
}
