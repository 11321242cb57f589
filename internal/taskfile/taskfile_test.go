package taskfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tasks.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
version: 1
tasks:
  - id: conv-main
    type: convert
    file: src/Main.cs
    source: "class Main {}"
    priority: 5
    timeout: 30s
    max_retries: 1
  - type: validate
    file: src/Main.rs
    source: "fn main() {}"
    depends_on: [conv-main]
    capabilities: [validation]
`)

	tasks, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("loaded %d tasks, want 2", len(tasks))
	}

	first := tasks[0]
	if first.ID != "conv-main" || first.Type != scheduler.TypeConvert {
		t.Errorf("first task = %s/%s", first.ID, first.Type)
	}
	if first.Priority != 5 || first.Timeout != 30*time.Second || first.MaxRetries != 1 {
		t.Errorf("first task knobs = %d/%s/%d", first.Priority, first.Timeout, first.MaxRetries)
	}

	second := tasks[1]
	if len(second.DependsOn) != 1 || second.DependsOn[0] != "conv-main" {
		t.Errorf("second task deps = %v", second.DependsOn)
	}
	if len(second.RequiredCapabilities) != 1 || second.RequiredCapabilities[0] != scheduler.CapValidation {
		t.Errorf("second task caps = %v", second.RequiredCapabilities)
	}
}

func TestSourceFileResolvedRelativeToManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "input.cs"), []byte("class A {}"), 0644); err != nil {
		t.Fatalf("writing source: %v", err)
	}
	path := writeManifest(t, dir, `
tasks:
  - type: convert
    file: input.cs
    source_file: input.cs
`)

	tasks, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tasks[0].Payload.Source != "class A {}" {
		t.Errorf("source = %q", tasks[0].Payload.Source)
	}
}

func TestLoadRejections(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "tasks: []", "no tasks"},
		{"bad version", "version: 9\ntasks:\n  - type: convert\n    source: x", "version"},
		{"bad type", "tasks:\n  - type: demolish\n    source: x", "invalid task type"},
		{"bad timeout", "tasks:\n  - type: convert\n    source: x\n    timeout: fast", "timeout"},
		{"both sources", "tasks:\n  - type: convert\n    source: x\n    source_file: y.cs", "mutually exclusive"},
		{"missing source file", "tasks:\n  - type: convert\n    source_file: gone.cs", "source_file"},
	}
	for _, tc := range cases {
		path := writeManifest(t, dir, tc.content)
		_, err := Load(path)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/tasks.yaml"); err == nil {
		t.Fatal("expected missing manifest to fail")
	}
}
