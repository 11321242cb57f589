package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/r3e-network/AutoClaude-sub004/internal/hooks"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	store, err := persistence.NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	pipeline := hooks.NewPipeline()
	for _, h := range hooks.DefaultHooks(store) {
		if err := pipeline.Register(h); err != nil {
			t.Fatalf("Register(%s): %v", h.ID, err)
		}
	}
	return Deps{Store: store, Hooks: pipeline}
}

// TestLifecycle verifies the initialize/busy/stop state machine and the
// currentTask invariant.
func TestLifecycle(t *testing.T) {
	c := NewConverter("converter-1", testDeps(t))

	if c.Status() != StatusInitializing {
		t.Fatalf("expected initializing, got %s", c.Status())
	}
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if c.Status() != StatusIdle {
		t.Errorf("expected idle after initialize, got %s", c.Status())
	}
	if c.CurrentTask() != "" {
		t.Error("idle agent must have no current task")
	}

	c.Stop()
	if c.Status() != StatusStopped || c.CurrentTask() != "" {
		t.Errorf("expected stopped with no task, got %s / %q", c.Status(), c.CurrentTask())
	}
	if err := c.Initialize(context.Background()); err == nil {
		t.Error("expected initialize on stopped agent to fail")
	}
}

// TestCanHandle verifies type and capability matching.
func TestCanHandle(t *testing.T) {
	deps := testDeps(t)
	c := NewConverter("converter-1", deps)
	v := NewValidator("validator-1", deps)

	convert := &scheduler.Task{Type: scheduler.TypeConvert}
	validate := &scheduler.Task{Type: scheduler.TypeValidate}

	if !c.CanHandle(convert) || c.CanHandle(validate) {
		t.Error("converter should handle convert only")
	}
	if !v.CanHandle(validate) || v.CanHandle(convert) {
		t.Error("validator should handle validate only")
	}

	demanding := &scheduler.Task{
		Type:                 scheduler.TypeConvert,
		RequiredCapabilities: []scheduler.Capability{scheduler.CapSpecialized},
	}
	if c.CanHandle(demanding) {
		t.Error("converter lacks the specialized capability")
	}
}

// TestRegistry verifies the static variant registry.
func TestRegistry(t *testing.T) {
	deps := testDeps(t)

	for _, typ := range Types() {
		a, err := New(typ, string(typ)+"-1", deps)
		if err != nil {
			t.Fatalf("New(%s): %v", typ, err)
		}
		if a.Type() != typ {
			t.Errorf("expected type %s, got %s", typ, a.Type())
		}
	}

	if _, err := New(Type("alchemist"), "x", deps); err == nil {
		t.Error("expected unknown type rejection")
	}

	agents, err := BuildEnabled([]string{"converter", "validator"}, deps)
	if err != nil {
		t.Fatalf("BuildEnabled: %v", err)
	}
	if len(agents) != 2 || agents[0].ID() != "converter-1" {
		t.Errorf("unexpected built agents: %v", agents)
	}
}

// TestConverterExecute verifies a full conversion with hooks attached.
func TestConverterExecute(t *testing.T) {
	c := NewConverter("converter-1", testDeps(t))
	_ = c.Initialize(context.Background())

	task := &scheduler.Task{
		ID:   "t1",
		Type: scheduler.TypeConvert,
		Payload: scheduler.Payload{
			File: "src/Counter.cs",
			Source: "using System;\n" +
				"namespace Neo.Counter {\n" +
				"public class Counter {\n" +
				"var count = 0;\n" +
				"Console.WriteLine(count);\n" +
				"}\n" +
				"}\n",
		},
	}

	result := c.Execute(context.Background(), task)
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
	if strings.Contains(result.Output, "using System") {
		t.Error("using directive should be dropped")
	}
	if !strings.Contains(result.Output, "pub struct Counter") {
		t.Errorf("expected struct conversion, got:\n%s", result.Output)
	}
	if !strings.Contains(result.Output, "println!(") {
		t.Error("expected println! conversion")
	}
	if c.Status() != StatusIdle {
		t.Errorf("agent should return to idle, got %s", c.Status())
	}
}

// TestConverterBlockedBySyntaxHook verifies a blocking pre-conversion
// hook failure yields a structured failure, not a panic or an error.
func TestConverterBlockedBySyntaxHook(t *testing.T) {
	c := NewConverter("converter-1", testDeps(t))
	_ = c.Initialize(context.Background())

	task := &scheduler.Task{
		ID:      "t1",
		Type:    scheduler.TypeConvert,
		Payload: scheduler.Payload{File: "src/Broken.cs", Source: "class X { void F() {"},
	}

	result := c.Execute(context.Background(), task)
	if result.Success {
		t.Fatal("expected blocked conversion to fail")
	}
	if !strings.Contains(result.Error, "pre-conversion") {
		t.Errorf("expected pre-conversion hook error, got: %s", result.Error)
	}
}

// TestValidatorExecute verifies issue detection on validate tasks.
func TestValidatorExecute(t *testing.T) {
	v := NewValidator("validator-1", testDeps(t))
	_ = v.Initialize(context.Background())

	clean := &scheduler.Task{
		ID:      "t1",
		Type:    scheduler.TypeAnalyze,
		Payload: scheduler.Payload{File: "src/lib.rs", Source: "fn main() { body(); }\n"},
	}
	if result := v.Execute(context.Background(), clean); !result.Success {
		t.Errorf("expected clean analysis, got: %s", result.Error)
	}

	dirty := &scheduler.Task{
		ID:      "t2",
		Type:    scheduler.TypeAnalyze,
		Payload: scheduler.Payload{File: "src/lib.rs", Source: "fn main() { todo!() }\n"},
	}
	if result := v.Execute(context.Background(), dirty); result.Success {
		t.Error("expected todo!() detection")
	}
}

// TestOptimizerExecute verifies rewrite passes fire.
func TestOptimizerExecute(t *testing.T) {
	o := NewOptimizer("optimizer-1", testDeps(t))
	_ = o.Initialize(context.Background())

	task := &scheduler.Task{
		ID:      "t1",
		Type:    scheduler.TypeOptimize,
		Payload: scheduler.Payload{File: "src/lib.rs", Source: "let n = v.iter().collect::<Vec<_>>().len();"},
	}
	result := o.Execute(context.Background(), task)
	if !result.Success {
		t.Fatalf("expected success: %s", result.Error)
	}
	if !strings.Contains(result.Output, ".iter().count()") {
		t.Errorf("expected iter-count rewrite, got: %s", result.Output)
	}
}

// TestDocumenterExecute verifies doc stubs appear above undocumented
// public items only.
func TestDocumenterExecute(t *testing.T) {
	d := NewDocumenter("documenter-1", testDeps(t))
	_ = d.Initialize(context.Background())

	task := &scheduler.Task{
		ID:   "t1",
		Type: scheduler.TypeDocument,
		Payload: scheduler.Payload{
			File:   "src/lib.rs",
			Source: "/// Already documented.\npub fn covered() {}\n\npub struct Wallet {}\n",
		},
	}
	result := d.Execute(context.Background(), task)
	if !result.Success {
		t.Fatalf("expected success: %s", result.Error)
	}
	if !strings.Contains(result.Output, "/// Struct Wallet.") {
		t.Errorf("expected stub for Wallet, got:\n%s", result.Output)
	}
	if strings.Count(result.Output, "/// Already documented.") != 1 ||
		strings.Contains(result.Output, "/// Fn covered.") {
		t.Errorf("documented item must not get a second stub:\n%s", result.Output)
	}
}

// TestMonitorExecute verifies the health report over recorded outcomes.
func TestMonitorExecute(t *testing.T) {
	deps := testDeps(t)
	_ = deps.Store.RecordOutcome(context.Background(), persistence.TaskOutcome{
		TaskID: "t0", TaskType: "convert", AgentID: "converter-1", Success: true,
	})

	m := NewMonitor("monitor-1", deps)
	_ = m.Initialize(context.Background())

	task := &scheduler.Task{ID: "t1", Type: scheduler.TypeMonitor}
	result := m.Execute(context.Background(), task)
	if !result.Success {
		t.Fatalf("expected success: %s", result.Error)
	}
	if !strings.Contains(result.Output, "convert") {
		t.Errorf("expected convert stats in report:\n%s", result.Output)
	}
}

// TestSpecializerExecute verifies domain rewrite tables and the domain
// option guard.
func TestSpecializerExecute(t *testing.T) {
	s := NewSpecializer("specializer-1", testDeps(t))
	_ = s.Initialize(context.Background())

	task := &scheduler.Task{
		ID:   "t1",
		Type: scheduler.TypeSpecialize,
		Payload: scheduler.Payload{
			File:    "src/Contract.cs",
			Source:  "UInt160 owner; Storage.Put(key, value);",
			Options: map[string]string{"domain": "smart-contract"},
		},
	}
	result := s.Execute(context.Background(), task)
	if !result.Success {
		t.Fatalf("expected success: %s", result.Error)
	}
	if !strings.Contains(result.Output, "H160") || !strings.Contains(result.Output, "storage::put") {
		t.Errorf("expected domain rewrites, got: %s", result.Output)
	}

	missing := &scheduler.Task{ID: "t2", Type: scheduler.TypeSpecialize, Payload: scheduler.Payload{Source: "x"}}
	if result := s.Execute(context.Background(), missing); result.Success {
		t.Error("expected missing domain rejection")
	}
}
