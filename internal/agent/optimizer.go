package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Optimizer applies pattern-based rewrite passes over converted Rust
// output and records which passes fired so future runs can consult
// pass frequency.
type Optimizer struct {
	base
	store persistence.Store
}

// NewOptimizer creates the optimizer agent.
func NewOptimizer(id string, deps Deps) *Optimizer {
	return &Optimizer{
		base: newBase(id, TypeOptimizer, "Rewrite-pass optimizer", 6,
			[]scheduler.Capability{scheduler.CapOptimization},
			[]scheduler.TaskType{scheduler.TypeOptimize}),
		store: deps.Store,
	}
}

// passes are the rewrite rules applied in order. Each is a plain
// textual rewrite; anything semantic belongs in the converter.
var passes = []struct {
	name string
	from string
	to   string
}{
	{"string-clone", ".to_string().clone()", ".to_string()"},
	{"redundant-deref", "&*", ""},
	{"iter-collect-len", ".iter().collect::<Vec<_>>().len()", ".iter().count()"},
	{"double-not", "!!", ""},
	{"unwrap-expect", ".unwrap().unwrap()", ".unwrap()"},
}

// Execute runs every rewrite pass over the payload.
func (o *Optimizer) Execute(ctx context.Context, task *scheduler.Task) scheduler.TaskResult {
	return o.run(task, func() scheduler.TaskResult {
		content := task.Payload.Source
		applied := 0

		for _, p := range passes {
			count := strings.Count(content, p.from)
			if count == 0 {
				continue
			}
			content = strings.ReplaceAll(content, p.from, p.to)
			applied += count
			if o.store != nil {
				key := fmt.Sprintf("optimizer:pass:%s", p.name)
				_ = o.store.Store(ctx, key, fmt.Sprintf("%d", count), 0.4)
			}
		}

		return scheduler.TaskResult{Success: true, Output: content}
	})
}
