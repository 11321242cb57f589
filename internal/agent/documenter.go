package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Documenter extracts public items from converted Rust source and
// produces a documentation skeleton for items missing doc comments.
type Documenter struct {
	base
	store persistence.Store
}

// NewDocumenter creates the documenter agent.
func NewDocumenter(id string, deps Deps) *Documenter {
	return &Documenter{
		base: newBase(id, TypeDocumenter, "Documentation generator", 4,
			[]scheduler.Capability{scheduler.CapDocumentation},
			[]scheduler.TaskType{scheduler.TypeDocument}),
		store: deps.Store,
	}
}

// Execute inserts doc-comment stubs above undocumented public items.
func (d *Documenter) Execute(ctx context.Context, task *scheduler.Task) scheduler.TaskResult {
	return d.run(task, func() scheduler.TaskResult {
		lines := strings.Split(task.Payload.Source, "\n")
		var out []string
		documented := 0

		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if isPublicItem(trimmed) && !hasDocAbove(lines, i) {
				indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
				out = append(out, indent+"/// "+itemSummary(trimmed))
				documented++
			}
			out = append(out, line)
		}

		if d.store != nil && documented > 0 {
			key := fmt.Sprintf("docs:%s", task.Payload.File)
			_ = d.store.Store(ctx, key, fmt.Sprintf("%d items documented", documented), 0.3)
		}

		return scheduler.TaskResult{Success: true, Output: strings.Join(out, "\n")}
	})
}

// isPublicItem reports whether the line declares a public Rust item.
func isPublicItem(line string) bool {
	for _, prefix := range []string{"pub fn ", "pub struct ", "pub enum ", "pub trait ", "pub mod "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// hasDocAbove reports whether the preceding non-blank line is a doc
// comment or attribute.
func hasDocAbove(lines []string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		prev := strings.TrimSpace(lines[j])
		if prev == "" {
			continue
		}
		return strings.HasPrefix(prev, "///") || strings.HasPrefix(prev, "#[")
	}
	return false
}

// itemSummary produces the stub text for a public item declaration.
func itemSummary(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "TODO: document this item."
	}
	name := strings.SplitN(fields[2], "(", 2)[0]
	name = strings.SplitN(name, "<", 2)[0]
	kind := fields[1]
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	return fmt.Sprintf("%s %s.", kind, name)
}
