package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/r3e-network/AutoClaude-sub004/internal/hooks"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Converter rewrites C# source files into Rust. It drives the hook
// pipeline around its own transformation step: pre-conversion hooks
// gate and annotate the input, post-conversion hooks validate and
// normalize the output.
type Converter struct {
	base
	store persistence.Store
	hooks *hooks.Pipeline
}

// NewConverter creates the converter agent.
func NewConverter(id string, deps Deps) *Converter {
	return &Converter{
		base: newBase(id, TypeConverter, "C# to Rust converter", 10,
			[]scheduler.Capability{scheduler.CapConversion},
			[]scheduler.TaskType{scheduler.TypeConvert}),
		store: deps.Store,
		hooks: deps.Hooks,
	}
}

// Execute converts the task's source payload.
func (c *Converter) Execute(ctx context.Context, task *scheduler.Task) scheduler.TaskResult {
	return c.run(task, func() scheduler.TaskResult {
		source := task.Payload.Source

		if c.hooks != nil {
			pre, err := c.hooks.ExecuteHooks(ctx, hooks.OpPreConversion, hooks.Input{
				File:    task.Payload.File,
				Content: source,
			})
			if err != nil {
				return scheduler.TaskResult{Success: false, Error: fmt.Sprintf("pre-conversion: %v", err)}
			}
			source = pre.Output
		}

		converted := ConvertSource(source)

		if c.hooks != nil {
			post, err := c.hooks.ExecuteHooks(ctx, hooks.OpPostConversion, hooks.Input{
				File:    task.Payload.File,
				Content: converted,
			})
			if err != nil {
				return scheduler.TaskResult{Success: false, Error: fmt.Sprintf("post-conversion: %v", err)}
			}
			converted = post.Output
		}

		if c.store != nil {
			key := fmt.Sprintf("conversion:%s", task.Payload.File)
			_ = c.store.Store(ctx, key, fmt.Sprintf("%d lines", strings.Count(converted, "\n")), 0.6)
		}

		return scheduler.TaskResult{Success: true, Output: converted}
	})
}

// replacements are the token-level C# to Rust rewrites applied to every
// line. Heuristic by design; the validator flags what slips through.
var replacements = strings.NewReplacer(
	"Console.WriteLine(", "println!(",
	"Console.Write(", "print!(",
	"string ", "String ",
	"bool ", "bool ",
	"null", "None",
	"this.", "self.",
	" == None", ".is_none()",
)

// ConvertSource applies line-based C# to Rust rewrites.
func ConvertSource(source string) string {
	lines := strings.Split(source, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		switch {
		case strings.HasPrefix(trimmed, "using ") && strings.HasSuffix(trimmed, ";"):
			// Import mapping happens at crate level; drop the directive.
			continue
		case strings.HasPrefix(trimmed, "namespace "):
			name := strings.TrimSuffix(strings.TrimPrefix(trimmed, "namespace "), " {")
			out = append(out, indent+"mod "+toSnake(name)+" {")
		case strings.HasPrefix(trimmed, "public class "):
			name := strings.TrimSuffix(strings.TrimPrefix(trimmed, "public class "), " {")
			out = append(out, indent+"pub struct "+name+" {")
		case strings.HasPrefix(trimmed, "foreach (var "):
			rest := strings.TrimPrefix(trimmed, "foreach (var ")
			rest = strings.Replace(rest, " in ", " in ", 1)
			rest = strings.TrimSuffix(rest, ") {")
			out = append(out, indent+"for "+rest+" {")
		case strings.HasPrefix(trimmed, "var "):
			out = append(out, indent+replacements.Replace("let "+strings.TrimPrefix(trimmed, "var ")))
		default:
			out = append(out, indent+replacements.Replace(trimmed))
		}
	}
	return strings.Join(out, "\n")
}

// toSnake lowercases a dotted C# namespace into a snake_case module path.
func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '.':
			b.WriteString("::")
		case r >= 'A' && r <= 'Z':
			if i > 0 && name[i-1] != '.' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
