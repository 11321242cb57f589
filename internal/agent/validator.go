package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/r3e-network/AutoClaude-sub004/internal/hooks"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Validator checks converted output for structural problems. It serves
// both validate tasks (full hook-gated validation) and analyze tasks
// (read-only source inspection, shared lock).
type Validator struct {
	base
	store persistence.Store
	hooks *hooks.Pipeline
}

// NewValidator creates the validator agent.
func NewValidator(id string, deps Deps) *Validator {
	return &Validator{
		base: newBase(id, TypeValidator, "Conversion validator", 8,
			[]scheduler.Capability{scheduler.CapValidation, scheduler.CapAnalysis},
			[]scheduler.TaskType{scheduler.TypeValidate, scheduler.TypeAnalyze}),
		store: deps.Store,
		hooks: deps.Hooks,
	}
}

// Execute validates or analyzes the task's payload.
func (v *Validator) Execute(ctx context.Context, task *scheduler.Task) scheduler.TaskResult {
	return v.run(task, func() scheduler.TaskResult {
		content := task.Payload.Source

		if task.Type == scheduler.TypeValidate && v.hooks != nil {
			pre, err := v.hooks.ExecuteHooks(ctx, hooks.OpPreValidation, hooks.Input{
				File:    task.Payload.File,
				Content: content,
			})
			if err != nil {
				return scheduler.TaskResult{Success: false, Error: fmt.Sprintf("pre-validation: %v", err)}
			}
			content = pre.Output
		}

		issues := inspect(content)

		if task.Type == scheduler.TypeValidate && v.hooks != nil {
			if _, err := v.hooks.ExecuteHooks(ctx, hooks.OpPostValidation, hooks.Input{
				File:    task.Payload.File,
				Content: content,
			}); err != nil {
				return scheduler.TaskResult{Success: false, Error: fmt.Sprintf("post-validation: %v", err)}
			}
		}

		if len(issues) > 0 {
			return scheduler.TaskResult{
				Success: false,
				Error:   fmt.Sprintf("%d validation issues: %s", len(issues), strings.Join(issues, "; ")),
			}
		}

		report := fmt.Sprintf("%s clean: %d lines inspected", task.Payload.File, strings.Count(content, "\n")+1)
		return scheduler.TaskResult{Success: true, Output: report}
	})
}

// inspect runs the structural checks shared by validate and analyze.
func inspect(content string) []string {
	var issues []string
	if strings.TrimSpace(content) == "" {
		return []string{"empty input"}
	}

	depth := 0
	for i, line := range strings.Split(content, "\n") {
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			issues = append(issues, fmt.Sprintf("line %d: unmatched closing brace", i+1))
			depth = 0
		}
		if strings.Contains(line, "todo!()") {
			issues = append(issues, fmt.Sprintf("line %d: unfinished todo!()", i+1))
		}
	}
	if depth > 0 {
		issues = append(issues, fmt.Sprintf("%d unclosed braces at end of input", depth))
	}
	return issues
}
