package hooks

import (
	"context"
	"fmt"
	"time"
)

// Operation names the points in the pipeline a hook can attach to.
const (
	OpPreConversion  = "pre-conversion"
	OpPostConversion = "post-conversion"
	OpPreValidation  = "pre-validation"
	OpPostValidation = "post-validation"
)

// Tier orders hook execution. Lower tiers run earlier; within a tier
// hooks run in registration order.
type Tier int

const (
	TierCritical Tier = iota
	TierHigh
	TierNormal
	TierLow
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierNormal:
		return "normal"
	case TierLow:
		return "low"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Input is the payload threaded through a pipeline invocation. Hooks
// that modify Content pass the transformed text to the next hook.
type Input struct {
	Operation string
	File      string
	Content   string
}

// Result is the outcome of one hook invocation.
type Result struct {
	HookID   string
	Success  bool
	Modified bool
	Output   string
	Error    string
	Warnings []string
	Duration time.Duration
}

// Func is the work a hook performs. It receives the current payload and
// returns a result; a modifying hook sets Modified and Output.
// Implementations should honor ctx, but the pipeline also enforces the
// hook's declared timeout externally.
type Func func(ctx context.Context, input Input) Result

// Hook is a registered pipeline step.
type Hook struct {
	ID         string
	Name       string
	Tier       Tier
	Operations []string // operation names this hook attaches to
	Enabled    bool
	Blocking   bool
	Timeout    time.Duration // 0 = no per-hook timeout
	Run        Func
}

// appliesTo reports whether the hook attaches to the operation.
func (h *Hook) appliesTo(operation string) bool {
	for _, op := range h.Operations {
		if op == operation {
			return true
		}
	}
	return false
}
