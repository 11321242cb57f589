package hooks

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// BlockedError reports the failure of a blocking hook; it aborts the
// invoking operation.
type BlockedError struct {
	HookID string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocking hook %s failed: %s", e.HookID, e.Reason)
}

// PipelineResult aggregates one ExecuteHooks invocation. Output carries
// the last hook's transformed payload; Warnings collect non-blocking
// failures.
type PipelineResult struct {
	Success  bool
	Output   string
	Results  []Result
	Warnings []string
}

// Pipeline holds registered hooks and runs them around named
// operations. Hooks run sequentially, never concurrently: a later hook
// may depend on an earlier hook's transformation of the payload.
type Pipeline struct {
	mu    sync.Mutex
	hooks map[string]*registered
	seq   int
}

type registered struct {
	hook *Hook
	seq  int // registration order, tie-break within a tier
}

// NewPipeline creates an empty hook pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{hooks: make(map[string]*registered)}
}

// Register adds a hook keyed by ID. Registering a duplicate ID replaces
// the prior hook but keeps its original position in the tier order.
func (p *Pipeline) Register(h *Hook) error {
	if h == nil || h.ID == "" {
		return fmt.Errorf("hook must have an ID")
	}
	if h.Run == nil {
		return fmt.Errorf("hook %s has no run function", h.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if prior, exists := p.hooks[h.ID]; exists {
		prior.hook = h
		return nil
	}
	p.hooks[h.ID] = &registered{hook: h, seq: p.seq}
	p.seq++
	return nil
}

// SetEnabled toggles a hook at runtime. Unknown IDs return an error.
func (p *Pipeline) SetEnabled(hookID string, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, exists := p.hooks[hookID]
	if !exists {
		return fmt.Errorf("unknown hook %q", hookID)
	}
	r.hook.Enabled = enabled
	return nil
}

// Hooks returns every registered hook in execution order.
func (p *Pipeline) Hooks() []*Hook {
	p.mu.Lock()
	regs := make([]*registered, 0, len(p.hooks))
	for _, r := range p.hooks {
		regs = append(regs, r)
	}
	p.mu.Unlock()

	sortRegistered(regs)
	out := make([]*Hook, len(regs))
	for i, r := range regs {
		out[i] = r.hook
	}
	return out
}

// selectFor returns the enabled hooks attached to operation, in tier
// order (critical first), stable by registration order within a tier.
func (p *Pipeline) selectFor(operation string) []*Hook {
	p.mu.Lock()
	regs := make([]*registered, 0, len(p.hooks))
	for _, r := range p.hooks {
		if r.hook.Enabled && r.hook.appliesTo(operation) {
			regs = append(regs, r)
		}
	}
	p.mu.Unlock()

	sortRegistered(regs)
	out := make([]*Hook, len(regs))
	for i, r := range regs {
		out[i] = r.hook
	}
	return out
}

func sortRegistered(regs []*registered) {
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].hook.Tier != regs[j].hook.Tier {
			return regs[i].hook.Tier < regs[j].hook.Tier
		}
		return regs[i].seq < regs[j].seq
	})
}

// ExecuteHooks runs every enabled hook attached to the operation as a
// sequential fold over the payload. A blocking hook failure stops the
// pipeline immediately and is returned as a *BlockedError; non-blocking
// failures become warnings and execution continues.
func (p *Pipeline) ExecuteHooks(ctx context.Context, operation string, input Input) (*PipelineResult, error) {
	input.Operation = operation
	selected := p.selectFor(operation)

	agg := &PipelineResult{Success: true, Output: input.Content}

	for _, h := range selected {
		result := p.invoke(ctx, h, input)
		agg.Results = append(agg.Results, result)

		if !result.Success {
			if h.Blocking {
				agg.Success = false
				return agg, &BlockedError{HookID: h.ID, Reason: result.Error}
			}
			log.Printf("[Hooks] non-blocking hook %s failed on %s: %s", h.ID, operation, result.Error)
			agg.Warnings = append(agg.Warnings, fmt.Sprintf("%s: %s", h.ID, result.Error))
			continue
		}

		agg.Warnings = append(agg.Warnings, result.Warnings...)
		if result.Modified {
			input.Content = result.Output
			agg.Output = result.Output
		}
	}

	return agg, nil
}

// invoke runs one hook with its declared timeout enforced. A timeout is
// treated as a failure for that hook only; it never cancels the wider
// task.
func (p *Pipeline) invoke(ctx context.Context, h *Hook, input Input) Result {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if h.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	done := make(chan Result, 1)
	go func() {
		done <- h.Run(runCtx, input)
	}()

	select {
	case result := <-done:
		result.HookID = h.ID
		result.Duration = time.Since(start)
		return result
	case <-runCtx.Done():
		reason := runCtx.Err().Error()
		if h.Timeout > 0 && runCtx.Err() == context.DeadlineExceeded {
			reason = fmt.Sprintf("hook timed out after %s", h.Timeout)
		}
		return Result{
			HookID:   h.ID,
			Success:  false,
			Error:    reason,
			Duration: time.Since(start),
		}
	}
}
