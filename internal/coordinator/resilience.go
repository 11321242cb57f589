package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/r3e-network/AutoClaude-sub004/internal/agent"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// errExecutionFailed adapts a structured task failure into an error so
// the circuit breaker can count it. It never leaves this package.
var errExecutionFailed = errors.New("task execution failed")

// RetryConfig configures the exponential backoff applied between
// requeue attempts of a failed task.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial delay before the first retry (default 100ms)
	MaxInterval         time.Duration // Cap on the per-retry delay (default 10s)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// delayFor computes the backoff delay before retry attempt n (1-based).
func (c RetryConfig) delayFor(attempt int) time.Duration {
	if c.InitialInterval <= 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.MaxInterval = c.MaxInterval
	b.Multiplier = c.Multiplier
	b.RandomizationFactor = c.RandomizationFactor
	b.MaxElapsedTime = 0
	// NextBackOff steps an internal current interval that Reset seeds
	// from InitialInterval; without it the constructor default leaks
	// into the first delay.
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// CircuitBreakerRegistry manages per-agent-type circuit breakers. A
// variant that keeps failing its tasks trips its breaker, and the
// coordinator stops routing work to that variant until the breaker
// half-opens.
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewCircuitBreakerRegistry creates a new circuit breaker registry.
func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get returns the circuit breaker for the given agent type, creating
// it on first use.
func (r *CircuitBreakerRegistry) Get(agentType string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[agentType]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        agentType,
		MaxRequests: 3,                // Allow 3 test tasks in half-open state
		Interval:    0,                // Don't clear counts automatically
		Timeout:     30 * time.Second, // Stay open for 30s before testing recovery
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("[Coordinator] circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation is not the agent's fault.
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})

	r.breakers[agentType] = cb
	return cb
}

// executeGuarded runs a task on an agent through the agent type's
// circuit breaker, applying the task's per-task timeout. Every failure
// mode comes back as a structured TaskResult; the returned result is
// never successful when the context expired or the breaker refused.
func executeGuarded(ctx context.Context, a agent.Agent, task *scheduler.Task, cb *gobreaker.CircuitBreaker) scheduler.TaskResult {
	runCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := cb.Execute(func() (interface{}, error) {
		res := a.Execute(runCtx, task)
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		if !res.Success {
			return res, errExecutionFailed
		}
		return res, nil
	})

	if err != nil {
		if res, ok := out.(scheduler.TaskResult); ok && res.Error != "" {
			// The agent produced a structured failure; keep its error.
			return res
		}
		reason := err.Error()
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			reason = fmt.Sprintf("agent type %q circuit open", a.Type())
		case errors.Is(err, context.DeadlineExceeded):
			reason = fmt.Sprintf("task timed out after %s", task.Timeout)
		case errors.Is(err, context.Canceled):
			reason = "task cancelled"
		}
		return scheduler.TaskResult{
			TaskID:   task.ID,
			Success:  false,
			Error:    reason,
			Duration: time.Since(start),
		}
	}

	res, ok := out.(scheduler.TaskResult)
	if !ok {
		return scheduler.TaskResult{
			TaskID:   task.ID,
			Success:  false,
			Error:    "internal: agent returned no result",
			Duration: time.Since(start),
		}
	}
	return res
}
