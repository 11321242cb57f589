package agent

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Monitor reports pipeline health from the outcome log. Read-only: it
// takes a shared lock on whatever resource it inspects and mutates
// nothing but its own memory entries.
type Monitor struct {
	base
	store persistence.Store
}

// NewMonitor creates the monitor agent.
func NewMonitor(id string, deps Deps) *Monitor {
	return &Monitor{
		base: newBase(id, TypeMonitor, "Pipeline health monitor", 2,
			[]scheduler.Capability{scheduler.CapMonitoring},
			[]scheduler.TaskType{scheduler.TypeMonitor}),
		store: deps.Store,
	}
}

// Execute aggregates outcome statistics per task type into a report.
func (m *Monitor) Execute(ctx context.Context, task *scheduler.Task) scheduler.TaskResult {
	return m.run(task, func() scheduler.TaskResult {
		if m.store == nil {
			return scheduler.TaskResult{Success: false, Error: "monitor requires a persistence store"}
		}

		// Collect per-type stats concurrently; the store serializes
		// its own access.
		types := scheduler.TaskTypes()
		collected := make([]persistence.OutcomeStats, len(types))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, tt := range types {
			i, tt := i, tt
			g.Go(func() error {
				stats, err := m.store.OutcomeStats(gctx, string(tt))
				if err != nil {
					return fmt.Errorf("stats for %s: %w", tt, err)
				}
				collected[i] = stats
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return scheduler.TaskResult{Success: false, Error: err.Error()}
		}

		var b strings.Builder
		b.WriteString("pipeline health:\n")
		for i, tt := range types {
			stats := collected[i]
			if stats.Total == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %-11s total=%d ok=%d failed=%d success=%.0f%% avg=%.0fms\n",
				tt, stats.Total, stats.Succeeded, stats.Failed, stats.SuccessRate()*100, stats.AvgDurationMs)
		}

		report := b.String()
		_ = m.store.Store(ctx, "monitor:last-report", report, 0.2)
		return scheduler.TaskResult{Success: true, Output: report}
	})
}
