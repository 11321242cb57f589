package scheduler

import (
	"fmt"

	"github.com/gammazero/toposort"
)

// ValidateDependencies checks that every DependsOn reference resolves
// to a known task and that the dependency relation is acyclic.
// Runs a full topological sort so cycle rejection happens at submit
// time, synchronously, instead of wedging the dispatch loop later.
func ValidateDependencies(tasks map[string]*Task) error {
	for id, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := tasks[depID]; !exists {
				return fmt.Errorf("task %q depends on unknown task %q", id, depID)
			}
		}
	}

	var edges []toposort.Edge
	for id, task := range tasks {
		if len(task.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, depID := range task.DependsOn {
			// Edge (depID, id): the dependency must come first.
			edges = append(edges, toposort.Edge{depID, id})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("task dependencies contain a cycle: %w", err)
	}
	return nil
}

// DependenciesSatisfied reports whether every dependency of the task
// has completed successfully. A failed dependency never satisfies.
func DependenciesSatisfied(t *Task, lookup func(id string) (*Task, bool)) bool {
	for _, depID := range t.DependsOn {
		dep, ok := lookup(depID)
		if !ok || dep.Status != TaskCompleted {
			return false
		}
	}
	return true
}
