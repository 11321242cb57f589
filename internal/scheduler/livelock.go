package scheduler

import (
	"sort"
	"sync"
	"time"
)

// LivelockDetector watches for repeated failed-acquire/requeue cycling
// between a bounded set of agents. Because Acquire never blocks, a true
// blocking deadlock cannot form; what can form is starvation, where two
// or more agents keep bouncing each other's tasks off the same
// resources. The detector tracks failed acquires per (waiter, holder)
// pair over a sliding window and flags a cycle when every agent on it
// exceeded the failure threshold without a single successful acquire
// inside the window.
type LivelockDetector struct {
	mu          sync.Mutex
	window      time.Duration
	threshold   int
	failures    map[string]map[string][]time.Time // waiter -> holder -> failure times
	lastSuccess map[string]time.Time
	now         func() time.Time
}

// NewLivelockDetector creates a detector with the given sliding window
// and per-edge failure threshold. Non-positive arguments fall back to
// 30s / 3.
func NewLivelockDetector(window time.Duration, threshold int) *LivelockDetector {
	if window <= 0 {
		window = 30 * time.Second
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &LivelockDetector{
		window:      window,
		threshold:   threshold,
		failures:    make(map[string]map[string][]time.Time),
		lastSuccess: make(map[string]time.Time),
		now:         time.Now,
	}
}

// RecordFailure notes that waiter failed to acquire a resource held by
// each of the given holders.
func (d *LivelockDetector) RecordFailure(waiter string, holders []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	edges, ok := d.failures[waiter]
	if !ok {
		edges = make(map[string][]time.Time)
		d.failures[waiter] = edges
	}
	for _, holder := range holders {
		if holder == waiter {
			continue
		}
		edges[holder] = append(d.prune(edges[holder], now), now)
	}
}

// RecordSuccess notes that waiter successfully acquired its locks,
// which clears it from livelock suspicion for the current window.
func (d *LivelockDetector) RecordSuccess(waiter string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastSuccess[waiter] = d.now()
	delete(d.failures, waiter)
}

// Reset drops all tracked state for the agent. Called after its locks
// have been force-cleared so a resolved cycle is not re-flagged.
func (d *LivelockDetector) Reset(agentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.failures, agentID)
	delete(d.lastSuccess, agentID)
	for _, edges := range d.failures {
		delete(edges, agentID)
	}
}

// Detect returns candidate starvation cycles: sets of agent IDs where
// each agent repeatedly failed against the next and none succeeded
// within the window. Returns nil when no cycle is present.
func (d *LivelockDetector) Detect() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	// Build the wait-for relation from hot edges only.
	waitsFor := make(map[string][]string)
	for waiter, edges := range d.failures {
		if last, ok := d.lastSuccess[waiter]; ok && now.Sub(last) < d.window {
			continue // recent success, not starving
		}
		for holder, times := range edges {
			pruned := d.prune(times, now)
			edges[holder] = pruned
			if len(pruned) >= d.threshold {
				waitsFor[waiter] = append(waitsFor[waiter], holder)
			}
		}
	}

	// Walk the relation looking for cycles.
	var cycles [][]string
	seen := make(map[string]bool)
	for _, start := range sortedKeys(waitsFor) {
		if seen[start] {
			continue
		}
		if cycle := findCycle(start, waitsFor); cycle != nil {
			for _, id := range cycle {
				seen[id] = true
			}
			cycles = append(cycles, cycle)
		}
	}
	return cycles
}

// Starving returns the hot wait-for edges: for each waiter that has
// exceeded the failure threshold against a holder without a recent
// success, the holders it is stuck behind, sorted. This catches
// one-sided starvation (an orphaned or wedged holder) that never forms
// a cycle.
func (d *LivelockDetector) Starving() map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	out := make(map[string][]string)
	for waiter, edges := range d.failures {
		if last, ok := d.lastSuccess[waiter]; ok && now.Sub(last) < d.window {
			continue
		}
		for holder, times := range edges {
			pruned := d.prune(times, now)
			edges[holder] = pruned
			if len(pruned) >= d.threshold {
				out[waiter] = append(out[waiter], holder)
			}
		}
		sort.Strings(out[waiter])
	}
	return out
}

// prune drops failure timestamps older than the window. Caller holds d.mu.
func (d *LivelockDetector) prune(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-d.window)
	i := 0
	for ; i < len(times); i++ {
		if times[i].After(cutoff) {
			break
		}
	}
	return times[i:]
}

// findCycle runs a DFS from start over the wait-for relation and
// returns the members of the first cycle reachable from it, sorted.
func findCycle(start string, waitsFor map[string][]string) []string {
	var path []string
	onPath := make(map[string]int)
	visited := make(map[string]bool)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		if idx, ok := onPath[node]; ok {
			cycle := append([]string(nil), path[idx:]...)
			sort.Strings(cycle)
			return cycle
		}
		if visited[node] {
			return nil
		}
		visited[node] = true
		onPath[node] = len(path)
		path = append(path, node)
		for _, next := range waitsFor[node] {
			if cycle := dfs(next); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		delete(onPath, node)
		return nil
	}

	return dfs(start)
}

// sortedKeys returns map keys in sorted order for deterministic walks.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
