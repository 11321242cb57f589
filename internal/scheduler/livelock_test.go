package scheduler

import (
	"testing"
	"time"
)

// fakeClock drives the detector's notion of time in tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDetector(window time.Duration, threshold int) (*LivelockDetector, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := NewLivelockDetector(window, threshold)
	d.now = clock.now
	return d, clock
}

// TestLivelockDetector_NoCycleBelowThreshold verifies isolated failures
// never flag a cycle.
func TestLivelockDetector_NoCycleBelowThreshold(t *testing.T) {
	d, _ := newTestDetector(30*time.Second, 3)

	d.RecordFailure("agent-a", []string{"agent-b"})
	d.RecordFailure("agent-b", []string{"agent-a"})

	if cycles := d.Detect(); cycles != nil {
		t.Errorf("expected no cycles below threshold, got %v", cycles)
	}
}

// TestLivelockDetector_TwoAgentCycle verifies a mutual starvation
// cycle is flagged once both edges cross the failure threshold.
func TestLivelockDetector_TwoAgentCycle(t *testing.T) {
	d, clock := newTestDetector(30*time.Second, 3)

	for i := 0; i < 3; i++ {
		d.RecordFailure("agent-a", []string{"agent-b"})
		d.RecordFailure("agent-b", []string{"agent-a"})
		clock.advance(time.Second)
	}

	cycles := d.Detect()
	if len(cycles) != 1 {
		t.Fatalf("expected one cycle, got %v", cycles)
	}
	cycle := cycles[0]
	if len(cycle) != 2 || cycle[0] != "agent-a" || cycle[1] != "agent-b" {
		t.Errorf("unexpected cycle members: %v", cycle)
	}
}

// TestLivelockDetector_SuccessClearsSuspicion verifies a successful
// acquire inside the window removes the agent from candidate cycles.
func TestLivelockDetector_SuccessClearsSuspicion(t *testing.T) {
	d, clock := newTestDetector(30*time.Second, 3)

	for i := 0; i < 4; i++ {
		d.RecordFailure("agent-a", []string{"agent-b"})
		d.RecordFailure("agent-b", []string{"agent-a"})
		clock.advance(time.Second)
	}
	d.RecordSuccess("agent-a")

	if cycles := d.Detect(); cycles != nil {
		t.Errorf("expected success to break the cycle, got %v", cycles)
	}
}

// TestLivelockDetector_WindowExpiry verifies stale failures age out of
// the sliding window.
func TestLivelockDetector_WindowExpiry(t *testing.T) {
	d, clock := newTestDetector(10*time.Second, 3)

	for i := 0; i < 3; i++ {
		d.RecordFailure("agent-a", []string{"agent-b"})
		d.RecordFailure("agent-b", []string{"agent-a"})
	}
	clock.advance(11 * time.Second)

	if cycles := d.Detect(); cycles != nil {
		t.Errorf("expected aged-out failures to clear the cycle, got %v", cycles)
	}
}

// TestLivelockDetector_ThreeAgentCycle verifies transitive cycles are
// found, not only mutual pairs.
func TestLivelockDetector_ThreeAgentCycle(t *testing.T) {
	d, clock := newTestDetector(30*time.Second, 2)

	for i := 0; i < 2; i++ {
		d.RecordFailure("agent-a", []string{"agent-b"})
		d.RecordFailure("agent-b", []string{"agent-c"})
		d.RecordFailure("agent-c", []string{"agent-a"})
		clock.advance(time.Second)
	}

	cycles := d.Detect()
	if len(cycles) != 1 {
		t.Fatalf("expected one cycle, got %v", cycles)
	}
	if len(cycles[0]) != 3 {
		t.Errorf("expected 3-agent cycle, got %v", cycles[0])
	}
}

// TestLivelockDetector_ResetDropsAgent verifies Reset removes the agent
// from both sides of the relation.
func TestLivelockDetector_ResetDropsAgent(t *testing.T) {
	d, clock := newTestDetector(30*time.Second, 2)

	for i := 0; i < 2; i++ {
		d.RecordFailure("agent-a", []string{"agent-b"})
		d.RecordFailure("agent-b", []string{"agent-a"})
		clock.advance(time.Second)
	}
	if cycles := d.Detect(); len(cycles) != 1 {
		t.Fatalf("expected a cycle before reset, got %v", cycles)
	}

	d.Reset("agent-b")

	if cycles := d.Detect(); cycles != nil {
		t.Errorf("expected no cycle after reset, got %v", cycles)
	}
}
