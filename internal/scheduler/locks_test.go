package scheduler

import (
	"fmt"
	"math/rand"
	"testing"
)

// TestResourceLockManager_ExclusiveGrantAndConflict verifies the basic
// exclusive grant/deny rules.
func TestResourceLockManager_ExclusiveGrantAndConflict(t *testing.T) {
	mgr := NewResourceLockManager()

	if !mgr.Acquire("file:src/main.rs", "agent-a", "task-1", LockExclusive) {
		t.Fatal("expected first exclusive acquire to succeed")
	}

	// Any second acquire against an exclusive lock must be refused.
	if mgr.Acquire("file:src/main.rs", "agent-b", "task-2", LockExclusive) {
		t.Error("expected exclusive-vs-exclusive conflict")
	}
	if mgr.Acquire("file:src/main.rs", "agent-b", "task-2", LockShared) {
		t.Error("expected shared-vs-exclusive conflict")
	}

	// Release frees the resource for the next holder.
	mgr.Release("file:src/main.rs", "agent-a")
	if !mgr.Acquire("file:src/main.rs", "agent-b", "task-2", LockExclusive) {
		t.Error("expected acquire to succeed after release")
	}
}

// TestResourceLockManager_SharedHolders verifies that shared locks
// accumulate holders and refuse exclusive requests.
func TestResourceLockManager_SharedHolders(t *testing.T) {
	mgr := NewResourceLockManager()

	if !mgr.Acquire("file:lib.rs", "agent-a", "task-1", LockShared) {
		t.Fatal("expected first shared acquire to succeed")
	}
	if !mgr.Acquire("file:lib.rs", "agent-b", "task-2", LockShared) {
		t.Fatal("expected second shared acquire to succeed")
	}

	if mgr.Acquire("file:lib.rs", "agent-c", "task-3", LockExclusive) {
		t.Error("expected exclusive acquire against shared lock to fail")
	}

	// Releasing one shared holder keeps the lock alive for the other.
	mgr.Release("file:lib.rs", "agent-a")
	if mgr.Acquire("file:lib.rs", "agent-c", "task-3", LockExclusive) {
		t.Error("expected exclusive acquire to fail while one shared holder remains")
	}

	mgr.Release("file:lib.rs", "agent-b")
	if !mgr.Acquire("file:lib.rs", "agent-c", "task-3", LockExclusive) {
		t.Error("expected exclusive acquire to succeed once all shared holders released")
	}
}

// TestResourceLockManager_ClearHolderLocks verifies that force-clearing
// an agent releases everything it held and unblocks competing acquires.
func TestResourceLockManager_ClearHolderLocks(t *testing.T) {
	mgr := NewResourceLockManager()

	mgr.Acquire("file:a.rs", "agent-a", "task-1", LockExclusive)
	mgr.Acquire("file:b.rs", "agent-a", "task-1", LockExclusive)
	mgr.Acquire("file:c.rs", "agent-a", "task-2", LockShared)

	cleared := mgr.ClearHolderLocks("agent-a")
	if len(cleared) != 3 {
		t.Fatalf("expected 3 cleared resources, got %d: %v", len(cleared), cleared)
	}

	// Previously blocked competing acquires now succeed immediately.
	for _, resource := range []string{"file:a.rs", "file:b.rs", "file:c.rs"} {
		if !mgr.Acquire(resource, "agent-b", "task-3", LockExclusive) {
			t.Errorf("expected acquire of %s to succeed after clear", resource)
		}
	}
}

// TestResourceLockManager_AcquireAllRollback verifies all-or-nothing
// multi-resource acquisition with rollback of partial locks.
func TestResourceLockManager_AcquireAllRollback(t *testing.T) {
	mgr := NewResourceLockManager()

	// agent-b already holds the lexicographically later resource.
	mgr.Acquire("file:z.rs", "agent-b", "task-9", LockExclusive)

	requests := []LockRequest{
		{Resource: "file:z.rs", Kind: LockExclusive},
		{Resource: "file:a.rs", Kind: LockExclusive},
	}
	ok, blockers := mgr.AcquireAll(requests, "agent-a", "task-1")
	if ok {
		t.Fatal("expected AcquireAll to fail")
	}
	if len(blockers) != 1 || blockers[0] != "agent-b" {
		t.Errorf("expected blocker [agent-b], got %v", blockers)
	}

	// The partial lock on file:a.rs must have been rolled back.
	if !mgr.Acquire("file:a.rs", "agent-c", "task-2", LockExclusive) {
		t.Error("expected file:a.rs to be free after rollback")
	}
}

// TestResourceLockManager_Snapshot verifies the read-only view.
func TestResourceLockManager_Snapshot(t *testing.T) {
	mgr := NewResourceLockManager()
	mgr.Acquire("file:b.rs", "agent-a", "task-1", LockExclusive)
	mgr.Acquire("file:a.rs", "agent-b", "task-2", LockShared)
	mgr.Acquire("file:a.rs", "agent-c", "task-3", LockShared)

	snap := mgr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 locked resources, got %d", len(snap))
	}
	if snap[0].Resource != "file:a.rs" || snap[0].Kind != LockShared || len(snap[0].Holders) != 2 {
		t.Errorf("unexpected first snapshot entry: %+v", snap[0])
	}
	if snap[1].Resource != "file:b.rs" || snap[1].Kind != LockExclusive {
		t.Errorf("unexpected second snapshot entry: %+v", snap[1])
	}
}

// TestResourceLockManager_InvariantUnderRandomSequences property-tests
// the lock invariant: a resource has either one exclusive holder or any
// number of shared holders, never both kinds at once.
func TestResourceLockManager_InvariantUnderRandomSequences(t *testing.T) {
	mgr := NewResourceLockManager()
	rng := rand.New(rand.NewSource(42))

	resources := []string{"file:a.rs", "file:b.rs", "file:c.rs"}
	agents := []string{"agent-1", "agent-2", "agent-3", "agent-4"}

	// held mirrors what each agent believes it holds.
	type grant struct{ resource, agent string }
	type state struct {
		kind    LockKind
		holders map[string]bool
	}
	model := make(map[string]*state)
	var grants []grant

	for i := 0; i < 2000; i++ {
		resource := resources[rng.Intn(len(resources))]
		agent := agents[rng.Intn(len(agents))]

		if rng.Intn(3) == 0 && len(grants) > 0 {
			// Release a random outstanding grant.
			idx := rng.Intn(len(grants))
			g := grants[idx]
			grants = append(grants[:idx], grants[idx+1:]...)
			mgr.Release(g.resource, g.agent)
			if st := model[g.resource]; st != nil {
				delete(st.holders, g.agent)
				if len(st.holders) == 0 {
					delete(model, g.resource)
				}
			}
			continue
		}

		kind := LockShared
		if rng.Intn(2) == 0 {
			kind = LockExclusive
		}

		st, locked := model[resource]
		alreadyHolds := locked && st.holders[agent]
		granted := mgr.Acquire(resource, agent, fmt.Sprintf("task-%d", i), kind)

		// Check grant decision against the model.
		wantGrant := !locked || (kind == LockShared && st.kind == LockShared && !alreadyHolds)
		if alreadyHolds {
			// Re-acquire by a current holder is idempotent: accept
			// either decision, but never allow a kind mix.
			if granted && kind != st.kind {
				t.Fatalf("step %d: re-acquire changed lock kind on %s", i, resource)
			}
			continue
		}
		if granted != wantGrant {
			t.Fatalf("step %d: Acquire(%s, %s, %v) = %v, model wants %v",
				i, resource, agent, kind, granted, wantGrant)
		}
		if granted {
			if !locked {
				st = &state{kind: kind, holders: make(map[string]bool)}
				model[resource] = st
			}
			st.holders[agent] = true
			grants = append(grants, grant{resource, agent})
		}

		// Invariant: no snapshot entry ever mixes kinds or has more
		// than one exclusive holder.
		for _, info := range mgr.Snapshot() {
			if info.Kind == LockExclusive && len(info.Holders) != 1 {
				t.Fatalf("step %d: exclusive lock on %s with %d holders", i, info.Resource, len(info.Holders))
			}
		}
	}
}
