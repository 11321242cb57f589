package scheduler

import (
	"sort"
	"sync"
)

// LockKind distinguishes shared (read) from exclusive (write) locks.
type LockKind int

const (
	LockShared LockKind = iota
	LockExclusive
)

// String returns the lock kind name.
func (k LockKind) String() string {
	if k == LockExclusive {
		return "exclusive"
	}
	return "shared"
}

// LockInfo is a read-only view of one resource's lock state.
type LockInfo struct {
	Resource string
	Kind     LockKind
	Holders  []string // agent IDs; exactly one for exclusive
	TaskIDs  []string // owning task per holder, same order as Holders
}

// resourceLock is the per-resource ownership record.
// Invariant: an exclusive lock has exactly one holder; a shared lock
// has one or more. Kinds are never mixed on a single resource.
type resourceLock struct {
	kind    LockKind
	holders map[string]string // holderID -> owning taskID
}

// ResourceLockManager tracks shared/exclusive locks keyed by resource
// identifier (e.g. "file:src/lib.rs" or "task:<id>"). Acquire never
// blocks: a conflicting request is refused and the caller requeues,
// which keeps the dispatch loop free of lock waits.
type ResourceLockManager struct {
	mu    sync.Mutex
	locks map[string]*resourceLock
}

// NewResourceLockManager creates an empty lock manager.
func NewResourceLockManager() *ResourceLockManager {
	return &ResourceLockManager{
		locks: make(map[string]*resourceLock),
	}
}

// Acquire attempts to take the given lock. Returns true on success.
// Grant rules:
//   - no existing lock: granted
//   - shared requested, existing lock shared: holder added, granted
//   - anything else is a conflict: refused without blocking
func (m *ResourceLockManager) Acquire(resource, holderID, taskID string, kind LockKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, exists := m.locks[resource]
	if !exists {
		m.locks[resource] = &resourceLock{
			kind:    kind,
			holders: map[string]string{holderID: taskID},
		}
		return true
	}

	if kind == LockShared && lock.kind == LockShared {
		lock.holders[holderID] = taskID
		return true
	}

	return false
}

// Release removes the holder from the resource's lock. When the last
// holder is gone the lock record is deleted.
func (m *ResourceLockManager) Release(resource, holderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, exists := m.locks[resource]
	if !exists {
		return
	}

	delete(lock.holders, holderID)
	if len(lock.holders) == 0 {
		delete(m.locks, resource)
	}
}

// Holders returns the agent IDs currently holding the resource's lock.
// Returns nil if the resource is unlocked.
func (m *ResourceLockManager) Holders(resource string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, exists := m.locks[resource]
	if !exists {
		return nil
	}

	holders := make([]string, 0, len(lock.holders))
	for id := range lock.holders {
		holders = append(holders, id)
	}
	sort.Strings(holders)
	return holders
}

// ClearHolderLocks force-releases every lock the holder owns and
// returns the released resource keys. Used when an agent fails or is
// stopped, so a dead holder cannot starve the rest of the pool.
func (m *ResourceLockManager) ClearHolderLocks(holderID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cleared []string
	for resource, lock := range m.locks {
		if _, held := lock.holders[holderID]; !held {
			continue
		}
		delete(lock.holders, holderID)
		if len(lock.holders) == 0 {
			delete(m.locks, resource)
		}
		cleared = append(cleared, resource)
	}
	sort.Strings(cleared)
	return cleared
}

// Snapshot returns a read-only view of every held lock, sorted by resource.
func (m *ResourceLockManager) Snapshot() []LockInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]LockInfo, 0, len(m.locks))
	for resource, lock := range m.locks {
		holders := make([]string, 0, len(lock.holders))
		for id := range lock.holders {
			holders = append(holders, id)
		}
		sort.Strings(holders)
		taskIDs := make([]string, len(holders))
		for i, h := range holders {
			taskIDs[i] = lock.holders[h]
		}
		infos = append(infos, LockInfo{
			Resource: resource,
			Kind:     lock.kind,
			Holders:  holders,
			TaskIDs:  taskIDs,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Resource < infos[j].Resource })
	return infos
}

// AcquireAll attempts to take every requested lock for one task,
// in sorted resource order to bound livelock between competing tasks.
// All-or-nothing: on the first refusal every lock already taken for
// this call is released and the blocking holders are returned.
func (m *ResourceLockManager) AcquireAll(requests []LockRequest, holderID, taskID string) (bool, []string) {
	// Sorted copy keeps acquisition order deterministic across callers.
	sorted := make([]LockRequest, len(requests))
	copy(sorted, requests)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Resource < sorted[j].Resource })

	acquired := make([]string, 0, len(sorted))
	for _, req := range sorted {
		if m.Acquire(req.Resource, holderID, taskID, req.Kind) {
			acquired = append(acquired, req.Resource)
			continue
		}

		blockers := m.Holders(req.Resource)
		for _, resource := range acquired {
			m.Release(resource, holderID)
		}
		return false, blockers
	}
	return true, nil
}

// ReleaseAll releases the given resources for the holder.
func (m *ResourceLockManager) ReleaseAll(resources []string, holderID string) {
	for _, resource := range resources {
		m.Release(resource, holderID)
	}
}
