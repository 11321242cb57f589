package coordinator

import (
	"context"
	"log"
	"time"

	"github.com/r3e-network/AutoClaude-sub004/internal/agent"
	"github.com/r3e-network/AutoClaude-sub004/internal/events"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// dispatchLoop runs dispatch passes on every wake signal and on a
// periodic tick so tasks parked behind locks get re-examined.
func (c *Coordinator) dispatchLoop(ctx context.Context) {
	defer c.wg.Done()

	tick := time.NewTicker(c.opts.TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		case <-tick.C:
		}
		c.dispatchPass(ctx)
	}
}

// effectiveCap returns the concurrency cap for the current pass.
// Caller holds c.mu.
func (c *Coordinator) effectiveCap() int {
	switch c.opts.Strategy {
	case StrategySequential:
		return 1
	case StrategyAdaptive:
		// Back off to half capacity while failures dominate.
		if c.failed > c.completed && c.opts.MaxConcurrent > 1 {
			return (c.opts.MaxConcurrent + 1) / 2
		}
	}
	return c.opts.MaxConcurrent
}

// dispatchPass pops up to the available number of tasks and tries to
// place each on an agent. Tasks that cannot start yet go back to the
// front of their priority tier so they keep their turn.
func (c *Coordinator) dispatchPass(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	idle := 0
	for _, a := range c.agents {
		if _, busy := c.reserved[a.ID()]; busy {
			continue
		}
		if a.Status() == agent.StatusIdle {
			idle++
		}
	}
	limit := c.effectiveCap()
	if idle < limit {
		limit = idle
	}
	slots := limit - len(c.inFlight)
	if slots <= 0 {
		return
	}

	// Pop the head of the queue once per slot. Tasks that fail to
	// start are collected and pushed back afterwards, front-most
	// first, so a parked task cannot be re-popped inside one pass.
	var parked []*scheduler.Task
	started := 0
	for started < slots {
		task := c.queue.Pop()
		if task == nil {
			break
		}
		if c.tryStart(ctx, task) {
			started++
		} else {
			parked = append(parked, task)
		}
	}
	for i := len(parked) - 1; i >= 0; i-- {
		c.queue.PushFront(parked[i])
	}

	c.publish(events.TopicGeneral, events.QueueProgressEvent{
		Queued:    c.queue.Len(),
		InFlight:  len(c.inFlight),
		Completed: c.completed,
		Failed:    c.failed,
		Timestamp: time.Now(),
	})
}

// tryStart attempts to place the task on an idle capable agent and
// acquire its resource locks. Returns false when the task must stay
// queued. Caller holds c.mu.
func (c *Coordinator) tryStart(ctx context.Context, task *scheduler.Task) bool {
	// Tasks gated on failed dependencies can never run.
	if dead := c.failedDependency(task); dead != "" {
		c.failTaskLocked(task, "dependency "+dead+" failed", "", nil)
		return true // consumed, not parked
	}
	if !scheduler.DependenciesSatisfied(task, func(id string) (*scheduler.Task, bool) {
		t, ok := c.tasks[id]
		return t, ok
	}) {
		return false
	}

	a := c.selectAgent(task)
	if a == nil {
		if !c.anyCapableAgent(task) {
			log.Printf("[Coordinator] no capable agent for task %s (type=%s), leaving queued", task.ID, task.Type)
		}
		return false
	}

	requests := scheduler.ResourcesFor(task)
	ok, blockers := c.locks.AcquireAll(requests, a.ID(), task.ID)
	if !ok {
		c.watcher.RecordFailure(a.ID(), blockers)
		return false
	}
	c.watcher.RecordSuccess(a.ID())

	resources := make([]string, 0, len(requests))
	for _, r := range requests {
		resources = append(resources, r.Resource)
	}

	task.Status = scheduler.TaskAssigned
	task.AssignedAgent = a.ID()
	c.inFlight[task.ID] = task
	c.held[task.ID] = resources
	c.reserved[a.ID()] = task.ID

	taskCtx, cancel := context.WithCancel(ctx)
	c.cancels[task.ID] = cancel

	c.wg.Add(1)
	go c.runTask(taskCtx, a, task)
	return true
}

// failedDependency returns the ID of a terminally failed dependency,
// or empty. Caller holds c.mu.
func (c *Coordinator) failedDependency(task *scheduler.Task) string {
	for _, dep := range task.DependsOn {
		if t, ok := c.tasks[dep]; ok && t.Status == scheduler.TaskFailed {
			return dep
		}
	}
	return ""
}

// selectAgent picks the idle capable agent with the highest priority
// weight, skipping agents this task has been excluded from. Caller
// holds c.mu.
func (c *Coordinator) selectAgent(task *scheduler.Task) agent.Agent {
	var best agent.Agent
	for _, a := range c.agents {
		if _, busy := c.reserved[a.ID()]; busy {
			continue
		}
		if a.Status() != agent.StatusIdle || !a.CanHandle(task) {
			continue
		}
		if _, skip := c.excluded[task.ID][a.ID()]; skip {
			continue
		}
		if best == nil || a.PriorityWeight() > best.PriorityWeight() {
			best = a
		}
	}
	return best
}

// capableAgentRemains reports whether some agent can still take the
// task after its exclusions. Caller holds c.mu.
func (c *Coordinator) capableAgentRemains(task *scheduler.Task) bool {
	for _, a := range c.agents {
		if !a.CanHandle(task) {
			continue
		}
		if _, skip := c.excluded[task.ID][a.ID()]; skip {
			continue
		}
		return true
	}
	return false
}

// anyCapableAgent reports whether any pool agent, busy or not, can
// handle the task. Caller holds c.mu.
func (c *Coordinator) anyCapableAgent(task *scheduler.Task) bool {
	for _, a := range c.agents {
		if a.CanHandle(task) {
			return true
		}
	}
	return false
}

// runTask executes one task on its own goroutine and reports the
// outcome back to the coordinator.
func (c *Coordinator) runTask(ctx context.Context, a agent.Agent, task *scheduler.Task) {
	defer c.wg.Done()

	c.mu.Lock()
	task.Status = scheduler.TaskRunning
	task.StartedAt = time.Now()
	c.mu.Unlock()

	c.publish(events.TopicFor(string(task.Type)), events.TaskStartedEvent{
		ID:        task.ID,
		Type:      string(task.Type),
		AgentID:   a.ID(),
		Timestamp: time.Now(),
	})

	result := executeGuarded(ctx, a, task, c.breakers.Get(string(a.Type())))
	c.finishTask(a, task, result)
}

// finishTask releases the task's locks and routes the result through
// the recovery policy.
func (c *Coordinator) finishTask(a agent.Agent, task *scheduler.Task, result scheduler.TaskResult) {
	c.mu.Lock()

	if resources, ok := c.held[task.ID]; ok {
		c.locks.ReleaseAll(resources, a.ID())
		delete(c.held, task.ID)
	}
	if cancel, ok := c.cancels[task.ID]; ok {
		cancel()
		delete(c.cancels, task.ID)
	}
	delete(c.inFlight, task.ID)
	delete(c.reserved, a.ID())

	if result.Success {
		task.Status = scheduler.TaskCompleted
		task.Output = result.Output
		task.Error = ""
		task.CompletedAt = time.Now()
		c.completed++
		delete(c.excluded, task.ID)
		c.mu.Unlock()

		c.recordOutcome(task, a.ID(), result)
		c.publish(events.TopicFor(string(task.Type)), events.TaskOutcomeEvent{
			ID:        task.ID,
			Type:      string(task.Type),
			Success:   true,
			Output:    result.Output,
			AgentID:   a.ID(),
			Duration:  result.Duration,
			Timestamp: time.Now(),
		})
		c.poke()
		return
	}

	if c.stopped {
		c.failTaskLocked(task, result.Error, a.ID(), &result)
		c.mu.Unlock()
		return
	}

	switch c.opts.Recovery {
	case RecoveryAbort:
		c.failTaskLocked(task, result.Error, a.ID(), &result)
		c.mu.Unlock()

	case RecoveryReassign:
		if c.excluded[task.ID] == nil {
			c.excluded[task.ID] = make(map[string]struct{})
		}
		c.excluded[task.ID][a.ID()] = struct{}{}
		if !c.capableAgentRemains(task) {
			// Every capable agent has now failed this task; requeuing
			// it would leave it queued forever.
			c.failTaskLocked(task, "no capable agent remaining: "+result.Error, a.ID(), &result)
			c.mu.Unlock()
			return
		}
		c.retryLocked(task, a.ID(), result)

	default: // RecoveryRetry
		c.retryLocked(task, a.ID(), result)
	}
}

// retryLocked requeues a failed task with backoff, or fails it when
// the retry budget is spent. Caller holds c.mu; it is released here.
func (c *Coordinator) retryLocked(task *scheduler.Task, agentID string, result scheduler.TaskResult) {
	if task.RetryCount >= task.MaxRetries {
		c.failTaskLocked(task, result.Error, agentID, &result)
		c.mu.Unlock()
		return
	}

	task.RetryCount++
	task.Status = scheduler.TaskQueued
	task.AssignedAgent = ""
	task.Error = result.Error
	attempt := task.RetryCount
	delay := c.opts.Retry.delayFor(attempt)
	c.retryPending++
	c.mu.Unlock()

	log.Printf("[Coordinator] task %s failed on %s (%s), retry %d/%d in %s",
		task.ID, agentID, result.Error, attempt, task.MaxRetries, delay)
	c.publish(events.TopicFor(string(task.Type)), events.TaskRetriedEvent{
		ID:         task.ID,
		Type:       string(task.Type),
		RetryCount: attempt,
		MaxRetries: task.MaxRetries,
		Timestamp:  time.Now(),
	})

	time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.retryPending--
		if c.stopped {
			// StopAll fails retry-pending tasks eagerly; only fail
			// here if the timer won that race.
			if !task.Status.Terminal() {
				task.Status = scheduler.TaskFailed
				task.Error = "coordinator stopped"
				task.CompletedAt = time.Now()
				c.failed++
			}
			c.mu.Unlock()
			return
		}
		c.queue.PushFront(task)
		c.mu.Unlock()
		c.poke()
	})
}

// failTaskLocked marks the task terminally failed. Caller holds c.mu.
// result may be nil for tasks that never executed.
func (c *Coordinator) failTaskLocked(task *scheduler.Task, reason, agentID string, result *scheduler.TaskResult) {
	task.Status = scheduler.TaskFailed
	task.Error = reason
	task.CompletedAt = time.Now()
	c.failed++
	delete(c.excluded, task.ID)

	outcome := scheduler.TaskResult{TaskID: task.ID, Error: reason}
	if result != nil {
		outcome = *result
	}
	// Fire-and-forget side effects; the lock is held, so hand them
	// off to a goroutine.
	t, aid := task, agentID
	go func() {
		c.recordOutcome(t, aid, outcome)
		c.publish(events.TopicFor(string(t.Type)), events.TaskOutcomeEvent{
			ID:        t.ID,
			Type:      string(t.Type),
			Success:   false,
			AgentID:   aid,
			Duration:  outcome.Duration,
			Timestamp: time.Now(),
		})
		c.poke()
	}()
}

func (c *Coordinator) recordOutcome(task *scheduler.Task, agentID string, result scheduler.TaskResult) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.store.RecordOutcome(ctx, persistence.TaskOutcome{
		TaskID:   task.ID,
		TaskType: string(task.Type),
		AgentID:  agentID,
		Success:  result.Success,
		Error:    result.Error,
		Duration: result.Duration,
		At:       time.Now(),
	})
	if err != nil {
		log.Printf("[Coordinator] failed to record outcome for %s: %v", task.ID, err)
	}
}

// starvationLoop periodically checks the lock failure history for
// cycles and orphaned holders, and resolves what it finds.
func (c *Coordinator) starvationLoop(ctx context.Context) {
	defer c.wg.Done()

	tick := time.NewTicker(c.opts.StarvationInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			c.resolveStarvation()
		}
	}
}

// resolveStarvation breaks detected wait cycles by sacrificing the
// lowest-weight agent on each: its locks are force-cleared, its
// running task is cancelled so the normal retry path requeues it, and
// its failure history is reset. Orphaned locks held by agents that are
// no longer live are cleared the same way.
func (c *Coordinator) resolveStarvation() {
	for _, cycle := range c.watcher.Detect() {
		victim := c.pickVictim(cycle)
		if victim == "" {
			continue
		}
		c.evict(victim, "starvation cycle")
	}

	// One-sided starvation: waiters stuck behind a holder that is
	// stopped or errored will never unblock on their own.
	for _, holders := range c.watcher.Starving() {
		for _, holder := range holders {
			if c.agentLive(holder) {
				continue
			}
			c.evict(holder, "orphaned holder")
		}
	}
}

// pickVictim returns the cycle member with the lowest priority weight.
func (c *Coordinator) pickVictim(cycle []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	victim := ""
	lowest := 0
	for _, id := range cycle {
		for _, a := range c.agents {
			if a.ID() != id {
				continue
			}
			if victim == "" || a.PriorityWeight() < lowest {
				victim = id
				lowest = a.PriorityWeight()
			}
		}
	}
	return victim
}

func (c *Coordinator) agentLive(agentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.agents {
		if a.ID() == agentID {
			s := a.Status()
			return s == agent.StatusIdle || s == agent.StatusBusy
		}
	}
	return false
}

// evict force-clears an agent's locks, cancels its running task and
// resets its starvation history.
func (c *Coordinator) evict(agentID, reason string) {
	cleared := c.locks.ClearHolderLocks(agentID)
	c.watcher.Reset(agentID)

	c.mu.Lock()
	for id, t := range c.inFlight {
		if t.AssignedAgent != agentID {
			continue
		}
		if cancel, ok := c.cancels[id]; ok {
			cancel()
		}
	}
	c.mu.Unlock()

	if len(cleared) > 0 {
		log.Printf("[Coordinator] cleared %d locks held by %s (%s)", len(cleared), agentID, reason)
	}
	c.publish(events.TopicGeneral, events.LockClearedEvent{
		AgentID:   agentID,
		Resources: cleared,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	c.poke()
}
