package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/r3e-network/AutoClaude-sub004/internal/agent"
	"github.com/r3e-network/AutoClaude-sub004/internal/events"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Coordination strategies. Sequential caps concurrency at one task,
// parallel uses the configured cap, adaptive halves the cap while the
// recent failure rate is high.
const (
	StrategySequential = "sequential"
	StrategyParallel   = "parallel"
	StrategyAdaptive   = "adaptive"
)

// RecoveryMode selects what happens when a task execution fails.
type RecoveryMode string

const (
	// RecoveryRetry requeues the failed task at the front of its
	// priority tier until its retry budget is exhausted.
	RecoveryRetry RecoveryMode = "retry"

	// RecoveryReassign retries like RecoveryRetry but excludes the
	// agent that failed, so the next-best capable agent gets a shot.
	RecoveryReassign RecoveryMode = "reassign"

	// RecoveryAbort fails the task on the first error.
	RecoveryAbort RecoveryMode = "abort"
)

// ErrNotInitialized is returned by Submit before Start has run.
var ErrNotInitialized = errors.New("coordinator not initialized")

// ErrStopped is returned by Submit after StopAll.
var ErrStopped = errors.New("coordinator stopped")

// Options configures a Coordinator.
type Options struct {
	MaxConcurrent int           // Max tasks in flight (default 3)
	MaxRetries    int           // Default retry budget per task (default 2)
	Strategy      string        // sequential, parallel or adaptive (default parallel)
	Recovery      RecoveryMode  // Failure handling mode (default retry)
	Retry         RetryConfig   // Backoff between retry attempts
	TickInterval  time.Duration // Periodic dispatch interval (default 500ms)

	// Starvation detection knobs, passed to the lock cycle detector.
	StarvationWindow    time.Duration // Sliding window (default 30s)
	StarvationThreshold int           // Failed acquires per edge (default 3)
	StarvationInterval  time.Duration // Check interval (default 5s)
}

func (o *Options) applyDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 3
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	if o.Strategy == "" {
		o.Strategy = StrategyParallel
	}
	if o.Recovery == "" {
		o.Recovery = RecoveryRetry
	}
	if o.Retry == (RetryConfig{}) {
		o.Retry = DefaultRetryConfig()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 500 * time.Millisecond
	}
	if o.StarvationInterval <= 0 {
		o.StarvationInterval = 5 * time.Second
	}
}

// Coordinator owns the task queue, the agent pool and the resource
// lock table, and drives tasks from submission to a terminal state.
// All bookkeeping happens under c.mu; agent execution happens on
// per-task goroutines that report back through finishTask.
type Coordinator struct {
	opts    Options
	agents  []agent.Agent
	locks   *scheduler.ResourceLockManager
	watcher *scheduler.LivelockDetector
	bus     *events.EventBus
	store   persistence.Store

	breakers *CircuitBreakerRegistry

	mu           sync.Mutex
	initialized  bool
	stopped      bool
	tasks        map[string]*scheduler.Task
	queue        *scheduler.Queue
	inFlight     map[string]*scheduler.Task
	held         map[string][]string            // taskID -> resources held
	cancels      map[string]context.CancelFunc  // taskID -> running-task cancel
	excluded     map[string]map[string]struct{} // taskID -> agents to skip
	reserved     map[string]string              // agentID -> taskID it is dispatched to
	completed    int
	failed       int
	retryPending int // retries waiting out their backoff delay

	wg     sync.WaitGroup
	wake   chan struct{}
	cancel context.CancelFunc
}

// New creates a coordinator over the given agent pool. The bus and
// store may not be nil; pass events.NewEventBus and persistence.NopStore
// when the caller has no use for them.
func New(opts Options, agents []agent.Agent, bus *events.EventBus, store persistence.Store) *Coordinator {
	opts.applyDefaults()
	return &Coordinator{
		opts:     opts,
		agents:   agents,
		locks:    scheduler.NewResourceLockManager(),
		watcher:  scheduler.NewLivelockDetector(opts.StarvationWindow, opts.StarvationThreshold),
		bus:      bus,
		store:    store,
		breakers: NewCircuitBreakerRegistry(),
		tasks:    make(map[string]*scheduler.Task),
		queue:    scheduler.NewQueue(),
		inFlight: make(map[string]*scheduler.Task),
		held:     make(map[string][]string),
		cancels:  make(map[string]context.CancelFunc),
		excluded: make(map[string]map[string]struct{}),
		reserved: make(map[string]string),
		wake:     make(chan struct{}, 1),
	}
}

// Start initializes every agent and starts the dispatch and starvation
// loops. An agent that fails to initialize is logged and left out of
// the pool; Start only fails when no agent initialized at all.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return errors.New("coordinator already started")
	}
	c.mu.Unlock()

	var ready []agent.Agent
	for _, a := range c.agents {
		if err := a.Initialize(ctx); err != nil {
			log.Printf("[Coordinator] agent %s failed to initialize: %v", a.ID(), err)
			continue
		}
		ready = append(ready, a)
	}
	if len(ready) == 0 {
		return errors.New("no agents initialized")
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.agents = ready
	c.cancel = cancel
	c.initialized = true
	c.stopped = false
	c.mu.Unlock()

	c.wg.Add(2)
	go c.dispatchLoop(runCtx)
	go c.starvationLoop(runCtx)

	log.Printf("[Coordinator] started with %d agents (strategy=%s, maxConcurrent=%d)",
		len(ready), c.opts.Strategy, c.opts.MaxConcurrent)
	return nil
}

// Submit validates and enqueues a task, returning its assigned ID.
// Submission is cheap and synchronous; execution is asynchronous.
func (c *Coordinator) Submit(task *scheduler.Task) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return "", ErrNotInitialized
	}
	if c.stopped {
		return "", ErrStopped
	}
	if err := task.Validate(); err != nil {
		return "", err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if _, exists := c.tasks[task.ID]; exists {
		return "", fmt.Errorf("duplicate task id %q", task.ID)
	}
	if task.MaxRetries <= 0 {
		task.MaxRetries = c.opts.MaxRetries
	}
	task.Status = scheduler.TaskQueued
	task.CreatedAt = time.Now()

	// Dependencies must reference known tasks and stay acyclic.
	c.tasks[task.ID] = task
	if err := scheduler.ValidateDependencies(c.tasks); err != nil {
		delete(c.tasks, task.ID)
		return "", err
	}

	c.queue.Push(task)
	c.publish(events.TopicFor(string(task.Type)), events.TaskQueuedEvent{
		ID:        task.ID,
		Type:      string(task.Type),
		Priority:  task.Priority,
		Timestamp: time.Now(),
	})
	c.poke()
	return task.ID, nil
}

// Status returns a snapshot of the task, or false if unknown.
func (c *Coordinator) Status(taskID string) (*scheduler.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[taskID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// QueueStatus reports queue depth and progress counters.
func (c *Coordinator) QueueStatus() (queued, inFlight, completed, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len(), len(c.inFlight), c.completed, c.failed
}

// AgentStatus returns a snapshot of every agent, ordered by descending
// priority weight then ID.
func (c *Coordinator) AgentStatus() []agent.Info {
	c.mu.Lock()
	pool := append([]agent.Agent(nil), c.agents...)
	c.mu.Unlock()

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].PriorityWeight() != pool[j].PriorityWeight() {
			return pool[i].PriorityWeight() > pool[j].PriorityWeight()
		}
		return pool[i].ID() < pool[j].ID()
	})
	infos := make([]agent.Info, 0, len(pool))
	for _, a := range pool {
		infos = append(infos, agent.Describe(a))
	}
	return infos
}

// Locks returns the current resource lock table.
func (c *Coordinator) Locks() []scheduler.LockInfo {
	return c.locks.Snapshot()
}

// StopAll stops every agent, drops all queued tasks, cancels in-flight
// work and force-releases every lock. It blocks until the dispatch
// loops and all task goroutines have exited.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	if !c.initialized || c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	dropped := c.queue.Clear()
	for _, t := range dropped {
		t.Status = scheduler.TaskFailed
		t.Error = "coordinator stopped"
		t.CompletedAt = time.Now()
		c.failed++
	}
	// Tasks waiting out a retry delay sit in neither the queue nor
	// inFlight; fail them now rather than when their timer fires.
	for _, t := range c.tasks {
		if t.Status != scheduler.TaskQueued {
			continue
		}
		t.Status = scheduler.TaskFailed
		t.Error = "coordinator stopped"
		t.CompletedAt = time.Now()
		c.failed++
	}
	for _, cancel := range c.cancels {
		cancel()
	}
	cancel := c.cancel
	agents := append([]agent.Agent(nil), c.agents...)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	for _, a := range agents {
		a.Stop()
		if cleared := c.locks.ClearHolderLocks(a.ID()); len(cleared) > 0 {
			c.publish(events.TopicGeneral, events.LockClearedEvent{
				AgentID:   a.ID(),
				Resources: cleared,
				Reason:    "shutdown",
				Timestamp: time.Now(),
			})
		}
	}
	log.Printf("[Coordinator] stopped, dropped %d queued tasks", len(dropped))
}

// Wait blocks until every known task has reached a terminal state or
// the context expires. Intended for batch runs and tests.
func (c *Coordinator) Wait(ctx context.Context) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		c.mu.Lock()
		done := c.queue.Len() == 0 && len(c.inFlight) == 0 && c.retryPending == 0
		c.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// poke nudges the dispatch loop without blocking.
func (c *Coordinator) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) publish(topic string, e events.Event) {
	if c.bus != nil {
		c.bus.Publish(topic, e)
	}
}
