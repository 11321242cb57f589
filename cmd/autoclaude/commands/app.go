package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/r3e-network/AutoClaude-sub004/internal/agent"
	"github.com/r3e-network/AutoClaude-sub004/internal/config"
	"github.com/r3e-network/AutoClaude-sub004/internal/coordinator"
	"github.com/r3e-network/AutoClaude-sub004/internal/events"
	"github.com/r3e-network/AutoClaude-sub004/internal/hooks"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
)

// app bundles the wired pipeline for a CLI invocation.
type app struct {
	cfg      *config.PipelineConfig
	store    persistence.Store
	pipeline *hooks.Pipeline
	bus      *events.EventBus
	coord    *coordinator.Coordinator
}

// loadConfig resolves configuration from the conventional paths, or
// from --config when given.
func loadConfig() (*config.PipelineConfig, error) {
	if configPath != "" {
		return config.Load("", configPath)
	}
	homeDir, err := os.UserHomeDir()
	globalPath := ""
	if err == nil {
		globalPath = filepath.Join(homeDir, ".autoclaude", "config.json")
	}
	return config.Load(globalPath, filepath.Join(".autoclaude", "config.json"))
}

// buildApp wires store, hooks, agents and coordinator from config and
// starts the coordinator.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var store persistence.Store
	if cfg.Persistence.InMemory {
		store, err = persistence.NewMemoryStore(ctx)
	} else {
		store, err = persistence.NewSQLiteStore(ctx, cfg.Persistence.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening memory store: %w", err)
	}

	pipeline := hooks.NewPipeline()
	for _, h := range hooks.DefaultHooks(store) {
		if hc, ok := cfg.Hooks[h.ID]; ok {
			h.Enabled = hc.Enabled
			if hc.TimeoutMs > 0 {
				h.Timeout = time.Duration(hc.TimeoutMs) * time.Millisecond
			}
		}
		if err := pipeline.Register(h); err != nil {
			store.Close()
			return nil, err
		}
	}

	agents, err := agent.BuildEnabled(cfg.EnabledAgents(), agent.Deps{
		Store: store,
		Hooks: pipeline,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	bus := events.NewEventBus()
	coord := coordinator.New(coordinator.Options{
		MaxConcurrent: cfg.Coordinator.MaxConcurrent,
		MaxRetries:    cfg.Coordinator.MaxRetries,
		Strategy:      cfg.Coordinator.Strategy,
		Recovery:      coordinator.RecoveryMode(cfg.Coordinator.Recovery),
	}, agents, bus, store)

	if err := coord.Start(ctx); err != nil {
		bus.Close()
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, pipeline: pipeline, bus: bus, coord: coord}, nil
}

func (a *app) shutdown() {
	a.coord.StopAll()
	a.bus.Close()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing store: %v\n", err)
	}
}
