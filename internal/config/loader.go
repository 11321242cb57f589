package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global
// config, defaults. Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*PipelineConfig, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.autoclaude/config.json
// Project: .autoclaude/config.json (relative to cwd)
func LoadDefault() (*PipelineConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".autoclaude", "config.json")
	projectPath := filepath.Join(".autoclaude", "config.json")

	return Load(globalPath, projectPath)
}

// mergeConfigFile reads a JSON config file and merges it into the base
// config. Missing files are silently skipped.
func mergeConfigFile(base *PipelineConfig, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded PipelineConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// Scalar coordinator fields override only when set.
	if loaded.Coordinator.MaxConcurrent > 0 {
		base.Coordinator.MaxConcurrent = loaded.Coordinator.MaxConcurrent
	}
	if loaded.Coordinator.MaxRetries > 0 {
		base.Coordinator.MaxRetries = loaded.Coordinator.MaxRetries
	}
	if loaded.Coordinator.Strategy != "" {
		base.Coordinator.Strategy = loaded.Coordinator.Strategy
	}
	if loaded.Coordinator.Recovery != "" {
		base.Coordinator.Recovery = loaded.Coordinator.Recovery
	}

	for key, a := range loaded.Agents {
		base.Agents[key] = a
	}
	for key, h := range loaded.Hooks {
		base.Hooks[key] = h
	}

	if loaded.Persistence.Path != "" {
		base.Persistence.Path = loaded.Persistence.Path
	}
	if loaded.Persistence.InMemory {
		base.Persistence.InMemory = true
	}

	return nil
}

func (c *PipelineConfig) validate() error {
	switch c.Coordinator.Strategy {
	case "sequential", "parallel", "adaptive":
	default:
		return fmt.Errorf("unknown coordination strategy %q", c.Coordinator.Strategy)
	}
	switch c.Coordinator.Recovery {
	case "retry", "reassign", "abort":
	default:
		return fmt.Errorf("unknown recovery mode %q", c.Coordinator.Recovery)
	}
	for name := range c.Agents {
		known := false
		for _, k := range agentOrder {
			if k == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown agent type %q", name)
		}
	}
	return nil
}
