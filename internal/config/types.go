package config

// CoordinatorConfig tunes dispatch and recovery behavior.
type CoordinatorConfig struct {
	MaxConcurrent int    `json:"max_concurrent,omitempty"` // Max tasks in flight
	MaxRetries    int    `json:"max_retries,omitempty"`    // Default retry budget per task
	Strategy      string `json:"strategy,omitempty"`       // "sequential", "parallel" or "adaptive"
	Recovery      string `json:"recovery,omitempty"`       // "retry", "reassign" or "abort"
}

// AgentConfig enables an agent variant and tunes its selection weight.
type AgentConfig struct {
	Enabled bool `json:"enabled"`
	Weight  int  `json:"weight,omitempty"` // Selection weight override, 0 keeps the built-in weight
}

// HookConfig overrides a registered hook's runtime knobs.
type HookConfig struct {
	Enabled   bool `json:"enabled"`
	TimeoutMs int  `json:"timeout_ms,omitempty"` // Per-hook timeout override
}

// PersistenceConfig selects the memory store backing.
type PersistenceConfig struct {
	Path     string `json:"path,omitempty"` // SQLite database path
	InMemory bool   `json:"in_memory,omitempty"`
}

// PipelineConfig is the top-level configuration.
type PipelineConfig struct {
	Coordinator CoordinatorConfig      `json:"coordinator"`
	Agents      map[string]AgentConfig `json:"agents"`
	Hooks       map[string]HookConfig  `json:"hooks"`
	Persistence PersistenceConfig      `json:"persistence"`
}

// EnabledAgents returns the names of enabled agent variants.
func (c *PipelineConfig) EnabledAgents() []string {
	var out []string
	for _, name := range agentOrder {
		if a, ok := c.Agents[name]; ok && a.Enabled {
			out = append(out, name)
		}
	}
	return out
}

// agentOrder fixes a deterministic iteration order over the agents map.
var agentOrder = []string{
	"converter", "validator", "optimizer",
	"documenter", "monitor", "specializer",
}
