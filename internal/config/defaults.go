package config

// DefaultConfig returns the default configuration: every agent variant
// except the specializer enabled, the built-in hooks enabled, and a
// parallel coordinator with a small concurrency cap.
func DefaultConfig() *PipelineConfig {
	return &PipelineConfig{
		Coordinator: CoordinatorConfig{
			MaxConcurrent: 3,
			MaxRetries:    2,
			Strategy:      "parallel",
			Recovery:      "retry",
		},
		Agents: map[string]AgentConfig{
			"converter":   {Enabled: true},
			"validator":   {Enabled: true},
			"optimizer":   {Enabled: true},
			"documenter":  {Enabled: true},
			"monitor":     {Enabled: true},
			"specializer": {Enabled: false},
		},
		Hooks: map[string]HookConfig{
			"syntax-check":          {Enabled: true},
			"conversion-validation": {Enabled: true},
			"formatting":            {Enabled: true},
			"pattern-learning":      {Enabled: true},
		},
		Persistence: PersistenceConfig{
			Path: ".autoclaude/memory.db",
		},
	}
}
