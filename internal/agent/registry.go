package agent

import (
	"fmt"

	"github.com/r3e-network/AutoClaude-sub004/internal/hooks"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
)

// Type is the closed enumeration of agent variants.
type Type string

const (
	TypeConverter   Type = "converter"
	TypeValidator   Type = "validator"
	TypeOptimizer   Type = "optimizer"
	TypeDocumenter  Type = "documenter"
	TypeMonitor     Type = "monitor"
	TypeSpecializer Type = "specializer"
)

// Types lists every agent variant.
func Types() []Type {
	return []Type{TypeConverter, TypeValidator, TypeOptimizer, TypeDocumenter, TypeMonitor, TypeSpecializer}
}

// Deps are the external collaborators injected into agents.
type Deps struct {
	Store persistence.Store
	Hooks *hooks.Pipeline
}

// Factory builds an agent variant with a given ID.
type Factory func(id string, deps Deps) Agent

// registry is the static mapping from variant to factory. Variant
// selection happens by configuration at startup; there is no runtime
// reflection or dynamic loading.
var registry = map[Type]Factory{
	TypeConverter:   func(id string, deps Deps) Agent { return NewConverter(id, deps) },
	TypeValidator:   func(id string, deps Deps) Agent { return NewValidator(id, deps) },
	TypeOptimizer:   func(id string, deps Deps) Agent { return NewOptimizer(id, deps) },
	TypeDocumenter:  func(id string, deps Deps) Agent { return NewDocumenter(id, deps) },
	TypeMonitor:     func(id string, deps Deps) Agent { return NewMonitor(id, deps) },
	TypeSpecializer: func(id string, deps Deps) Agent { return NewSpecializer(id, deps) },
}

// New creates a single agent of the given variant.
func New(t Type, id string, deps Deps) (Agent, error) {
	factory, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("unknown agent type: %s", t)
	}
	return factory(id, deps), nil
}

// BuildEnabled constructs one agent per enabled variant, with IDs of
// the form "<type>-1". Unknown variant names are rejected.
func BuildEnabled(enabled []string, deps Deps) ([]Agent, error) {
	agents := make([]Agent, 0, len(enabled))
	for _, name := range enabled {
		a, err := New(Type(name), fmt.Sprintf("%s-1", name), deps)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}
