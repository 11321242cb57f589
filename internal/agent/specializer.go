package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// Specializer handles domain-specific conversion passes that the
// general converter stays away from. The domain comes from the task's
// options; each domain carries its own rewrite table.
type Specializer struct {
	base
	store persistence.Store
}

// NewSpecializer creates the specializer agent.
func NewSpecializer(id string, deps Deps) *Specializer {
	return &Specializer{
		base: newBase(id, TypeSpecializer, "Domain-specific converter", 7,
			[]scheduler.Capability{scheduler.CapSpecialized, scheduler.CapConversion},
			[]scheduler.TaskType{scheduler.TypeSpecialize}),
		store: deps.Store,
	}
}

// domainTables maps a domain name to its rewrite rules.
var domainTables = map[string][]struct{ from, to string }{
	"smart-contract": {
		{"UInt160", "H160"},
		{"UInt256", "H256"},
		{"BigInteger", "num_bigint::BigInt"},
		{"Runtime.Notify", "runtime::notify"},
		{"Storage.Put", "storage::put"},
		{"Storage.Get", "storage::get"},
	},
	"crypto": {
		{"SHA256.Create()", "Sha256::new()"},
		{"ComputeHash", "finalize"},
		{"ECDsa", "k256::ecdsa"},
	},
	"serialization": {
		{"JsonConvert.SerializeObject", "serde_json::to_string"},
		{"JsonConvert.DeserializeObject", "serde_json::from_str"},
		{"BinaryWriter", "byteorder::WriteBytesExt"},
	},
}

// Execute applies the rewrite table for the task's declared domain.
func (s *Specializer) Execute(ctx context.Context, task *scheduler.Task) scheduler.TaskResult {
	return s.run(task, func() scheduler.TaskResult {
		domain := task.Payload.Options["domain"]
		if domain == "" {
			return scheduler.TaskResult{Success: false, Error: "specialize task requires a domain option"}
		}
		table, ok := domainTables[domain]
		if !ok {
			return scheduler.TaskResult{Success: false, Error: fmt.Sprintf("unknown specialization domain %q", domain)}
		}

		content := task.Payload.Source
		applied := 0
		for _, rule := range table {
			count := strings.Count(content, rule.from)
			if count == 0 {
				continue
			}
			content = strings.ReplaceAll(content, rule.from, rule.to)
			applied += count
		}

		if s.store != nil {
			key := fmt.Sprintf("specializer:%s:%s", domain, task.Payload.File)
			_ = s.store.Store(ctx, key, fmt.Sprintf("%d rewrites", applied), 0.5)
		}

		return scheduler.TaskResult{Success: true, Output: content}
	})
}
