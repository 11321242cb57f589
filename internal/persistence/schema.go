package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		importance REAL NOT NULL DEFAULT 0.5,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance);

	CREATE TABLE IF NOT EXISTS task_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		task_type TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_task_outcomes_type ON task_outcomes(task_type);
	CREATE INDEX IF NOT EXISTS idx_task_outcomes_task ON task_outcomes(task_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
