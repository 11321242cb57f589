package persistence

import (
	"context"
	"fmt"
)

// RecordOutcome appends a task outcome to the log.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, outcome TaskOutcome) error {
	success := 0
	if outcome.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_outcomes (task_id, task_type, agent_id, success, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, outcome.TaskID, outcome.TaskType, outcome.AgentID, success, outcome.Error, outcome.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record outcome for task %s: %w", outcome.TaskID, err)
	}
	return nil
}

// OutcomeStats aggregates logged outcomes for one task type.
func (s *SQLiteStore) OutcomeStats(ctx context.Context, taskType string) (OutcomeStats, error) {
	var stats OutcomeStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(success), 0),
		       COALESCE(AVG(duration_ms), 0)
		FROM task_outcomes
		WHERE task_type = ?
	`, taskType).Scan(&stats.Total, &stats.Succeeded, &stats.AvgDurationMs)
	if err != nil {
		return OutcomeStats{}, fmt.Errorf("failed to aggregate outcomes for %s: %w", taskType, err)
	}
	stats.Failed = stats.Total - stats.Succeeded
	return stats, nil
}

// Store saves a memory entry under key with an importance score.
// Re-storing a key replaces its value and importance.
func (s *SQLiteStore) Store(ctx context.Context, key, value string, importance float64) error {
	if key == "" {
		return fmt.Errorf("memory key must not be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (key, value, importance, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			importance = excluded.importance,
			updated_at = CURRENT_TIMESTAMP
	`, key, value, importance)
	if err != nil {
		return fmt.Errorf("failed to store memory %q: %w", key, err)
	}
	return nil
}

// Recall returns all memory entries whose key starts with prefix.
func (s *SQLiteStore) Recall(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM memories
		WHERE key LIKE ? || '%'
		ORDER BY importance DESC, key
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to recall memories with prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return out, nil
}
