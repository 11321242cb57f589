package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// TaskOutcome records the terminal result of one task execution.
type TaskOutcome struct {
	TaskID   string
	TaskType string
	AgentID  string
	Success  bool
	Error    string
	Duration time.Duration
	At       time.Time
}

// OutcomeStats aggregates prior outcomes for a task type.
type OutcomeStats struct {
	Total         int
	Succeeded     int
	Failed        int
	AvgDurationMs float64
}

// SuccessRate returns the fraction of succeeded outcomes, 0 when empty.
func (s OutcomeStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total)
}

// Store is the external persistence collaborator: a learning/memory
// surface keyed by string plus a task-outcome log. The coordinator and
// agents depend only on this interface.
type Store interface {
	// Store saves a memory entry under key with an importance score.
	Store(ctx context.Context, key, value string, importance float64) error

	// Recall returns all memory entries whose key starts with prefix,
	// most important first.
	Recall(ctx context.Context, prefix string) (map[string]string, error)

	// RecordOutcome appends a task outcome to the log.
	RecordOutcome(ctx context.Context, outcome TaskOutcome) error

	// OutcomeStats aggregates logged outcomes for one task type.
	OutcomeStats(ctx context.Context, taskType string) (OutcomeStats, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode and a busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Uses a shared cache so multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := "file::memory:?mode=memory&cache=shared"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	// A single connection keeps the shared-cache in-memory DB alive.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NopStore discards everything. Used when persistence is disabled.
type NopStore struct{}

func (NopStore) Store(context.Context, string, string, float64) error { return nil }
func (NopStore) Recall(context.Context, string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (NopStore) RecordOutcome(context.Context, TaskOutcome) error { return nil }
func (NopStore) OutcomeStats(context.Context, string) (OutcomeStats, error) {
	return OutcomeStats{}, nil
}
func (NopStore) Close() error { return nil }
