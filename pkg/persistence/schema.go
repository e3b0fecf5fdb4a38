package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion defines the current schema version for migration support.
const CurrentSchemaVersion = 2

func initializeSchemaWithMigrations(ctx context.Context, db *sql.DB) error {
	current, err := GetSchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	if current == 0 {
		if err := createSchema(ctx, db); err != nil {
			return err
		}
		return setSchemaVersion(ctx, db, CurrentSchemaVersion)
	}
	for version := current + 1; version <= CurrentSchemaVersion; version++ {
		if err := runMigration(ctx, db, version); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", version, err)
		}
		if err := setSchemaVersion(ctx, db, version); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", version, err)
		}
	}
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, version int) error {
	switch version {
	case 2:
		// task_results gained the coder's summary
		_, err := db.ExecContext(ctx, "ALTER TABLE task_results ADD COLUMN summary TEXT NOT NULL DEFAULT ''")
		return err
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project_name TEXT NOT NULL,
			prompt TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			step INTEGER NOT NULL,
			status TEXT NOT NULL,
			state_json TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS task_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			filepath TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('succeeded','failed')),
			error TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			tool_calls INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS review_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			filepath TEXT NOT NULL,
			quality_score INTEGER NOT NULL CHECK (quality_score BETWEEN 0 AND 100),
			approved INTEGER NOT NULL,
			issues_json TEXT NOT NULL,
			suggestions_json TEXT NOT NULL,
			PRIMARY KEY (run_id, filepath)
		)`,
		`CREATE TABLE IF NOT EXISTS test_plans (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			filepath TEXT NOT NULL,
			test_framework TEXT NOT NULL,
			test_file TEXT NOT NULL,
			cases_json TEXT NOT NULL,
			PRIMARY KEY (run_id, filepath)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_name, started_at)",
		"CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id, id)",
	}
	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func setSchemaVersion(ctx context.Context, db *sql.DB, version int) error {
	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("database exec error: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the current schema version, 0 for a new database.
func GetSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("schema version scan error: %w", err)
	}
	return version, nil
}
