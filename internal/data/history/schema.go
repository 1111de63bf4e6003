package history

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the newest migration this package knows.
const SchemaVersion = 2

// migrations[i] upgrades the database to version i+1.
var migrations = [SchemaVersion]string{
	`
CREATE TABLE IF NOT EXISTS searches (
  id TEXT PRIMARY KEY,
  project_key TEXT NOT NULL DEFAULT 'default',
  ts_utc TEXT NOT NULL,
  path TEXT NOT NULL,
  byte_offset INTEGER NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL DEFAULT '',
  usage_count INTEGER NOT NULL DEFAULT 0,
  duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_searches_project_ts ON searches(project_key, ts_utc);
`,
	`
ALTER TABLE searches ADD COLUMN error TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS idx_searches_name ON searches(project_key, name);
`,
}

const versionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`

// EnsureSchema brings db up to SchemaVersion, one transaction per step.
// A database written by a newer build is rejected untouched.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(versionTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	for version := current + 1; version <= SchemaVersion; version++ {
		if err := migrate(db, version, migrations[version-1]); err != nil {
			return err
		}
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func migrate(db *sql.DB, version int, stmt string) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.Exec(stmt); err != nil {
		return fmt.Errorf("apply migration %d: %w", version, err)
	}
	if _, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}
	return nil
}
