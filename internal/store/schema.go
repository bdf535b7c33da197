package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the version written to new databases.
const SchemaVersion = 1

const schemaV1 = `
-- Named graph snapshots; document holds the JSON graph document
CREATE TABLE IF NOT EXISTS graphs (
    name TEXT PRIMARY KEY,
    document TEXT NOT NULL,
    nodes INTEGER NOT NULL DEFAULT 0,
    edges INTEGER NOT NULL DEFAULT 0,
    passthrough INTEGER NOT NULL DEFAULT 0,
    max_width INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Benchmark run history
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL DEFAULT '',
    dimensions INTEGER NOT NULL,
    actions INTEGER NOT NULL,
    max_width INTEGER NOT NULL,
    nodes_before INTEGER NOT NULL,
    nodes_after INTEGER NOT NULL,
    edges_before INTEGER NOT NULL,
    edges_after INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the tables on a fresh database. An existing database
// must pass PRAGMA integrity_check and carry a version this build understands.
func InitSchema(ctx context.Context, db *sql.DB) error {
	var version sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil || !version.Valid {
		// No version table yet.
		return createSchema(ctx, db)
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("opening graph store: %w", err)
	}
	if int(version.Int64) > SchemaVersion {
		return fmt.Errorf("graph store schema v%d is newer than supported v%d", version.Int64, SchemaVersion)
	}
	return nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, formatTime(time.Now())); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return tx.Commit()
}

// ValidateIntegrity returns an error unless PRAGMA integrity_check reports ok.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var problems []string
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("integrity check: %w", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
