package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS sweeps (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,  -- unix nanoseconds
    particles INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    samples INTEGER NOT NULL,
    dt REAL NOT NULL,
    seed INTEGER NOT NULL,
    backend TEXT NOT NULL,
    baseline_ns INTEGER NOT NULL,
    baseline_active_pct REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS sweep_rows (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sweep_id TEXT NOT NULL REFERENCES sweeps(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    sensitivity REAL NOT NULL,
    runtime_ns INTEGER NOT NULL,
    speedup REAL NOT NULL,
    rmse REAL NOT NULL,
    estimated_active_pct REAL NOT NULL,
    measured_active_pct REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sweep_rows_sweep ON sweep_rows(sweep_id);
CREATE INDEX IF NOT EXISTS idx_sweep_rows_sensitivity ON sweep_rows(sensitivity);
CREATE INDEX IF NOT EXISTS idx_sweeps_recorded ON sweeps(recorded_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the ledger tables on a fresh database and leaves an
// existing one untouched.
func InitSchema(ctx context.Context, db *sql.DB) error {
	exists, err := hasVersionTable(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to inspect ledger: %w", err)
	}
	if !exists {
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == 0 {
		// Table present but never stamped: an interrupted first open.
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}
	if version > SchemaVersion {
		return fmt.Errorf("ledger schema version %d is newer than supported %d", version, SchemaVersion)
	}
	return nil
}

func hasVersionTable(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}
