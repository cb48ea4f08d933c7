// Package sqlite provides the SQLite-backed implementations of the cleanup
// outbox and registry ports.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa: the reconciler reads and updates outbox rows while request handlers
// insert registry rows.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps the server trivially cross-compilable and Alpine-friendly.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. cleanup_outbox is the
// persisted contract between the outbox writer and the reconciler and must
// stay stable across releases; the remaining tables are ordinary local
// entity records.
const schema = `
CREATE TABLE IF NOT EXISTS cleanup_outbox (
    -- Same value as the originating ledger's operation id.
    operation_id    TEXT PRIMARY KEY,

    -- Human-readable subject (org or app name), for operator inspection.
    entity_name     TEXT NOT NULL,

    -- Which cleanup routine applies on replay.
    entity_kind     TEXT NOT NULL,

    -- Full JSON-serialised ledger snapshot.
    state           TEXT NOT NULL,

    -- RFC3339 stored as TEXT (SQLite idiom). Entries are retried oldest first.
    created_at      TEXT NOT NULL,

    attempts        INTEGER NOT NULL DEFAULT 0,
    last_attempt    TEXT
);

CREATE INDEX IF NOT EXISTS idx_cleanup_outbox_due
    ON cleanup_outbox(attempts, last_attempt, created_at);

CREATE TABLE IF NOT EXISTS organizations (
    name        TEXT PRIMARY KEY,
    created_by  TEXT NOT NULL,
    created_at  TEXT NOT NULL
);

-- Workspace names are derived from this table's rowid ("workspace<id>") so
-- they are unique across the store even when application names collide
-- between organizations.
CREATE TABLE IF NOT EXISTS workspace_names (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    organization_id TEXT NOT NULL,
    workspace_name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
    org_name        TEXT NOT NULL,
    name            TEXT NOT NULL,
    workspace_name  TEXT NOT NULL,
    created_by      TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    PRIMARY KEY (org_name, name)
);

CREATE TABLE IF NOT EXISTS releases (
    id              TEXT PRIMARY KEY,
    org_name        TEXT NOT NULL,
    app_name        TEXT NOT NULL,
    package_version INTEGER NOT NULL,
    config_version  TEXT NOT NULL,
    rollout_percent INTEGER NOT NULL DEFAULT 0,
    experiment_id   TEXT NOT NULL DEFAULT '',
    created_by      TEXT NOT NULL,
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_releases_app ON releases(org_name, app_name, created_at);
`

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
//
//	db, err := sqlite.Open("./data/airlift.db")
func Open(path string) (*sql.DB, error) {
	// The pure-Go driver takes _pragma query parameters. WAL enables
	// concurrent readers; busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return db, nil
}

// formatTime and parseTime implement the RFC3339-TEXT timestamp convention.
// Fixed-width UTC formatting keeps lexicographic and chronological order
// identical, which the outbox eligibility query relies on.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
