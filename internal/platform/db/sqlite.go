package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// sqliteSchema keeps the column names of the first records server so that
// database files it created can be opened unchanged.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS patients (
    id         TEXT PRIMARY KEY,
    name       TEXT,
    age        INTEGER,
    gender     TEXT,
    bloodType  TEXT,
    email      TEXT,
    phone      TEXT,
    address    TEXT,
    lastVisit  TEXT,
    status     TEXT,
    comments   TEXT,
    tests      TEXT,
    archived   INTEGER DEFAULT 0,
    deleted_at TEXT
);

CREATE TABLE IF NOT EXISTS records (
    id          TEXT PRIMARY KEY,
    patientId   TEXT,
    date        TEXT,
    doctor      TEXT,
    diagnosis   TEXT,
    notes       TEXT,
    comment     TEXT,
    medications TEXT,
    vitals      TEXT,
    archived    INTEGER DEFAULT 0,
    FOREIGN KEY (patientId) REFERENCES patients (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS attachments (
    id        TEXT PRIMARY KEY,
    patientId TEXT,
    name      TEXT,
    dataUrl   TEXT,
    FOREIGN KEY (patientId) REFERENCES patients (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_records_patient ON records (patientId);
CREATE INDEX IF NOT EXISTS idx_attachments_patient ON attachments (patientId);
`

// sqliteColumnUpgrades are columns added after the first schema version.
// Older files get them through ALTER TABLE; files that already have them
// report a duplicate column, which is ignored.
var sqliteColumnUpgrades = []struct {
	Table, Column, Type string
}{
	{"patients", "deleted_at", "TEXT"},
	{"records", "comment", "TEXT"},
	{"patients", "tests", "TEXT"},
}

// SQLiteDSN builds a modernc.org/sqlite data source name for path with
// foreign keys enabled. ":memory:" is accepted for a private in-memory db.
func SQLiteDSN(path string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	return "file:" + path + "?" + pragmas
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// brings its schema up to date.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from being split across connections.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if err := MigrateSQLite(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// MigrateSQLite applies the schema and column upgrades. It is idempotent.
func MigrateSQLite(ctx context.Context, sqlDB *sql.DB) error {
	if _, err := sqlDB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	for _, up := range sqliteColumnUpgrades {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", up.Table, up.Column, up.Type)
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("add column %s.%s: %w", up.Table, up.Column, err)
		}
	}
	return nil
}
