package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func columnNames(t *testing.T, sqlDB *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := sqlDB.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		t.Fatalf("table_info %s: %v", table, err)
	}
	defer rows.Close()
	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatal(err)
		}
		cols[name] = true
	}
	return cols
}

func TestSQLiteDSN(t *testing.T) {
	if got := SQLiteDSN(":memory:"); got != "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Errorf("unexpected memory dsn %q", got)
	}
	if got := SQLiteDSN("server.db"); got != "file:server.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Errorf("unexpected file dsn %q", got)
	}
}

func TestOpenSQLite_CreatesSchema(t *testing.T) {
	sqlDB, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sqlDB.Close()

	for table, want := range map[string][]string{
		"patients":    {"id", "bloodType", "lastVisit", "comments", "tests", "archived", "deleted_at"},
		"records":     {"patientId", "comment", "medications", "vitals", "archived"},
		"attachments": {"patientId", "dataUrl"},
	} {
		cols := columnNames(t, sqlDB, table)
		for _, c := range want {
			if !cols[c] {
				t.Errorf("%s: missing column %s", table, c)
			}
		}
	}

	// Migrating again is a no-op.
	if err := MigrateSQLite(context.Background(), sqlDB); err != nil {
		t.Errorf("second MigrateSQLite: %v", err)
	}
}

func TestMigrateSQLite_UpgradesLegacyFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		t.Fatal(err)
	}
	_, err = legacy.ExecContext(ctx, `
		CREATE TABLE patients (id TEXT PRIMARY KEY, name TEXT, age INTEGER, gender TEXT, bloodType TEXT,
			email TEXT, phone TEXT, address TEXT, lastVisit TEXT, status TEXT, comments TEXT,
			archived INTEGER DEFAULT 0);
		CREATE TABLE records (id TEXT PRIMARY KEY, patientId TEXT, date TEXT, doctor TEXT,
			diagnosis TEXT, notes TEXT, medications TEXT, vitals TEXT, archived INTEGER DEFAULT 0);
		INSERT INTO patients (id, name) VALUES ('1', 'Sarah Jenkins');`)
	if err != nil {
		t.Fatalf("create legacy schema: %v", err)
	}
	legacy.Close()

	sqlDB, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite on legacy file: %v", err)
	}
	defer sqlDB.Close()

	if !columnNames(t, sqlDB, "patients")["deleted_at"] || !columnNames(t, sqlDB, "patients")["tests"] {
		t.Error("expected patients to gain deleted_at and tests")
	}
	if !columnNames(t, sqlDB, "records")["comment"] {
		t.Error("expected records to gain comment")
	}

	var name string
	if err := sqlDB.QueryRowContext(ctx, `SELECT name FROM patients WHERE id = '1'`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "Sarah Jenkins" {
		t.Errorf("expected existing row kept, got %q", name)
	}
}
