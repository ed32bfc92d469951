package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	files := fstest.MapFS{
		"001_init.sql":   {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
		"002_column.sql": {Data: []byte("ALTER TABLE things ADD COLUMN name TEXT;\nCREATE INDEX idx_things_name ON things (name);")},
	}
	manager := NewManager(NewFileScanner(files, "."), NewSQLExecutor(db, nil), nil)

	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if len(applied) != 2 || applied[0] != "001" || applied[1] != "002" {
		t.Fatalf("unexpected applied versions %v", applied)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO things (id, name) VALUES ('1', 'desk')"); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}

	again, err := manager.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no pending migrations, got %v", again)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestManager_DetectsModifiedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	executor := NewSQLExecutor(db, nil)

	original := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")}}
	if _, err := NewManager(NewFileScanner(original, "."), executor, nil).RunMigrations(ctx); err != nil {
		t.Fatalf("initial run: %v", err)
	}

	modified := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")}}
	_, err := NewManager(NewFileScanner(modified, "."), executor, nil).RunMigrations(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestManager_FailedMigrationIsNotRecorded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	executor := NewSQLExecutor(db, nil)
	files := fstest.MapFS{
		"001_init.sql":   {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE other (id TEXT);\nTHIS IS NOT SQL;")},
	}

	applied, err := NewManager(NewFileScanner(files, "."), executor, nil).RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected only 001 applied, got %v", applied)
	}

	records, err := executor.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions: %v", err)
	}
	if len(records) != 1 || records[0].Version != "001" {
		t.Fatalf("unexpected records %+v", records)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'other'").Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatal("expected failed migration to be rolled back")
	}
}
