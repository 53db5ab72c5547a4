package state

import (
	"os"
	"path/filepath"
	"testing"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	// A second migration on an up-to-date schema is a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != 4 {
		t.Errorf("schema version = %d, want 4", version)
	}
}

func TestProjectDBPath(t *testing.T) {
	got := ProjectDBPath("/tmp/proj")
	want := filepath.Join("/tmp/proj", ".autonoma", "state.db")
	if got != want {
		t.Errorf("ProjectDBPath = %q, want %q", got, want)
	}
}

func TestReset(t *testing.T) {
	db := setupTestDB(t)

	if err := db.CreateWorkItem(&WorkItem{ID: "w1", Description: "work"}); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := db.RegisterExecutor(&Executor{ID: "e1", Kind: "implementer"}); err != nil {
		t.Fatalf("register executor: %v", err)
	}
	if err := db.AppendLog("e1", "INFO", "hello"); err != nil {
		t.Fatalf("append log: %v", err)
	}

	if err := db.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	items, err := db.ListWorkItems(nil)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items after reset, got %d", len(items))
	}

	executors, err := db.ListExecutors(nil)
	if err != nil {
		t.Fatalf("list executors: %v", err)
	}
	if len(executors) != 0 {
		t.Errorf("expected no executors after reset, got %d", len(executors))
	}

	// Schema survives a reset, so writes still work.
	if err := db.CreateWorkItem(&WorkItem{ID: "w2", Description: "more work"}); err != nil {
		t.Fatalf("create item after reset: %v", err)
	}
}
