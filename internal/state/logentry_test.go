package state

import "testing"

func TestLogs_FilterAndLimit(t *testing.T) {
	db := setupTestDB(t)

	db.AppendLog("exec-1", "INFO", "first")
	db.AppendLog("exec-2", "INFO", "other executor")
	db.AppendLog("exec-1", "ERROR", "second")
	db.AppendLog("", "INFO", "pipeline-level")

	all, err := db.Logs("", 0)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all entries = %d, want 4", len(all))
	}
	// Newest first.
	if all[0].Message != "pipeline-level" {
		t.Errorf("newest = %q, want pipeline-level", all[0].Message)
	}

	scoped, err := db.Logs("exec-1", 0)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("exec-1 entries = %d, want 2", len(scoped))
	}
	if scoped[0].Message != "second" || scoped[0].Level != "ERROR" {
		t.Errorf("newest exec-1 entry = %q/%q", scoped[0].Level, scoped[0].Message)
	}

	limited, err := db.Logs("", 2)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited entries = %d, want 2", len(limited))
	}
}

func TestAppendLogEntry_WithMetadata(t *testing.T) {
	db := setupTestDB(t)

	err := db.AppendLogEntry(&LogEntry{
		ExecutorID: "exec-1",
		Level:      "WARN",
		Message:    "retrying item",
		Metadata:   map[string]string{"item": "w1", "attempt": "2"},
	})
	if err != nil {
		t.Fatalf("AppendLogEntry failed: %v", err)
	}

	entries, _ := db.Logs("exec-1", 1)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Metadata["item"] != "w1" {
		t.Errorf("metadata = %v", entries[0].Metadata)
	}
}
