package state

import "testing"

func TestRegisterExecutor_UpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	e := &Executor{ID: "exec-1", Kind: "implementer", PID: 1234}
	if err := db.RegisterExecutor(e); err != nil {
		t.Fatalf("RegisterExecutor failed: %v", err)
	}

	// Registering the same ID again updates in place instead of erroring.
	e2 := &Executor{ID: "exec-1", Kind: "implementer", Status: ExecutorRunning, CurrentItem: "w1"}
	if err := db.RegisterExecutor(e2); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}

	executors, err := db.ListExecutors(nil)
	if err != nil {
		t.Fatalf("ListExecutors failed: %v", err)
	}
	if len(executors) != 1 {
		t.Fatalf("executors = %d, want 1", len(executors))
	}
	if executors[0].Status != ExecutorRunning {
		t.Errorf("status = %q, want %q", executors[0].Status, ExecutorRunning)
	}
	if executors[0].CurrentItem != "w1" {
		t.Errorf("current item = %q, want w1", executors[0].CurrentItem)
	}
}

func TestSetExecutorStatus(t *testing.T) {
	db := setupTestDB(t)

	if err := db.RegisterExecutor(&Executor{ID: "exec-1", Kind: "implementer"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := db.SetExecutorStatus("exec-1", ExecutorRunning, "w1"); err != nil {
		t.Fatalf("SetExecutorStatus failed: %v", err)
	}
	got, _ := db.GetExecutor("exec-1")
	if got.Status != ExecutorRunning || got.CurrentItem != "w1" {
		t.Errorf("got status=%q item=%q, want RUNNING/w1", got.Status, got.CurrentItem)
	}

	if err := db.SetExecutorStatus("exec-1", ExecutorIdle, ""); err != nil {
		t.Fatalf("SetExecutorStatus failed: %v", err)
	}
	got, _ = db.GetExecutor("exec-1")
	if got.Status != ExecutorIdle || got.CurrentItem != "" {
		t.Errorf("got status=%q item=%q, want IDLE/empty", got.Status, got.CurrentItem)
	}
}

func TestAddExecutorUsage_Accumulates(t *testing.T) {
	db := setupTestDB(t)

	if err := db.RegisterExecutor(&Executor{ID: "exec-1", Kind: "implementer"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	db.AddExecutorUsage("exec-1", 500)
	db.AddExecutorUsage("exec-1", 500)

	got, _ := db.GetExecutor("exec-1")
	if got.ResourceUsage != 1000 {
		t.Errorf("resource usage = %d, want 1000", got.ResourceUsage)
	}
}

func TestGetExecutor_NotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetExecutor("missing")
	if err != nil {
		t.Fatalf("GetExecutor failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing executor, got %+v", got)
	}
}
