package state

import "testing"

func TestCheckForInterrupted_CleanStore(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	info, err := rm.CheckForInterrupted()
	if err != nil {
		t.Fatalf("CheckForInterrupted failed: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil on clean store, got %+v", info)
	}
}

func TestCheckForInterrupted_FindsStaleWork(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	db.CreateWorkItem(&WorkItem{ID: "w1", Description: "work"})
	db.SetWorkItemStatus("w1", ItemInProgress, "exec-1")
	db.RegisterExecutor(&Executor{ID: "exec-1", Kind: "implementer", Status: ExecutorRunning, CurrentItem: "w1"})

	info, err := rm.CheckForInterrupted()
	if err != nil {
		t.Fatalf("CheckForInterrupted failed: %v", err)
	}
	if info == nil {
		t.Fatal("expected interrupted run info, got nil")
	}
	if info.InProgressItems != 1 {
		t.Errorf("in-progress items = %d, want 1", info.InProgressItems)
	}
	if info.RunningExecutors != 1 {
		t.Errorf("running executors = %d, want 1", info.RunningExecutors)
	}
}

func TestCleanupStaleStates(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	db.CreateWorkItem(&WorkItem{ID: "w1", Description: "interrupted"})
	db.SetWorkItemStatus("w1", ItemInProgress, "exec-1")
	db.AddWorkItemUsage("w1", 400)
	db.IncrementRetry("w1")

	db.CreateWorkItem(&WorkItem{ID: "w2", Description: "finished"})
	db.SetWorkItemStatus("w2", ItemMerged, "")

	db.RegisterExecutor(&Executor{ID: "exec-1", Kind: "implementer", Status: ExecutorRunning, CurrentItem: "w1"})
	db.RegisterExecutor(&Executor{ID: "exec-2", Kind: "implementer", Status: ExecutorTerminated})

	count, err := rm.CleanupStaleStates()
	if err != nil {
		t.Fatalf("CleanupStaleStates failed: %v", err)
	}
	if count != 2 {
		t.Errorf("repaired = %d, want 2", count)
	}

	// The interrupted item is runnable again with its assignment cleared,
	// but keeps its retry count and usage.
	w1, _ := db.GetWorkItem("w1")
	if w1.Status != ItemPending {
		t.Errorf("w1 status = %q, want PENDING", w1.Status)
	}
	if w1.AssignedExecutor != "" {
		t.Errorf("w1 assigned executor = %q, want empty", w1.AssignedExecutor)
	}
	if w1.RetryCount != 1 {
		t.Errorf("w1 retry count = %d, want 1", w1.RetryCount)
	}
	if w1.ResourceUsage != 400 {
		t.Errorf("w1 resource usage = %d, want 400", w1.ResourceUsage)
	}

	// Terminal work and terminated executors are untouched.
	w2, _ := db.GetWorkItem("w2")
	if w2.Status != ItemMerged {
		t.Errorf("w2 status = %q, want MERGED", w2.Status)
	}
	e2, _ := db.GetExecutor("exec-2")
	if e2.Status != ExecutorTerminated {
		t.Errorf("exec-2 status = %q, want TERMINATED", e2.Status)
	}

	e1, _ := db.GetExecutor("exec-1")
	if e1.Status != ExecutorIdle {
		t.Errorf("exec-1 status = %q, want IDLE", e1.Status)
	}
	if e1.CurrentItem != "" {
		t.Errorf("exec-1 current item = %q, want empty", e1.CurrentItem)
	}
}

func TestCleanupStaleStates_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	db.CreateWorkItem(&WorkItem{ID: "w1", Description: "interrupted"})
	db.SetWorkItemStatus("w1", ItemInProgress, "exec-1")
	db.RegisterExecutor(&Executor{ID: "exec-1", Kind: "implementer", Status: ExecutorRunning})

	first, err := rm.CleanupStaleStates()
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if first != 2 {
		t.Errorf("first sweep repaired = %d, want 2", first)
	}

	second, err := rm.CleanupStaleStates()
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second != 0 {
		t.Errorf("second sweep repaired = %d, want 0", second)
	}
}
