package state

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// InterruptedRun contains information about an interrupted run detected on startup.
type InterruptedRun struct {
	InProgressItems  int
	RunningExecutors int
	OrphanedPIDs     []int
	LastActivity     time.Time
}

// RecoveryManager handles detection and cleanup of state left behind by a crash.
type RecoveryManager struct {
	db *DB
}

// NewRecoveryManager creates a new RecoveryManager with the given database.
func NewRecoveryManager(db *DB) *RecoveryManager {
	return &RecoveryManager{db: db}
}

// CheckForInterrupted detects work left in transient states by a previous
// process. Returns nil if the store is clean.
func (rm *RecoveryManager) CheckForInterrupted() (*InterruptedRun, error) {
	itemStatus := ItemInProgress
	items, err := rm.db.ListWorkItems(&itemStatus)
	if err != nil {
		return nil, fmt.Errorf("list in-progress items: %w", err)
	}

	execStatus := ExecutorRunning
	executors, err := rm.db.ListExecutors(&execStatus)
	if err != nil {
		return nil, fmt.Errorf("list running executors: %w", err)
	}

	if len(items) == 0 && len(executors) == 0 {
		return nil, nil
	}

	info := &InterruptedRun{
		InProgressItems:  len(items),
		RunningExecutors: len(executors),
	}
	for _, e := range executors {
		if e.PID > 0 && !isProcessAlive(e.PID) {
			info.OrphanedPIDs = append(info.OrphanedPIDs, e.PID)
		}
		if e.LastActivity != nil && e.LastActivity.After(info.LastActivity) {
			info.LastActivity = *e.LastActivity
		}
	}
	for _, w := range items {
		if w.UpdatedAt.After(info.LastActivity) {
			info.LastActivity = w.UpdatedAt
		}
	}
	return info, nil
}

// CleanupStaleStates returns interrupted work to a runnable state:
// RUNNING executors become IDLE and IN_PROGRESS items go back to PENDING
// with their executor assignment cleared. Retry counts and usage totals
// are untouched. Returns the number of records repaired. Safe to call on
// a clean store, and safe to call twice.
func (rm *RecoveryManager) CleanupStaleStates() (int64, error) {
	var total int64
	now := formatTime(time.Now())

	res, err := rm.db.Exec(`
		UPDATE executors SET status = ?, current_item = NULL, last_activity = ?
		WHERE status = ?
	`, string(ExecutorIdle), now, string(ExecutorRunning))
	if err != nil {
		return 0, fmt.Errorf("reset running executors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	total += n

	res, err = rm.db.Exec(`
		UPDATE work_items SET status = ?, assigned_executor = NULL, updated_at = ?
		WHERE status = ?
	`, string(ItemPending), now, string(ItemInProgress))
	if err != nil {
		return 0, fmt.Errorf("reset in-progress items: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	total += n

	return total, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Send signal 0 to check if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
