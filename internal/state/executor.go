package state

import (
	"database/sql"
	"fmt"
	"time"
)

// ExecutorStatus represents the status of an executor record.
type ExecutorStatus string

const (
	ExecutorIdle       ExecutorStatus = "IDLE"
	ExecutorRunning    ExecutorStatus = "RUNNING"
	ExecutorWaiting    ExecutorStatus = "WAITING"
	ExecutorError      ExecutorStatus = "ERROR"
	ExecutorTerminated ExecutorStatus = "TERMINATED"
)

// Executor is the durable record of a worker slot. Pool handles are
// in-memory; this row is what survives a crash.
type Executor struct {
	ID            string         `json:"id"`
	Kind          string         `json:"kind"`
	Status        ExecutorStatus `json:"status"`
	CurrentItem   string         `json:"current_item"`
	PID           int            `json:"pid"`
	ResourceUsage int64          `json:"resource_usage"`
	StartedAt     *time.Time     `json:"started_at"`
	LastActivity  *time.Time     `json:"last_activity"`
}

const executorColumns = `id, kind, status, current_item, pid, resource_usage, started_at, last_activity`

// RegisterExecutor inserts or refreshes an executor record.
// Re-registering the same ID is idempotent: the row is updated in place.
func (db *DB) RegisterExecutor(e *Executor) error {
	if e.Status == "" {
		e.Status = ExecutorIdle
	}
	now := time.Now()
	if e.StartedAt == nil {
		e.StartedAt = &now
	}
	e.LastActivity = &now

	_, err := db.Exec(`
		INSERT INTO executors (`+executorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			status = excluded.status,
			current_item = excluded.current_item,
			pid = excluded.pid,
			last_activity = excluded.last_activity
	`, e.ID, e.Kind, string(e.Status), nullIfEmpty(e.CurrentItem), e.PID,
		e.ResourceUsage, formatTime(*e.StartedAt), formatTime(*e.LastActivity))
	if err != nil {
		return fmt.Errorf("register executor: %w", err)
	}
	return nil
}

// GetExecutor retrieves an executor record by ID.
func (db *DB) GetExecutor(id string) (*Executor, error) {
	row := db.QueryRow(`
		SELECT `+executorColumns+`
		FROM executors WHERE id = ?
	`, id)

	e, err := scanExecutor(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get executor: %w", err)
	}
	return e, nil
}

// SetExecutorStatus transitions an executor record and updates its
// current item (empty clears it) and activity timestamp.
func (db *DB) SetExecutorStatus(id string, status ExecutorStatus, itemID string) error {
	_, err := db.Exec(`
		UPDATE executors SET status = ?, current_item = ?, last_activity = ?
		WHERE id = ?
	`, string(status), nullIfEmpty(itemID), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set executor status: %w", err)
	}
	return nil
}

// AddExecutorUsage adds delta to the executor's resource usage counter.
func (db *DB) AddExecutorUsage(id string, delta int64) error {
	_, err := db.Exec(`
		UPDATE executors SET resource_usage = resource_usage + ?, last_activity = ?
		WHERE id = ?
	`, delta, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("add executor usage: %w", err)
	}
	return nil
}

// ListExecutors lists all executor records, optionally filtered by status.
func (db *DB) ListExecutors(status *ExecutorStatus) ([]Executor, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT `+executorColumns+`
			FROM executors WHERE status = ?
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT ` + executorColumns + `
			FROM executors
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list executors: %w", err)
	}
	defer rows.Close()

	var executors []Executor
	for rows.Next() {
		e, err := scanExecutor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan executor: %w", err)
		}
		executors = append(executors, *e)
	}
	return executors, nil
}

func scanExecutor(scan func(dest ...any) error) (*Executor, error) {
	var e Executor
	var currentItem sql.NullString
	var pid sql.NullInt64
	var startedAt, lastActivity sql.NullString
	err := scan(&e.ID, &e.Kind, &e.Status, &currentItem, &pid, &e.ResourceUsage,
		&startedAt, &lastActivity)
	if err != nil {
		return nil, err
	}

	if currentItem.Valid {
		e.CurrentItem = currentItem.String
	}
	if pid.Valid {
		e.PID = int(pid.Int64)
	}
	e.StartedAt = parseNullableTime(startedAt)
	e.LastActivity = parseNullableTime(lastActivity)
	return &e, nil
}
