package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ItemStatus represents the status of a work item.
type ItemStatus string

const (
	ItemPending    ItemStatus = "PENDING"
	ItemInProgress ItemStatus = "IN_PROGRESS"
	ItemReview     ItemStatus = "REVIEW"
	ItemMerged     ItemStatus = "MERGED"
	ItemFailed     ItemStatus = "FAILED"
	ItemBlocked    ItemStatus = "BLOCKED"
)

// IsTerminal reports whether the status is one a work item never leaves.
func (s ItemStatus) IsTerminal() bool {
	switch s {
	case ItemMerged, ItemFailed, ItemBlocked:
		return true
	}
	return false
}

// terminalStatuses is the SQL list used to guard status transitions.
const terminalStatuses = "'MERGED', 'FAILED', 'BLOCKED'"

// WorkItem represents a unit of work flowing through the pipeline.
type WorkItem struct {
	ID               string            `json:"id"`
	Description      string            `json:"description"`
	Status           ItemStatus        `json:"status"`
	AssignedExecutor string            `json:"assigned_executor"`
	RetryCount       int               `json:"retry_count"`
	ResourceUsage    int64             `json:"resource_usage"`
	ParentID         string            `json:"parent_id"`
	Dependencies     []string          `json:"dependencies"`
	Metadata         map[string]string `json:"metadata"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

const workItemColumns = `id, description, status, assigned_executor, retry_count, resource_usage,
	parent_id, dependencies, metadata, created_at, updated_at`

// CreateWorkItem creates a new work item.
func (db *DB) CreateWorkItem(w *WorkItem) error {
	if w.Status == "" {
		w.Status = ItemPending
	}
	now := time.Now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	deps, _ := json.Marshal(w.Dependencies)
	meta, _ := json.Marshal(w.Metadata)

	_, err := db.Exec(`
		INSERT INTO work_items (`+workItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.Description, string(w.Status), nullIfEmpty(w.AssignedExecutor), w.RetryCount,
		w.ResourceUsage, nullIfEmpty(w.ParentID), string(deps), string(meta),
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create work item: %w", err)
	}
	return nil
}

// GetWorkItem retrieves a work item by ID.
func (db *DB) GetWorkItem(id string) (*WorkItem, error) {
	row := db.QueryRow(`
		SELECT `+workItemColumns+`
		FROM work_items WHERE id = ?
	`, id)

	w, err := scanWorkItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item: %w", err)
	}
	return w, nil
}

// UpdateWorkItem updates a work item's descriptive fields.
// Status, retry count, and usage counters have dedicated operations.
func (db *DB) UpdateWorkItem(w *WorkItem) error {
	deps, _ := json.Marshal(w.Dependencies)
	meta, _ := json.Marshal(w.Metadata)

	_, err := db.Exec(`
		UPDATE work_items SET description = ?, parent_id = ?, dependencies = ?, metadata = ?,
			updated_at = ?
		WHERE id = ?
	`, w.Description, nullIfEmpty(w.ParentID), string(deps), string(meta),
		formatTime(time.Now()), w.ID)
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	return nil
}

// SetWorkItemStatus transitions a work item to the given status and records
// the executor it is assigned to (empty clears the assignment). Items already
// in a terminal status are left untouched.
func (db *DB) SetWorkItemStatus(id string, status ItemStatus, executorID string) error {
	_, err := db.Exec(`
		UPDATE work_items SET status = ?, assigned_executor = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (`+terminalStatuses+`)
	`, string(status), nullIfEmpty(executorID), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set work item status: %w", err)
	}
	return nil
}

// IncrementRetry adds one to the item's retry count and returns the new count.
// The increment is relative so concurrent updates never lose a retry.
func (db *DB) IncrementRetry(id string) (int, error) {
	_, err := db.Exec(`
		UPDATE work_items SET retry_count = retry_count + 1, updated_at = ?
		WHERE id = ?
	`, formatTime(time.Now()), id)
	if err != nil {
		return 0, fmt.Errorf("increment retry: %w", err)
	}

	var count int
	row := db.QueryRow("SELECT retry_count FROM work_items WHERE id = ?", id)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("read retry count: %w", err)
	}
	return count, nil
}

// AddWorkItemUsage adds delta to the item's resource usage counter.
func (db *DB) AddWorkItemUsage(id string, delta int64) error {
	_, err := db.Exec(`
		UPDATE work_items SET resource_usage = resource_usage + ?, updated_at = ?
		WHERE id = ?
	`, delta, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("add work item usage: %w", err)
	}
	return nil
}

// ListWorkItems lists all work items, optionally filtered by status.
func (db *DB) ListWorkItems(status *ItemStatus) ([]WorkItem, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT `+workItemColumns+`
			FROM work_items WHERE status = ? ORDER BY created_at
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT ` + workItemColumns + `
			FROM work_items ORDER BY created_at
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	return scanWorkItems(rows)
}

// ListWorkItemsByIDs retrieves the given work items, preserving input order.
// Unknown IDs are skipped.
func (db *DB) ListWorkItemsByIDs(ids []string) ([]WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.Query(`
		SELECT `+workItemColumns+`
		FROM work_items WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items by ids: %w", err)
	}
	defer rows.Close()

	items, err := scanWorkItems(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]WorkItem, len(items))
	for _, w := range items {
		byID[w.ID] = w
	}
	var ordered []WorkItem
	for _, id := range ids {
		if w, ok := byID[id]; ok {
			ordered = append(ordered, w)
		}
	}
	return ordered, nil
}

// scanWorkItem scans a single work item row.
func scanWorkItem(scan func(dest ...any) error) (*WorkItem, error) {
	var w WorkItem
	var createdAt, updatedAt string
	var assignedExecutor, parentID, deps, meta sql.NullString
	err := scan(&w.ID, &w.Description, &w.Status, &assignedExecutor, &w.RetryCount,
		&w.ResourceUsage, &parentID, &deps, &meta, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if assignedExecutor.Valid {
		w.AssignedExecutor = assignedExecutor.String
	}
	if parentID.Valid {
		w.ParentID = parentID.String
	}
	if deps.Valid {
		json.Unmarshal([]byte(deps.String), &w.Dependencies)
	}
	if meta.Valid {
		json.Unmarshal([]byte(meta.String), &w.Metadata)
	}
	w.CreatedAt, _ = parseTime(createdAt)
	w.UpdatedAt, _ = parseTime(updatedAt)
	return &w, nil
}

// scanWorkItems scans work item rows into a slice.
func scanWorkItems(rows *sql.Rows) ([]WorkItem, error) {
	var items []WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, *w)
	}
	return items, nil
}

// nullIfEmpty maps "" to NULL for optional text columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
