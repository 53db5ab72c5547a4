package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Milestone groups work items into a sequential delivery phase.
// Phases execute in ascending order; items within a phase run in parallel.
type Milestone struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Phase          int        `json:"phase"`
	Status         ItemStatus `json:"status"`
	ItemIDs        []string   `json:"item_ids"`
	EstimatedUsage int64      `json:"estimated_usage"`
	CreatedAt      time.Time  `json:"created_at"`
}

const milestoneColumns = `id, name, description, phase, status, item_ids, estimated_usage, created_at`

// CreateMilestone creates a new milestone.
func (db *DB) CreateMilestone(m *Milestone) error {
	if m.Status == "" {
		m.Status = ItemPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	itemIDs, _ := json.Marshal(m.ItemIDs)

	_, err := db.Exec(`
		INSERT INTO milestones (`+milestoneColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Description, m.Phase, string(m.Status), string(itemIDs),
		m.EstimatedUsage, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("create milestone: %w", err)
	}
	return nil
}

// GetMilestone retrieves a milestone by ID.
func (db *DB) GetMilestone(id string) (*Milestone, error) {
	row := db.QueryRow(`
		SELECT `+milestoneColumns+`
		FROM milestones WHERE id = ?
	`, id)

	m, err := scanMilestone(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get milestone: %w", err)
	}
	return m, nil
}

// SetMilestoneStatus transitions a milestone to the given status.
func (db *DB) SetMilestoneStatus(id string, status ItemStatus) error {
	_, err := db.Exec(`
		UPDATE milestones SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("set milestone status: %w", err)
	}
	return nil
}

// SetMilestoneItems records the work items decomposed from a milestone.
func (db *DB) SetMilestoneItems(id string, itemIDs []string) error {
	encoded, _ := json.Marshal(itemIDs)
	_, err := db.Exec(`
		UPDATE milestones SET item_ids = ? WHERE id = ?
	`, string(encoded), id)
	if err != nil {
		return fmt.Errorf("set milestone items: %w", err)
	}
	return nil
}

// ListMilestones lists all milestones in phase order.
func (db *DB) ListMilestones() ([]Milestone, error) {
	rows, err := db.Query(`
		SELECT ` + milestoneColumns + `
		FROM milestones ORDER BY phase, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []Milestone
	for rows.Next() {
		m, err := scanMilestone(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, *m)
	}
	return milestones, nil
}

func scanMilestone(scan func(dest ...any) error) (*Milestone, error) {
	var m Milestone
	var description, itemIDs sql.NullString
	var createdAt string
	err := scan(&m.ID, &m.Name, &description, &m.Phase, &m.Status, &itemIDs,
		&m.EstimatedUsage, &createdAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		m.Description = description.String
	}
	if itemIDs.Valid {
		json.Unmarshal([]byte(itemIDs.String), &m.ItemIDs)
	}
	m.CreatedAt, _ = parseTime(createdAt)
	return &m, nil
}
