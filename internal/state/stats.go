package state

import "fmt"

// Stats summarizes the state of a run.
type Stats struct {
	ItemsByStatus     map[ItemStatus]int     `json:"items_by_status"`
	ExecutorsByStatus map[ExecutorStatus]int `json:"executors_by_status"`
	TotalItems        int                    `json:"total_items"`
	// TotalResourceUsage is the larger of the item-side and executor-side
	// usage sums. The two sides count the same spend from different angles
	// and either may lag the other mid-run, so neither alone is reliable.
	TotalResourceUsage int64 `json:"total_resource_usage"`
}

// Statistics computes summary counts and the aggregate resource usage.
func (db *DB) Statistics() (*Stats, error) {
	stats := &Stats{
		ItemsByStatus:     make(map[ItemStatus]int),
		ExecutorsByStatus: make(map[ExecutorStatus]int),
	}

	rows, err := db.Query("SELECT status, COUNT(*) FROM work_items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count items by status: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item count: %w", err)
		}
		stats.ItemsByStatus[ItemStatus(status)] = count
		stats.TotalItems += count
	}
	rows.Close()

	rows, err = db.Query("SELECT status, COUNT(*) FROM executors GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count executors by status: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan executor count: %w", err)
		}
		stats.ExecutorsByStatus[ExecutorStatus(status)] = count
	}
	rows.Close()

	var itemUsage, executorUsage int64
	row := db.QueryRow("SELECT COALESCE(SUM(resource_usage), 0) FROM work_items")
	if err := row.Scan(&itemUsage); err != nil {
		return nil, fmt.Errorf("sum item usage: %w", err)
	}
	row = db.QueryRow("SELECT COALESCE(SUM(resource_usage), 0) FROM executors")
	if err := row.Scan(&executorUsage); err != nil {
		return nil, fmt.Errorf("sum executor usage: %w", err)
	}

	stats.TotalResourceUsage = itemUsage
	if executorUsage > itemUsage {
		stats.TotalResourceUsage = executorUsage
	}
	return stats, nil
}
