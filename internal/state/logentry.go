package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// LogEntry is a durable log line attached to the run, optionally scoped
// to a single executor. Entries are append-only.
type LogEntry struct {
	ID         int64             `json:"id"`
	ExecutorID string            `json:"executor_id"`
	Level      string            `json:"level"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

// AppendLog appends a log entry. An empty executorID records a
// pipeline-level entry.
func (db *DB) AppendLog(executorID, level, message string) error {
	return db.AppendLogEntry(&LogEntry{
		ExecutorID: executorID,
		Level:      level,
		Message:    message,
	})
}

// AppendLogEntry appends a log entry with metadata.
func (db *DB) AppendLogEntry(e *LogEntry) error {
	if e.Level == "" {
		e.Level = "INFO"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	meta, _ := json.Marshal(e.Metadata)

	_, err := db.Exec(`
		INSERT INTO logs (executor_id, level, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, nullIfEmpty(e.ExecutorID), e.Level, e.Message, string(meta), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// Logs returns the most recent entries, newest first. An empty executorID
// returns entries for the whole run; limit <= 0 means no limit.
func (db *DB) Logs(executorID string, limit int) ([]LogEntry, error) {
	query := `
		SELECT id, executor_id, level, message, metadata, created_at
		FROM logs`
	var args []any
	if executorID != "" {
		query += " WHERE executor_id = ?"
		args = append(args, executorID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var execID, meta sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &execID, &e.Level, &e.Message, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		if execID.Valid {
			e.ExecutorID = execID.String
		}
		if meta.Valid {
			json.Unmarshal([]byte(meta.String), &e.Metadata)
		}
		e.CreatedAt, _ = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, nil
}
