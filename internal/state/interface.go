// Package state provides SQLite-based state management for autonoma.
package state

import "io"

// WorkItemStore handles work-item persistence operations.
type WorkItemStore interface {
	CreateWorkItem(w *WorkItem) error
	GetWorkItem(id string) (*WorkItem, error)
	UpdateWorkItem(w *WorkItem) error
	SetWorkItemStatus(id string, status ItemStatus, executorID string) error
	IncrementRetry(id string) (int, error)
	AddWorkItemUsage(id string, delta int64) error
	ListWorkItems(status *ItemStatus) ([]WorkItem, error)
	ListWorkItemsByIDs(ids []string) ([]WorkItem, error)
}

// MilestoneStore handles milestone persistence operations.
type MilestoneStore interface {
	CreateMilestone(m *Milestone) error
	GetMilestone(id string) (*Milestone, error)
	SetMilestoneStatus(id string, status ItemStatus) error
	SetMilestoneItems(id string, itemIDs []string) error
	ListMilestones() ([]Milestone, error)
}

// ExecutorStore handles executor-record persistence operations.
type ExecutorStore interface {
	RegisterExecutor(e *Executor) error
	GetExecutor(id string) (*Executor, error)
	SetExecutorStatus(id string, status ExecutorStatus, itemID string) error
	AddExecutorUsage(id string, delta int64) error
	ListExecutors(status *ExecutorStatus) ([]Executor, error)
}

// LogStore handles durable run logs.
type LogStore interface {
	AppendLog(executorID, level, message string) error
	AppendLogEntry(e *LogEntry) error
	Logs(executorID string, limit int) ([]LogEntry, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for state persistence.
// This interface allows the pipeline to work with any state backend
// without depending on the concrete SQLite implementation.
// It composes focused sub-interfaces for better modularity.
type Store interface {
	io.Closer
	Migrator
	WorkItemStore
	MilestoneStore
	ExecutorStore
	LogStore
	Statistics() (*Stats, error)
	Reset() error
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store          = (*DB)(nil)
	_ Migrator       = (*DB)(nil)
	_ WorkItemStore  = (*DB)(nil)
	_ MilestoneStore = (*DB)(nil)
	_ ExecutorStore  = (*DB)(nil)
	_ LogStore       = (*DB)(nil)
)
