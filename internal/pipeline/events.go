// Package pipeline coordinates the delivery run: planning, decomposition,
// parallel execution, review, and merge of work items.
package pipeline

import "time"

// EventType identifies a pipeline lifecycle event.
type EventType string

const (
	EventPipelineStarted   EventType = "pipeline_started"
	EventPlanningStarted   EventType = "planning_started"
	EventPlanningCompleted EventType = "planning_completed"
	EventMilestoneStarted  EventType = "milestone_started"
	EventMilestoneMerged   EventType = "milestone_merged"
	EventItemQueued        EventType = "item_queued"
	EventItemStarted       EventType = "item_started"
	EventItemMerged        EventType = "item_merged"
	EventItemFailed        EventType = "item_failed"
	EventReviewStarted     EventType = "review_started"
	EventReviewCompleted   EventType = "review_completed"
	EventEscalation        EventType = "escalation"
	EventPipelineCompleted EventType = "pipeline_completed"
	EventPipelineFailed    EventType = "pipeline_failed"
	EventPipelinePaused    EventType = "pipeline_paused"
	EventPipelineResumed   EventType = "pipeline_resumed"
)

// Event is a pipeline lifecycle notification delivered to subscribers.
type Event struct {
	Type        EventType      `json:"type"`
	ItemID      string         `json:"item_id,omitempty"`
	MilestoneID string         `json:"milestone_id,omitempty"`
	ExecutorID  string         `json:"executor_id,omitempty"`
	Message     string         `json:"message,omitempty"`
	Err         error          `json:"-"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
