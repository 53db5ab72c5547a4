package pipeline

import (
	"context"

	"github.com/ShayCichocki/autonoma/internal/state"
)

// MilestonePlan is one milestone proposed by the Planner.
type MilestonePlan struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Phase          int    `json:"phase"`
	EstimatedUsage int64  `json:"estimated_usage"`
}

// PlanResult is the Planner's answer for a set of requirements.
// Valid=false rejects the requirements before any work starts.
type PlanResult struct {
	Milestones []MilestonePlan `json:"milestones"`
	Valid      bool            `json:"valid"`
	Reason     string          `json:"reason,omitempty"`
}

// ItemSpec is one work item proposed by the Decomposer. Dependencies
// reference other specs' IDs and are stored without validation.
type ItemSpec struct {
	ID           string            `json:"id"`
	Description  string            `json:"description"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ExecutionResult reports one execution attempt of a work item.
type ExecutionResult struct {
	Success      bool   `json:"success"`
	Output       string `json:"output,omitempty"`
	Reason       string `json:"reason,omitempty"`
	ResourceUsed int64  `json:"resource_used"`
}

// ReviewResult reports the review verdict for an executed work item.
// A rejection feeds the item back into the retry path.
type ReviewResult struct {
	Approved     bool   `json:"approved"`
	Feedback     string `json:"feedback,omitempty"`
	ResourceUsed int64  `json:"resource_used"`
}

// Planner turns free-form requirements into phased milestones.
type Planner interface {
	Plan(ctx context.Context, requirements string) (*PlanResult, error)
}

// Decomposer breaks a milestone into parallelizable work items.
type Decomposer interface {
	Decompose(ctx context.Context, m state.Milestone) ([]ItemSpec, error)
}

// Executor performs the work for a single item.
type Executor interface {
	Execute(ctx context.Context, item state.WorkItem) (*ExecutionResult, error)
}

// Reviewer judges an executed item's output before it may merge.
type Reviewer interface {
	Review(ctx context.Context, item state.WorkItem, output string) (*ReviewResult, error)
}
