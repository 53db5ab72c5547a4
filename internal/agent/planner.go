package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/autonoma/internal/pipeline"
)

const plannerSystemPrompt = `You are a tech lead planning a software delivery.
Given the requirements, produce a JSON array of milestones. Each milestone is
an object with "name", "description", "phase" (integer, 1-based, sequential),
and "estimated_usage" (integer token estimate). Respond with the JSON array
only.`

// Planner turns requirements into phased milestones via a prompt run.
type Planner struct {
	runner PromptRunner
}

// NewPlanner creates a Planner over the given runner.
func NewPlanner(runner PromptRunner) *Planner {
	return &Planner{runner: runner}
}

// Plan asks the model for a milestone breakdown. An answer that does not
// contain a parseable milestone array is an invalid plan, not an error:
// the caller fails the run before starting any work.
func (p *Planner) Plan(ctx context.Context, requirements string) (*pipeline.PlanResult, error) {
	res, err := p.runner.RunPrompt(ctx, plannerSystemPrompt, requirements)
	if err != nil {
		return nil, fmt.Errorf("plan prompt: %w", err)
	}

	payload, ok := extractJSONArray(res.Text)
	if !ok {
		return &pipeline.PlanResult{Valid: false, Reason: "answer contains no milestone array"}, nil
	}

	var milestones []pipeline.MilestonePlan
	if err := json.Unmarshal([]byte(payload), &milestones); err != nil {
		return &pipeline.PlanResult{Valid: false, Reason: fmt.Sprintf("milestone array unparseable: %v", err)}, nil
	}

	return &pipeline.PlanResult{Valid: true, Milestones: milestones}, nil
}
