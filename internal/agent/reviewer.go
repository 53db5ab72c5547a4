package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/autonoma/internal/pipeline"
	"github.com/ShayCichocki/autonoma/internal/state"
)

const reviewerSystemPrompt = `You are a senior engineer reviewing completed
work before merge. Judge whether the work satisfies the item's description.
Respond with a JSON object: {"approved": true|false, "feedback": "..."}.`

// Reviewer judges executed work via a prompt run.
type Reviewer struct {
	runner PromptRunner
}

// NewReviewer creates a Reviewer over the given runner.
func NewReviewer(runner PromptRunner) *Reviewer {
	return &Reviewer{runner: runner}
}

// Review asks the model for a merge verdict. An unparseable verdict is
// treated as a rejection so the item re-enters the retry path instead of
// merging unreviewed.
func (r *Reviewer) Review(ctx context.Context, item state.WorkItem, output string) (*pipeline.ReviewResult, error) {
	prompt := fmt.Sprintf("Work item %s:\n%s\n\nSubmitted work:\n%s", item.ID, item.Description, output)
	res, err := r.runner.RunPrompt(ctx, reviewerSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("review prompt: %w", err)
	}

	payload, ok := extractJSONObject(res.Text)
	if !ok {
		return &pipeline.ReviewResult{
			Approved:     false,
			Feedback:     "review verdict unparseable",
			ResourceUsed: res.ResourceUsed,
		}, nil
	}

	var verdict struct {
		Approved bool   `json:"approved"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		return &pipeline.ReviewResult{
			Approved:     false,
			Feedback:     fmt.Sprintf("review verdict unparseable: %v", err),
			ResourceUsed: res.ResourceUsed,
		}, nil
	}

	return &pipeline.ReviewResult{
		Approved:     verdict.Approved,
		Feedback:     verdict.Feedback,
		ResourceUsed: res.ResourceUsed,
	}, nil
}
