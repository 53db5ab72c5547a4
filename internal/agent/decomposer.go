package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/autonoma/internal/pipeline"
	"github.com/ShayCichocki/autonoma/internal/state"
)

const decomposerSystemPrompt = `You are a staff engineer breaking a milestone
into independent work items. Produce a JSON array of objects with "id" (short
slug), "description", and "dependencies" (array of ids within this milestone
that must merge first). Items without dependencies between them will run in
parallel. Respond with the JSON array only.`

// Decomposer breaks milestones into work items via a prompt run.
type Decomposer struct {
	runner PromptRunner
}

// NewDecomposer creates a Decomposer over the given runner.
func NewDecomposer(runner PromptRunner) *Decomposer {
	return &Decomposer{runner: runner}
}

// Decompose asks the model for the milestone's work items. Unlike planning,
// an unparseable answer here is an error: the run is already underway and
// a milestone with no items cannot proceed.
func (d *Decomposer) Decompose(ctx context.Context, m state.Milestone) ([]pipeline.ItemSpec, error) {
	prompt := fmt.Sprintf("Milestone: %s\n\n%s", m.Name, m.Description)
	res, err := d.runner.RunPrompt(ctx, decomposerSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("decompose prompt: %w", err)
	}

	payload, ok := extractJSONArray(res.Text)
	if !ok {
		return nil, fmt.Errorf("decompose milestone %s: answer contains no item array", m.ID)
	}

	var specs []pipeline.ItemSpec
	if err := json.Unmarshal([]byte(payload), &specs); err != nil {
		return nil, fmt.Errorf("decompose milestone %s: %w", m.ID, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("decompose milestone %s: no work items produced", m.ID)
	}
	return specs, nil
}
