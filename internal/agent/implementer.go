package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/ShayCichocki/autonoma/internal/pipeline"
	"github.com/ShayCichocki/autonoma/internal/state"
)

const implementerSystemPrompt = `You are a developer implementing one work item
of a larger delivery. Complete the described work. Finish your answer with a
summary of what you changed.`

// Implementer executes work items via prompt runs. Transient backend
// failures are retried here with backoff so the scheduler only sees
// failures worth charging against the item's retry budget.
type Implementer struct {
	runner PromptRunner

	// TaskTimeout bounds one execution end to end, zero means no bound.
	TaskTimeout time.Duration

	// maxAttempts bounds backend retries per execution, not item retries.
	maxAttempts int
	backoffBase time.Duration
}

// NewImplementer creates an Implementer over the given runner.
func NewImplementer(runner PromptRunner) *Implementer {
	return &Implementer{
		runner:      runner,
		maxAttempts: 2,
		backoffBase: 2 * time.Second,
	}
}

// Execute runs the item's work and reports the attempt's outcome.
func (im *Implementer) Execute(ctx context.Context, item state.WorkItem) (*pipeline.ExecutionResult, error) {
	if im.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.TaskTimeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("Work item %s (attempt %d):\n\n%s", item.ID, item.RetryCount+1, item.Description)

	var res *Result
	var err error
	for attempt := 0; attempt < im.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(im.backoffBase << (attempt - 1)):
			}
		}
		res, err = im.runner.RunPrompt(ctx, implementerSystemPrompt, prompt)
		if err == nil {
			break
		}
	}
	if err != nil {
		return &pipeline.ExecutionResult{
			Success: false,
			Reason:  fmt.Sprintf("backend failed after %d attempts: %v", im.maxAttempts, err),
		}, nil
	}

	return &pipeline.ExecutionResult{
		Success:      true,
		Output:       res.Text,
		ResourceUsed: res.ResourceUsed,
	}, nil
}
