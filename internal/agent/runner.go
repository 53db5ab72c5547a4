// Package agent implements the pipeline's collaborator roles on top of
// Claude: planning, decomposition, implementation, and review.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Result is the outcome of one prompt run.
type Result struct {
	// Text is the model's final answer.
	Text string
	// ResourceUsed is the token count consumed by the run.
	ResourceUsed int64
}

// PromptRunner executes a single prompt and returns the final answer.
// Implementations wrap either the claude CLI or the Messages API.
type PromptRunner interface {
	RunPrompt(ctx context.Context, system, prompt string) (*Result, error)
}

// CLIRunner runs prompts through the claude CLI in one-shot print mode.
type CLIRunner struct {
	// Path is the claude binary, "claude" by default.
	Path string
	// Model overrides the CLI's default model when set.
	Model string
}

// NewCLIRunner creates a CLIRunner for the given binary path and model.
func NewCLIRunner(path, model string) *CLIRunner {
	if path == "" {
		path = "claude"
	}
	return &CLIRunner{Path: path, Model: model}
}

// cliOutput is the claude CLI's --output-format json envelope.
type cliOutput struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Usage   struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// RunPrompt invokes the CLI with --print and parses the JSON envelope.
func (r *CLIRunner) RunPrompt(ctx context.Context, system, prompt string) (*Result, error) {
	args := []string{"--print", "--output-format", "json"}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	if system != "" {
		args = append(args, "--append-system-prompt", system)
	}
	args = append(args, "-p", prompt)

	cmd := exec.CommandContext(ctx, r.Path, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("run claude: %w", err)
	}
	return parseCLIOutput(output)
}

// parseCLIOutput decodes the CLI's JSON envelope into a Result.
func parseCLIOutput(output []byte) (*Result, error) {
	var out cliOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("parse claude output: %w", err)
	}
	if out.IsError {
		return nil, fmt.Errorf("claude returned an error: %s", out.Result)
	}
	return &Result{
		Text:         out.Result,
		ResourceUsed: out.Usage.InputTokens + out.Usage.OutputTokens,
	}, nil
}
