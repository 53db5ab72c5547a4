package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// APIRunner runs prompts directly against the Messages API.
// It is a drop-in alternative to CLIRunner for hosts without the CLI.
type APIRunner struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAPIRunner creates an APIRunner. Credentials come from the standard
// ANTHROPIC_API_KEY environment variable.
func NewAPIRunner(model string) *APIRunner {
	m := anthropic.Model(model)
	if m == "" {
		m = anthropic.ModelClaudeSonnet4_20250514
	}
	return &APIRunner{
		client: anthropic.NewClient(),
		model:  m,
	}
}

// RunPrompt issues a single-turn Messages call and collects the text blocks.
func (r *APIRunner) RunPrompt(ctx context.Context, system, prompt string) (*Result, error) {
	params := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("messages call: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	return &Result{
		Text:         text,
		ResourceUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
