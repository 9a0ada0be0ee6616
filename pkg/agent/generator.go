package agent

import (
	"context"
	"fmt"

	"github.com/selfevolve/orchestrator/pkg/provider"
)

// Generator produces an answer to a prompt. No stop-token detection is
// performed; should_stop is never set in its metadata (spec §4.2).
type Generator struct {
	Provider     provider.Provider
	SystemPrompt string
	Temperature  float32
}

func NewGenerator(p provider.Provider, systemPrompt string, temperature float32) *Generator {
	return &Generator{Provider: p, SystemPrompt: systemPrompt, Temperature: temperature}
}

func (g *Generator) Role() Role { return RoleGenerator }

func (g *Generator) Run(ctx context.Context, ac Context) (*Result, error) {
	text, err := g.Provider.Complete(ctx, ac.Prompt, g.SystemPrompt, g.Temperature, provider.CompleteOptions{})
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	return &Result{
		OutputText: text,
		Metadata: map[string]any{
			"reasoning_summary": g.Provider.LastReasoningSummary(),
			"reasoning_tokens":  g.Provider.LastReasoningTokens(),
		},
		TokensUsed: g.Provider.CountTokens(text),
	}, nil
}
