// Package providertest provides a scripted provider.Provider double shared
// across pkg/agent and pkg/runner tests, so role and runner tests don't
// each hand-roll their own stub (grounded on the teacher's
// pkg/queue/executor_stub.go pattern of one shared test double per
// interface).
package providertest

import (
	"context"

	"github.com/selfevolve/orchestrator/pkg/provider"
)

// FakeProvider is a scripted provider.Provider. CompleteText is consumed
// in order across successive Complete calls; once exhausted, the last
// entry repeats.
type FakeProvider struct {
	CompleteText  []string
	CompleteErr   error
	CompleteCalls int

	FunctionsResp *provider.Response
	FunctionsErr  error

	ReasoningSummary string
	ReasoningTokens  int
}

func (f *FakeProvider) Complete(ctx context.Context, prompt, systemPrompt string, temperature float32, opts provider.CompleteOptions) (string, error) {
	if f.CompleteErr != nil {
		return "", f.CompleteErr
	}
	idx := f.CompleteCalls
	if idx >= len(f.CompleteText) {
		idx = len(f.CompleteText) - 1
	}
	f.CompleteCalls++
	if idx < 0 {
		return "", nil
	}
	return f.CompleteText[idx], nil
}

func (f *FakeProvider) CompleteWithFunctions(ctx context.Context, prompt, systemPrompt string, temperature float32, tools []provider.ToolDefinition) (*provider.Response, error) {
	if f.FunctionsErr != nil {
		return nil, f.FunctionsErr
	}
	return f.FunctionsResp, nil
}

func (f *FakeProvider) CountTokens(text string) int { return len(text) / 4 }

func (f *FakeProvider) LastReasoningSummary() string { return f.ReasoningSummary }
func (f *FakeProvider) LastReasoningTokens() int     { return f.ReasoningTokens }
