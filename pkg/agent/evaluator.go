package agent

import (
	"context"
	"fmt"

	"github.com/selfevolve/orchestrator/pkg/provider"
)

// Evaluator produces feedback on a generator's output and decides whether
// the Self-Evolve loop should stop (spec §4.2).
type Evaluator struct {
	Provider     provider.Provider
	SystemPrompt string
	Temperature  float32
	detector     *StopTokenDetector
}

// NewEvaluator builds an Evaluator that recognizes stopToken as the
// convergence signal (spec §6 "stop_token_pattern", default "<stop>").
func NewEvaluator(p provider.Provider, systemPrompt string, temperature float32, stopToken string) *Evaluator {
	return &Evaluator{
		Provider:     p,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
		detector:     NewStopTokenDetector(stopToken),
	}
}

func (e *Evaluator) Role() Role { return RoleEvaluator }

func (e *Evaluator) Run(ctx context.Context, ac Context) (*Result, error) {
	prompt := buildEvaluationPrompt(ac)
	feedback, err := e.Provider.Complete(ctx, prompt, e.SystemPrompt, e.Temperature, provider.CompleteOptions{})
	if err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}

	shouldStop := e.detector.ShouldStop(feedback)

	return &Result{
		OutputText: feedback,
		Feedback:   feedback,
		Metadata: map[string]any{
			"should_stop":       shouldStop,
			"reasoning_summary": e.Provider.LastReasoningSummary(),
		},
		TokensUsed: e.Provider.CountTokens(feedback),
	}, nil
}

// NeutralEvaluation is the synthetic defense-in-depth evaluation used when
// the engine reaches the evaluate step with an output that should never
// have gotten there (spec §4.3 rule 4).
func NeutralEvaluation() *Result {
	return &Result{
		Feedback: "",
		Metadata: map[string]any{"should_stop": false},
	}
}

func buildEvaluationPrompt(ac Context) string {
	prompt := fmt.Sprintf("Question:\n%s\n\nCandidate answer:\n%s\n\nEvaluate the candidate answer.", ac.Prompt, ac.PriorOutput)
	if ac.Additional != nil {
		if reasoning, ok := ac.Additional["generator_reasoning"].(string); ok && reasoning != "" {
			prompt += fmt.Sprintf("\n\nGenerator reasoning context:\n%s", reasoning)
		}
	}
	return prompt
}

// ShouldStop extracts the should_stop flag from an Evaluator Result's
// metadata, defaulting to false when absent.
func ShouldStop(r *Result) bool {
	if r == nil || r.Metadata == nil {
		return false
	}
	v, _ := r.Metadata["should_stop"].(bool)
	return v
}
