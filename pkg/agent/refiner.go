package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/selfevolve/orchestrator/pkg/provider"
)

// Refiner produces a refined prompt from the original question, the
// current answer, evaluator feedback, and the iteration index (spec §4.2).
// It preserves successful approaches, addresses weaknesses, and avoids
// discarding accumulated context; when AI-based refinement fails it falls
// back to a deterministic rule-based refiner.
type Refiner struct {
	Provider     provider.Provider
	SystemPrompt string
	Temperature  float32
}

func NewRefiner(p provider.Provider, systemPrompt string, temperature float32) *Refiner {
	return &Refiner{Provider: p, SystemPrompt: systemPrompt, Temperature: temperature}
}

func (r *Refiner) Role() Role { return RoleRefiner }

func (r *Refiner) Run(ctx context.Context, ac Context) (*Result, error) {
	originalQuestion := originalQuestionOf(ac)

	prompt := r.buildRefinementPrompt(ac, originalQuestion)
	refined, err := r.Provider.Complete(ctx, prompt, r.SystemPrompt, r.Temperature, provider.CompleteOptions{})
	if err != nil {
		slog.Warn("AI-based refinement failed, using rule-based fallback", "iteration", ac.Iteration, "error", err)
		refined = deterministicRefine(originalQuestion, ac.Feedback)
		return &Result{
			OutputText: refined,
			Metadata:   map[string]any{"fallback_used": true},
		}, nil
	}

	if !IsMeaningfulRefinement(refined) {
		refined = deterministicRefine(originalQuestion, ac.Feedback)
		return &Result{
			OutputText: refined,
			Metadata:   map[string]any{"fallback_used": true},
		}, nil
	}

	return &Result{
		OutputText: refined,
		Metadata: map[string]any{
			"fallback_used":     false,
			"reasoning_summary": r.Provider.LastReasoningSummary(),
		},
		TokensUsed: r.Provider.CountTokens(refined),
	}, nil
}

func (r *Refiner) buildRefinementPrompt(ac Context, originalQuestion string) string {
	prompt := fmt.Sprintf(
		"Original question:\n%s\n\nCurrent answer (iteration %d):\n%s\n\nEvaluator feedback:\n%s\n\n",
		originalQuestion, ac.Iteration, ac.PriorOutput, ac.Feedback,
	)
	if ac.Additional != nil {
		if reasoning, ok := ac.Additional["evaluator_reasoning"].(string); ok && reasoning != "" {
			prompt += fmt.Sprintf("Evaluator reasoning:\n%s\n\n", reasoning)
		}
	}
	prompt += "Produce a refined prompt for the next attempt that preserves what worked, " +
		"explicitly addresses the weaknesses above, and does not discard useful context " +
		"already established."
	return prompt
}

// originalQuestionOf recovers the original question from the refinement
// context's Additional bag, falling back to the current prompt when absent.
func originalQuestionOf(ac Context) string {
	if ac.Additional != nil {
		if q, ok := ac.Additional["original_question"].(string); ok && q != "" {
			return q
		}
	}
	return ac.Prompt
}

// IsMeaningfulRefinement rejects degenerate refinement output the same way
// evaluator feedback is rejected: it must be non-empty and not a bare
// placeholder. No word-count or error-sentinel check is applied.
func IsMeaningfulRefinement(text string) bool {
	return isMeaningfulFeedback(text)
}
