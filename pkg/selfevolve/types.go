// Package selfevolve implements the iterative Generate→Evaluate→Refine
// loop that is the core of the service (spec §4.3).
package selfevolve

import "time"

// Problem is the immutable input to a Solve/ResumeSolve call (spec §3).
type Problem struct {
	Question    string         `json:"question"`
	Context     string         `json:"context,omitempty"`
	Constraints string         `json:"constraints,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RoleRecord captures one role's contribution to an iteration: its tokens
// used and optional reasoning summary (spec §3 IterationRecord).
type RoleRecord struct {
	TokensUsed       int            `json:"tokens_used"`
	ReasoningSummary string         `json:"reasoning_summary,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// IterationRecord is one entry in an EvolutionHistory (spec §3).
type IterationRecord struct {
	Iteration     int                   `json:"iteration"`
	Prompt        string                `json:"prompt"`
	Output        string                `json:"output"`
	Feedback      string                `json:"feedback"`
	ShouldStop    bool                  `json:"should_stop"`
	RefinedPrompt string                `json:"refined_prompt,omitempty"`
	RoleMetadata  map[string]RoleRecord `json:"role_metadata"` // keys: "generator", "evaluator", "refiner"
}

// EvolutionHistory is an ordered, append-only sequence of IterationRecords
// (spec §3). Index i+1 is produced from index i's refined prompt.
type EvolutionHistory []IterationRecord

// TotalTokens sums generator+evaluator+refiner tokens across every
// IterationRecord (spec §3, §8 invariant 3).
func (h EvolutionHistory) TotalTokens() int {
	total := 0
	for _, rec := range h {
		for _, role := range rec.RoleMetadata {
			total += role.TokensUsed
		}
	}
	return total
}

// LastValid returns the most recent IterationRecord whose output satisfies
// valid, and whether one was found.
func (h EvolutionHistory) LastValid(valid func(string) bool) (IterationRecord, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if valid(h[i].Output) {
			return h[i], true
		}
	}
	return IterationRecord{}, false
}

// HasAnyValid reports whether the history contains at least one valid
// IterationRecord (used by ResumeSolve's validation rule; the
// continuation-fallback decision calls LastValid directly).
func (h EvolutionHistory) HasAnyValid(valid func(string) bool) bool {
	_, ok := h.LastValid(valid)
	return ok
}

// StopReason is the terminal reason a Solve/ResumeSolve call ended (spec §4.3).
type StopReason string

const (
	StopReasonEvaluatorStop  StopReason = "evaluator_stop"
	StopReasonMaxIterations  StopReason = "max_iterations"
	StopReasonFallbackToBest StopReason = "fallback_to_best"
)

// SolutionMetadata is Solution's metadata bag (spec §3).
type SolutionMetadata struct {
	Converged                bool             `json:"converged"`
	StopReason               StopReason       `json:"stop_reason"`
	FallbackUsed             bool             `json:"fallback_used"`
	FallbackDiagnostic       string           `json:"fallback_diagnostic,omitempty"`
	SpecialistResults        []map[string]any `json:"specialist_results,omitempty"`
	AggregateReasoningTokens int              `json:"aggregate_reasoning_tokens,omitempty"`
}

// Solution is the terminal result of Solve/ResumeSolve (spec §3).
type Solution struct {
	Output           string           `json:"output"`
	Iterations       int              `json:"iterations"`
	EvolutionHistory EvolutionHistory `json:"evolution_history"`
	TotalTokens      int              `json:"total_tokens"`
	Metadata         SolutionMetadata `json:"metadata"`
	ProducedAt       time.Time        `json:"produced_at"`
}
