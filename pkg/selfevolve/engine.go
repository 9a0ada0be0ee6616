package selfevolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/selfevolve/orchestrator/pkg/agent"
	"github.com/selfevolve/orchestrator/pkg/answertag"
)

const defaultMaxRetriesPerIteration = 4 // fixed at 4 retries = 5 total attempts, per spec §4.3

// ProgressFunc reports fractional progress (0..1) and a human-readable
// phase label at iteration boundaries.
type ProgressFunc func(fraction float64, phase string)

// Config wires an Engine (spec §4.3): {generator, evaluator, refiner,
// max_iters, optional progress callback, allow_continuation_fallback,
// optional job-id for partial-result binding, optional store handle}.
type Config struct {
	Generator agent.Agent
	Evaluator agent.Agent
	Refiner   agent.Agent

	MaxIters int

	AllowContinuationFallback bool // zero value (false) disables the fallback; NewEngine does not default it
	MaxRetriesPerIteration    int  // 0 means defaultMaxRetriesPerIteration
	MinValidWords             int  // 0 means defaultMinValidWords (spec §6 invalid_output_min_words)

	JobID string
	Store PartialResultWriter

	Progress ProgressFunc

	// AnswerConvergence enables the optional answer-convergence shortcut
	// (spec §4.3.5); Runners that opt in supply a tag Extractor.
	AnswerConvergence bool
	AnswerExtractor   *answertag.Extractor
}

// Engine runs the Generate→Evaluate→Refine loop (spec §4.3).
type Engine struct {
	cfg       Config
	cancelled atomic.Bool
}

// NewEngine constructs an Engine, filling in defaults (store defaults to a
// no-op writer, retry count defaults to 4).
func NewEngine(cfg Config) *Engine {
	if cfg.Store == nil {
		cfg.Store = NoopPartialResultWriter{}
	}
	if cfg.MaxRetriesPerIteration == 0 {
		cfg.MaxRetriesPerIteration = defaultMaxRetriesPerIteration
	}
	if cfg.MinValidWords == 0 {
		cfg.MinValidWords = defaultMinValidWords
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) isValidOutput(text string) bool {
	return IsValidOutputMinWords(text, e.cfg.MinValidWords)
}

// Cancel requests cooperative cancellation; observed at every suspension
// point in the iteration algorithm (spec §5).
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

// Solve runs a fresh loop from iteration 1 with empty history (spec §4.3).
func (e *Engine) Solve(ctx context.Context, problem Problem) (*Solution, error) {
	return e.run(ctx, problem, nil, 1)
}

// ResumeSolve continues from an existing history (spec §4.3). If history
// is non-empty and contains no valid output, it fails with a
// ValidationError. If history is empty, it behaves as Solve.
func (e *Engine) ResumeSolve(ctx context.Context, problem Problem, history EvolutionHistory, startIteration int) (*Solution, error) {
	if len(history) > 0 && !history.HasAnyValid(e.isValidOutput) {
		return nil, &ValidationError{Reason: "All outputs in evolution history are invalid"}
	}
	if len(history) == 0 {
		return e.Solve(ctx, problem)
	}
	return e.run(ctx, problem, history, startIteration)
}

func (e *Engine) run(ctx context.Context, problem Problem, seed EvolutionHistory, startIteration int) (*Solution, error) {
	hist := append(EvolutionHistory{}, seed...)

	prompt := problem.Question
	if len(hist) > 0 {
		last := hist[len(hist)-1]
		if last.RefinedPrompt != "" {
			prompt = last.RefinedPrompt
		}
	}

	var consecutiveAnswerMatches int
	var lastAnswerValue string

	for k := startIteration; k <= e.cfg.MaxIters; k++ {
		if e.cancelledNow(ctx) {
			return nil, &CancelledError{}
		}

		output, genResult, genErr := e.generateWithRetry(ctx, prompt, k)
		if genErr != nil {
			var cancelled *CancelledError
			if errors.As(genErr, &cancelled) {
				return nil, genErr
			}
			var failure *generationFailure
			if errors.As(genErr, &failure) {
				return e.handleGenerationFailure(hist, failure)
			}
			return nil, genErr
		}

		if e.cancelledNow(ctx) {
			return nil, &CancelledError{}
		}

		isFinalProfessorIteration := e.cfg.Generator.Role() == agent.RoleProfessor && k == e.cfg.MaxIters && len(hist) > 0

		evalResult, shouldStop, err := e.evaluate(ctx, problem, output, genResult, isFinalProfessorIteration)
		if err != nil {
			return nil, fmt.Errorf("selfevolve: evaluator: %w", err)
		}

		if e.cancelledNow(ctx) {
			return nil, &CancelledError{}
		}

		rec := IterationRecord{
			Iteration:  k,
			Prompt:     prompt,
			Output:     output,
			Feedback:   evalResult.Feedback,
			ShouldStop: shouldStop,
			RoleMetadata: map[string]RoleRecord{
				"generator": roleRecordFrom(genResult),
				"evaluator": roleRecordFrom(evalResult),
			},
		}
		hist = append(hist, rec)

		e.persistPartial(ctx, hist)

		if e.reportConvergence(&hist, shouldStop, output, &consecutiveAnswerMatches, &lastAnswerValue) {
			e.reportProgress(float64(k)/float64(e.cfg.MaxIters), "answer_convergence")
			return e.finalize(hist, StopReasonEvaluatorStop, false, ""), nil
		}

		if shouldStop {
			e.reportProgress(float64(k)/float64(e.cfg.MaxIters), "evaluator_stop")
			return e.finalize(hist, StopReasonEvaluatorStop, false, ""), nil
		}

		if k < e.cfg.MaxIters {
			if e.cancelledNow(ctx) {
				return nil, &CancelledError{}
			}
			refResult, err := e.cfg.Refiner.Run(ctx, agent.Context{
				Prompt:      prompt,
				PriorOutput: output,
				Feedback:    evalResult.Feedback,
				Iteration:   k,
				Additional: map[string]any{
					"original_question":  problem.Question,
					"evaluator_reasoning": metadataString(evalResult.Metadata, "reasoning_summary"),
				},
			})
			if err != nil {
				return nil, fmt.Errorf("selfevolve: refiner: %w", err)
			}
			hist[len(hist)-1].RefinedPrompt = refResult.OutputText
			hist[len(hist)-1].RoleMetadata["refiner"] = roleRecordFrom(refResult)
			prompt = refResult.OutputText
		}

		e.reportProgress(float64(k)/float64(e.cfg.MaxIters), "iterating")

		if e.cancelledNow(ctx) {
			return nil, &CancelledError{}
		}
	}

	return e.finalize(hist, StopReasonMaxIterations, false, ""), nil
}

// evaluate implements spec §4.3 rule 4: skip evaluation (marking
// should_stop=true) on a Professor's final iteration when at least one
// prior iteration exists; use a synthetic neutral evaluation for an
// invalid output that reached this step (defense-in-depth).
func (e *Engine) evaluate(ctx context.Context, problem Problem, output string, genResult *agent.Result, isFinalProfessorIteration bool) (*agent.Result, bool, error) {
	if isFinalProfessorIteration {
		return &agent.Result{Metadata: map[string]any{"should_stop": true}}, true, nil
	}
	if !e.isValidOutput(output) {
		neutral := agent.NeutralEvaluation()
		return neutral, false, nil
	}

	result, err := e.cfg.Evaluator.Run(ctx, agent.Context{
		Prompt:      problem.Question,
		PriorOutput: output,
		Additional: map[string]any{
			"generator_reasoning": metadataString(genResult.Metadata, "reasoning_summary"),
		},
	})
	if err != nil {
		return nil, false, err
	}
	return result, agent.ShouldStop(result), nil
}

// reportConvergence implements the optional answer-convergence shortcut
// (spec §4.3.5): three consecutive iterations emitting the same
// answer-tag value converge regardless of should_stop. It mutates the
// just-appended record's ShouldStop flag when it fires.
func (e *Engine) reportConvergence(hist *EvolutionHistory, shouldStop bool, output string, consecutive *int, lastValue *string) bool {
	if !e.cfg.AnswerConvergence || e.cfg.AnswerExtractor == nil || shouldStop {
		*consecutive = 0
		return false
	}

	value, ok := e.cfg.AnswerExtractor.Extract(output)
	if !ok {
		*consecutive = 0
		*lastValue = ""
		return false
	}

	if *consecutive > 0 && answertag.NormalizedEqual(value, *lastValue) {
		*consecutive++
	} else {
		*consecutive = 1
	}
	*lastValue = value

	if *consecutive >= 3 {
		h := *hist
		h[len(h)-1].ShouldStop = true
		return true
	}
	return false
}

// generateWithRetry invokes the generator, retrying up to
// cfg.MaxRetriesPerIteration times on an invalid output. Tokens from
// invalid attempts are discarded (spec §4.3 step 2).
func (e *Engine) generateWithRetry(ctx context.Context, prompt string, iteration int) (string, *agent.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetriesPerIteration; attempt++ {
		if e.cancelledNow(ctx) {
			return "", nil, &CancelledError{}
		}

		result, err := e.cfg.Generator.Run(ctx, agent.Context{Prompt: prompt, Iteration: iteration})
		if err != nil {
			lastErr = err
			continue
		}
		if e.isValidOutput(result.OutputText) {
			return result.OutputText, result, nil
		}
		lastErr = fmt.Errorf("invalid generator output on attempt %d", attempt+1)
	}
	return "", nil, &generationFailure{iteration: iteration, lastErr: lastErr}
}

// handleGenerationFailure implements the continuation-fallback decision
// (spec §4.3.4).
func (e *Engine) handleGenerationFailure(hist EvolutionHistory, failure *generationFailure) (*Solution, error) {
	best, ok := hist.LastValid(e.isValidOutput)
	if ok && e.cfg.AllowContinuationFallback {
		diagnostic := fmt.Sprintf(
			"invalid output in subsequent iterations; returning best available (iteration %d)",
			best.Iteration,
		)
		sol := e.finalize(hist, StopReasonFallbackToBest, true, diagnostic)
		sol.Output = best.Output
		return sol, nil
	}
	return nil, &NoValidIterationError{Reason: "No valid iteration found; marking task as failed."}
}

func (e *Engine) finalize(hist EvolutionHistory, reason StopReason, fallbackUsed bool, diagnostic string) *Solution {
	output := ""
	if len(hist) > 0 {
		output = hist[len(hist)-1].Output
	}
	converged := reason == StopReasonEvaluatorStop || reason == StopReasonFallbackToBest

	meta := SolutionMetadata{
		Converged:          converged,
		StopReason:         reason,
		FallbackUsed:       fallbackUsed,
		FallbackDiagnostic: diagnostic,
	}
	if len(hist) > 0 {
		if genMeta, ok := hist[len(hist)-1].RoleMetadata["generator"]; ok {
			if results, ok := genMeta.Metadata["specialist_results"].([]map[string]any); ok {
				meta.SpecialistResults = results
			}
			if tokens, ok := genMeta.Metadata["aggregated_reasoning_tokens"].(int); ok {
				meta.AggregateReasoningTokens = tokens
			}
		}
	}

	return &Solution{
		Output:           output,
		Iterations:       len(hist),
		EvolutionHistory: hist,
		TotalTokens:      hist.TotalTokens(),
		Metadata:         meta,
		ProducedAt:       time.Now(),
	}
}

func (e *Engine) persistPartial(ctx context.Context, hist EvolutionHistory) {
	if e.cfg.JobID == "" || len(hist) == 0 {
		return
	}
	snapshot := PartialResultSnapshot{
		IterationsSoFar: len(hist),
		LatestIteration: hist[len(hist)-1],
		FullHistory:     hist,
		Timestamp:       time.Now(),
	}
	if err := e.cfg.Store.WritePartialResult(ctx, e.cfg.JobID, snapshot); err != nil {
		slog.Warn("selfevolve: failed to persist partial result", "job_id", e.cfg.JobID, "error", err)
	}
}

func (e *Engine) reportProgress(fraction float64, phase string) {
	if e.cfg.Progress != nil {
		e.cfg.Progress(fraction, phase)
	}
}

func (e *Engine) cancelledNow(ctx context.Context) bool {
	return e.cancelled.Load() || ctx.Err() != nil
}

func roleRecordFrom(result *agent.Result) RoleRecord {
	if result == nil {
		return RoleRecord{}
	}
	return RoleRecord{
		TokensUsed:       result.TokensUsed,
		ReasoningSummary: metadataString(result.Metadata, "reasoning_summary"),
		Metadata:         result.Metadata,
	}
}

func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
