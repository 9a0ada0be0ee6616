package runner

import (
	"context"

	"github.com/selfevolve/orchestrator/pkg/agent"
	"github.com/selfevolve/orchestrator/pkg/answertag"
	"github.com/selfevolve/orchestrator/pkg/selfevolve"
)

// EngineOptions carries the pieces of engine configuration a Runner needs
// to build a fresh selfevolve.Engine per call, independent of the
// YAML-facing pkg/config shape.
type EngineOptions struct {
	MaxIters                  int
	AllowContinuationFallback bool
	MaxRetriesPerIteration    int
	MinValidWords             int
	AnswerConvergence         bool
	AnswerTagName             string

	// ContextSummarizationThreshold and MaxContextTokens bound the
	// Professor's synthesis-prompt context budget (spec §6
	// context_summarization_threshold). Only consumed by EnhancedRunner.
	ContextSummarizationThreshold float64
	MaxContextTokens              int

	JobID string
	Store selfevolve.PartialResultWriter
}

// BasicRunner runs a single Self-Evolve loop with a plain
// {Generator, Evaluator, Refiner} triple (spec §4.5).
type BasicRunner struct {
	Generator agent.Agent
	Evaluator agent.Agent
	Refiner   agent.Agent
	Options   EngineOptions
}

// NewBasicRunner builds a BasicRunner.
func NewBasicRunner(gen, eval, ref agent.Agent, opts EngineOptions) *BasicRunner {
	return &BasicRunner{Generator: gen, Evaluator: eval, Refiner: ref, Options: opts}
}

func (r *BasicRunner) buildEngine(maxIters int, progress ProgressFunc) *selfevolve.Engine {
	var extractor *answertag.Extractor
	if r.Options.AnswerConvergence && r.Options.AnswerTagName != "" {
		extractor = answertag.NewExtractor(r.Options.AnswerTagName)
	}

	cfg := selfevolve.Config{
		Generator:                 r.Generator,
		Evaluator:                 r.Evaluator,
		Refiner:                   r.Refiner,
		MaxIters:                  maxIters,
		AllowContinuationFallback: r.Options.AllowContinuationFallback,
		MaxRetriesPerIteration:    r.Options.MaxRetriesPerIteration,
		MinValidWords:             r.Options.MinValidWords,
		JobID:                     r.Options.JobID,
		Store:                     r.Options.Store,
		AnswerConvergence:         r.Options.AnswerConvergence,
		AnswerExtractor:           extractor,
	}
	if progress != nil {
		cfg.Progress = func(fraction float64, phase string) { progress(fraction, phase) }
	}
	return selfevolve.NewEngine(cfg)
}

func (r *BasicRunner) Solve(ctx context.Context, req SolveRequest) (*selfevolve.Solution, error) {
	maxIters := r.Options.MaxIters
	if req.MaxItersOverride > 0 {
		maxIters = req.MaxItersOverride
	}
	engine := r.buildEngine(maxIters, req.Progress)
	return engine.Solve(ctx, toProblem(req.Question, req.Context, req.Constraints, req.Metadata))
}

func (r *BasicRunner) ResumeSolve(ctx context.Context, req ResumeRequest) (*selfevolve.Solution, error) {
	maxIters := len(req.History) + req.AdditionalIterations
	engine := r.buildEngine(maxIters, req.Progress)
	return engine.ResumeSolve(ctx, toProblem(req.Question, req.Context, req.Constraints, req.Metadata), req.History, len(req.History)+1)
}
