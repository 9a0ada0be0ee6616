package runner

import (
	"context"

	"github.com/selfevolve/orchestrator/pkg/agent"
	"github.com/selfevolve/orchestrator/pkg/answertag"
	"github.com/selfevolve/orchestrator/pkg/provider"
	"github.com/selfevolve/orchestrator/pkg/selfevolve"
)

// enhancedPhases names the phase-weighted progress buckets for the
// Enhanced Runner (spec §4.5).
var enhancedPhases = []string{"professor_analysis", "specialist_consultations", "synthesis", "finalization"}

// EnhancedRunner wires the Professor as the Self-Evolve generator (spec
// §4.4, §4.5): professor_max_iters governs the outer loop, and every
// dispatched Specialist runs its own Self-Evolve engine at
// specialist_max_iters.
type EnhancedRunner struct {
	Provider     provider.Provider
	SystemPrompt string
	Temperature  float32
	Evaluator    agent.Agent
	Refiner      agent.Agent

	ProfessorMaxIters  int
	SpecialistMaxIters int

	// BuildSpecialist produces a fresh {generator, evaluator, refiner}
	// triple for one consultation's specialization.
	BuildSpecialist SpecialistFactoryFunc

	Options EngineOptions
}

// NewEnhancedRunner builds an EnhancedRunner.
func NewEnhancedRunner(p provider.Provider, systemPrompt string, temperature float32, evaluator, refiner agent.Agent, professorMaxIters, specialistMaxIters int, buildSpecialist SpecialistFactoryFunc, opts EngineOptions) *EnhancedRunner {
	return &EnhancedRunner{
		Provider:           p,
		SystemPrompt:       systemPrompt,
		Temperature:        temperature,
		Evaluator:          evaluator,
		Refiner:            refiner,
		ProfessorMaxIters:  professorMaxIters,
		SpecialistMaxIters: specialistMaxIters,
		BuildSpecialist:    buildSpecialist,
		Options:            opts,
	}
}

func (r *EnhancedRunner) buildEngine(jobID string, maxIters int, progress ProgressFunc) *selfevolve.Engine {
	factory := buildSpecialistFactory(jobID, r.SpecialistMaxIters, r.Options.AnswerTagName, r.BuildSpecialist)
	professor := agent.NewProfessor(r.Provider, r.SystemPrompt, r.Temperature, jobID, factory)
	professor.ContextSummarizationThreshold = r.Options.ContextSummarizationThreshold
	professor.MaxContextTokens = r.Options.MaxContextTokens
	if progress != nil {
		// professor_analysis and specialist_consultations are phases 0 and 1
		// of enhancedPhases; the Professor reports both through one callback
		// that dispatches by the phase label it's given.
		analysis := phaseWeighted(progress, enhancedPhases, 0)
		consultations := phaseWeighted(progress, enhancedPhases, 1)
		synthesis := phaseWeighted(progress, enhancedPhases, 2)
		professor.Progress = func(fraction float64, phase string) {
			switch phase {
			case "professor_analysis":
				analysis(fraction, phase)
			case "specialist_consultations":
				consultations(fraction, phase)
			case "synthesis":
				synthesis(fraction, phase)
			}
		}
	}

	var extractor *answertag.Extractor
	if r.Options.AnswerConvergence && r.Options.AnswerTagName != "" {
		extractor = answertag.NewExtractor(r.Options.AnswerTagName)
	}

	cfg := selfevolve.Config{
		Generator:                 professor,
		Evaluator:                 r.Evaluator,
		Refiner:                   r.Refiner,
		MaxIters:                  maxIters,
		AllowContinuationFallback: r.Options.AllowContinuationFallback,
		MaxRetriesPerIteration:    r.Options.MaxRetriesPerIteration,
		MinValidWords:             r.Options.MinValidWords,
		JobID:                     jobID,
		Store:                     r.Options.Store,
		AnswerConvergence:         r.Options.AnswerConvergence,
		AnswerExtractor:           extractor,
	}
	if progress != nil {
		cfg.Progress = phaseWeighted(progress, enhancedPhases, 3)
	}
	return selfevolve.NewEngine(cfg)
}

func (r *EnhancedRunner) Solve(ctx context.Context, req SolveRequest) (*selfevolve.Solution, error) {
	maxIters := r.ProfessorMaxIters
	if req.MaxItersOverride > 0 {
		maxIters = req.MaxItersOverride
	}
	jobID := r.Options.JobID
	engine := r.buildEngine(jobID, maxIters, req.Progress)
	return engine.Solve(ctx, toProblem(req.Question, req.Context, req.Constraints, req.Metadata))
}

func (r *EnhancedRunner) ResumeSolve(ctx context.Context, req ResumeRequest) (*selfevolve.Solution, error) {
	maxIters := len(req.History) + req.AdditionalIterations
	jobID := r.Options.JobID
	engine := r.buildEngine(jobID, maxIters, req.Progress)
	return engine.ResumeSolve(ctx, toProblem(req.Question, req.Context, req.Constraints, req.Metadata), req.History, len(req.History)+1)
}
