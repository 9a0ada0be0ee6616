package runner

import (
	"context"

	"github.com/selfevolve/orchestrator/pkg/agent"
	"github.com/selfevolve/orchestrator/pkg/answertag"
	"github.com/selfevolve/orchestrator/pkg/selfevolve"
)

// specialistEngineAdapter satisfies agent.SpecialistEngine by wrapping a
// freshly-built selfevolve.Engine and projecting its Solution into the
// SpecialistSolution shape the Professor consumes (spec §4.4 step 4).
type specialistEngineAdapter struct {
	engine    *selfevolve.Engine
	extractor *answertag.Extractor
	jobID     string
}

func (s *specialistEngineAdapter) Solve(ctx context.Context, question string) (agent.SpecialistSolution, error) {
	sol, err := s.engine.Solve(ctx, selfevolve.Problem{Question: question})
	if err != nil {
		return agent.SpecialistSolution{}, err
	}

	var answerValue string
	if s.extractor != nil {
		answerValue, _ = s.extractor.Extract(sol.Output)
	}

	return agent.SpecialistSolution{
		FinalAnswer:    sol.Output,
		AnswerTagValue: answerValue,
		IterationCount: sol.Iterations,
		TotalTokens:    sol.TotalTokens,
		SessionDetails: map[string]any{
			"job_id":      s.jobID,
			"stop_reason": string(sol.Metadata.StopReason),
			"converged":   sol.Metadata.Converged,
		},
	}, nil
}

// SpecialistFactoryFunc is the signature of a function that builds a
// fresh {generator, evaluator, refiner} triple for one consultation's
// specialization. EnhancedRunner closes over this to supply
// agent.SpecialistFactory without pkg/agent depending on pkg/runner.
type SpecialistFactoryFunc func(spec agent.NormalizedConsultation) (gen, eval, ref agent.Agent, err error)

// buildSpecialistFactory adapts a SpecialistFactoryFunc plus engine options
// into an agent.SpecialistFactory, instantiating a fresh Self-Evolve engine
// per consultation using specialistMaxIters (spec §4.4 step 4).
func buildSpecialistFactory(parentJobID string, specialistMaxIters int, answerTagName string, build SpecialistFactoryFunc) agent.SpecialistFactory {
	var extractor *answertag.Extractor
	if answerTagName != "" {
		extractor = answertag.NewExtractor(answerTagName)
	}

	return func(spec agent.NormalizedConsultation) (agent.SpecialistEngine, error) {
		gen, eval, ref, err := build(spec)
		if err != nil {
			return nil, err
		}
		childJobID := agent.SpecialistJobID(parentJobID, spec.Specialization, spec.SpecificTask)
		engine := selfevolve.NewEngine(selfevolve.Config{
			Generator: gen,
			Evaluator: eval,
			Refiner:   ref,
			MaxIters:  specialistMaxIters,
			JobID:     childJobID,
		})
		return &specialistEngineAdapter{engine: engine, extractor: extractor, jobID: childJobID}, nil
	}
}
