// Package runner assembles the Self-Evolve engine and the Professor
// orchestrator into the two public service modes (spec §4.5): the Basic
// Runner and the Enhanced Runner.
package runner

import (
	"context"

	"github.com/selfevolve/orchestrator/pkg/selfevolve"
)

// ProgressFunc reports fractional progress (0..1) and a phase label to a
// caller outside the engine (e.g. a worker updating a JobRecord).
type ProgressFunc func(fraction float64, phase string)

// SolveRequest is the input common to Solve and the seed of ResumeSolve.
type SolveRequest struct {
	Question    string
	Context     string
	Constraints string
	Metadata    map[string]any
	Progress    ProgressFunc

	// MaxItersOverride, when non-zero, overrides the runner's configured
	// max_iters for this call (spec §4.5 "max_iters from config or request
	// override").
	MaxItersOverride int
}

// ResumeRequest resumes a prior evolution history for AdditionalIterations
// more iterations (spec §4.5).
type ResumeRequest struct {
	Question            string
	Context              string
	Constraints           string
	Metadata              map[string]any
	Progress              ProgressFunc
	History               selfevolve.EvolutionHistory
	AdditionalIterations  int
}

// Runner is the shared interface for the Basic and Enhanced runners.
type Runner interface {
	Solve(ctx context.Context, req SolveRequest) (*selfevolve.Solution, error)
	ResumeSolve(ctx context.Context, req ResumeRequest) (*selfevolve.Solution, error)
}

func toProblem(question, problemContext, constraints string, metadata map[string]any) selfevolve.Problem {
	return selfevolve.Problem{
		Question:    question,
		Context:     problemContext,
		Constraints: constraints,
		Metadata:    metadata,
	}
}
