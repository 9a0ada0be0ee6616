package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/selfevolve/orchestrator/pkg/broker"
	"github.com/selfevolve/orchestrator/pkg/models"
	"github.com/selfevolve/orchestrator/pkg/runner"
	"github.com/selfevolve/orchestrator/pkg/selfevolve"
	"github.com/selfevolve/orchestrator/pkg/store"
)

// Broker task argument keys used by Submit/Execute to pass a job's request
// payload and, for resumes, its prior evolution history.
const (
	ArgSolveRequest         = "solve_request"
	ArgHistory              = "history"
	ArgAdditionalIterations = "additional_iterations"
)

// RunnerFactory builds the Runner that should process one job, selecting
// between BasicRunner and EnhancedRunner by req.Mode and binding jobID so
// the engine's partial-result writes land under the right job hash.
type RunnerFactory func(jobID string, req models.SolveRequest) (runner.Runner, error)

// RunnerExecutor implements JobExecutor by delegating to a Runner built
// per job, reporting progress into the Store as the run proceeds.
type RunnerExecutor struct {
	Store       store.Store
	BuildRunner RunnerFactory
}

// NewRunnerExecutor builds a RunnerExecutor.
func NewRunnerExecutor(s store.Store, build RunnerFactory) *RunnerExecutor {
	return &RunnerExecutor{Store: s, BuildRunner: build}
}

func (e *RunnerExecutor) Execute(ctx context.Context, task broker.Task) *ExecutionResult {
	req, ok := task.Args[ArgSolveRequest].(models.SolveRequest)
	if !ok {
		return &ExecutionResult{Status: models.JobStatusFailed, Err: fmt.Errorf("task %s: missing %s argument", task.TaskID, ArgSolveRequest)}
	}

	r, err := e.BuildRunner(task.TaskID, req)
	if err != nil {
		return &ExecutionResult{Status: models.JobStatusFailed, Err: fmt.Errorf("building runner: %w", err)}
	}

	progress := func(fraction float64, phase string) {
		if setErr := e.Store.SetJobFields(ctx, task.TaskID, map[string]string{
			"progress":      strconv.FormatFloat(fraction, 'f', 4, 64),
			"current_phase": phase,
		}); setErr != nil {
			return
		}
	}

	var sol *selfevolve.Solution
	if history, hasHistory := task.Args[ArgHistory].(selfevolve.EvolutionHistory); hasHistory {
		additional, _ := task.Args[ArgAdditionalIterations].(int)
		sol, err = r.ResumeSolve(ctx, runner.ResumeRequest{
			Question:             req.Question,
			Context:              req.Context,
			Constraints:          req.Constraints,
			Metadata:             req.Metadata,
			Progress:             progress,
			History:              history,
			AdditionalIterations: additional,
		})
	} else {
		sol, err = r.Solve(ctx, runner.SolveRequest{
			Question:         req.Question,
			Context:          req.Context,
			Constraints:      req.Constraints,
			Metadata:         req.Metadata,
			Progress:         progress,
			MaxItersOverride: req.MaxIters,
		})
	}

	if err != nil {
		var cancelled *selfevolve.CancelledError
		if errors.As(err, &cancelled) {
			return &ExecutionResult{Status: models.JobStatusCancelled, Err: err}
		}
		return &ExecutionResult{Status: models.JobStatusFailed, Err: err}
	}

	data, marshalErr := json.Marshal(sol)
	if marshalErr != nil {
		return &ExecutionResult{Status: models.JobStatusFailed, Err: fmt.Errorf("marshaling solution: %w", marshalErr)}
	}

	return &ExecutionResult{Status: models.JobStatusCompleted, Result: string(data)}
}
