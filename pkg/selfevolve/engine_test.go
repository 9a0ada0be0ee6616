package selfevolve

import (
	"context"
	"errors"
	"testing"

	"github.com/selfevolve/orchestrator/pkg/agent"
)

func TestSolve_NormalConvergence_S1(t *testing.T) {
	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{validOutput}}
	eval := &stopEvaluator{shouldStop: []bool{true}}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 5})
	sol, err := e.Solve(context.Background(), Problem{Question: "2+2?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Iterations != 1 {
		t.Fatalf("expected 1 iteration, got %d", sol.Iterations)
	}
	if !sol.Metadata.Converged || sol.Metadata.StopReason != StopReasonEvaluatorStop {
		t.Fatalf("expected converged evaluator_stop, got %+v", sol.Metadata)
	}
	if sol.Metadata.FallbackUsed {
		t.Fatal("expected fallback_used=false")
	}
}

func TestSolve_MaxIterationsNoStop_S3(t *testing.T) {
	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{validOutput, validOutput, validOutput}}
	eval := &stopEvaluator{shouldStop: []bool{false, false, false}}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 3})
	sol, err := e.Solve(context.Background(), Problem{Question: "2+2?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Iterations != 3 {
		t.Fatalf("expected 3 iterations, got %d", sol.Iterations)
	}
	if sol.Metadata.Converged || sol.Metadata.StopReason != StopReasonMaxIterations {
		t.Fatalf("expected non-converged max_iterations, got %+v", sol.Metadata)
	}
}

func TestResumeSolve_ContinuationFallback_S4(t *testing.T) {
	validText := "The capital of France is Paris, which is located in the north-central part of the country."
	history := EvolutionHistory{
		{Iteration: 1, Prompt: "q", Output: validText, RefinedPrompt: "q (refined)", RoleMetadata: map[string]RoleRecord{}},
	}

	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{""}}
	eval := &stopEvaluator{}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 5, AllowContinuationFallback: true})
	sol, err := e.ResumeSolve(context.Background(), Problem{Question: "capital?"}, history, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Output != validText {
		t.Fatalf("expected fallback output to equal best iteration's output, got %q", sol.Output)
	}
	if !sol.Metadata.FallbackUsed || sol.Metadata.StopReason != StopReasonFallbackToBest || !sol.Metadata.Converged {
		t.Fatalf("expected fallback metadata, got %+v", sol.Metadata)
	}
	if sol.Metadata.FallbackDiagnostic == "" {
		t.Fatal("expected a fallback diagnostic")
	}
}

func TestSolve_HardFailureNoValidHistory_S5(t *testing.T) {
	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{""}}
	eval := &stopEvaluator{}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 5})
	_, err := e.Solve(context.Background(), Problem{Question: "2+2?"})

	var noValid *NoValidIterationError
	if !errors.As(err, &noValid) {
		t.Fatalf("expected NoValidIterationError, got %v", err)
	}
	if noValid.Reason != "No valid iteration found; marking task as failed." {
		t.Fatalf("unexpected message: %q", noValid.Reason)
	}
}

func TestResumeSolve_InvalidHistory_ValidationError(t *testing.T) {
	history := EvolutionHistory{
		{Iteration: 1, Output: "too short"},
	}
	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{validOutput}}
	eval := &stopEvaluator{}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 5})
	_, err := e.ResumeSolve(context.Background(), Problem{Question: "q"}, history, 2)

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSolve_CancelledBeforeFirstCall(t *testing.T) {
	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{validOutput}}
	eval := &stopEvaluator{}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 5})
	e.Cancel()

	_, err := e.Solve(context.Background(), Problem{Question: "q"})
	var cancelled *CancelledError
	if !errors.As(err, &cancelled) {
		t.Fatalf("expected CancelledError, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generator calls after pre-cancellation, got %d", gen.calls)
	}
}

func TestSolve_MaxItersOne(t *testing.T) {
	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{validOutput}}
	eval := &stopEvaluator{shouldStop: []bool{false}}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 1})
	sol, err := e.Solve(context.Background(), Problem{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Iterations != 1 || sol.Metadata.StopReason != StopReasonMaxIterations {
		t.Fatalf("expected single max_iterations iteration, got %+v", sol.Metadata)
	}
	if ref.calls != 0 {
		t.Fatal("refiner must not run past max_iters")
	}
}

func TestTotalTokens_ExcludesInvalidRetries(t *testing.T) {
	gen := &scriptedAgent{role: agent.RoleGenerator, outputs: []string{"too short", validOutput}}
	eval := &stopEvaluator{shouldStop: []bool{true}}
	ref := &passthroughRefiner{}

	e := NewEngine(Config{Generator: gen, Evaluator: eval, Refiner: ref, MaxIters: 5})
	sol, err := e.Solve(context.Background(), Problem{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Iterations != 1 {
		t.Fatalf("expected 1 iteration, got %d", sol.Iterations)
	}
	expectedTokens := len(validOutput)/4 + 5
	if sol.TotalTokens != expectedTokens {
		t.Fatalf("expected total tokens %d (excluding invalid retry), got %d", expectedTokens, sol.TotalTokens)
	}
}

func TestValidityPredicate_WordCountBoundary(t *testing.T) {
	nineWords := "one two three four five six seven eight nine"
	tenWords := nineWords + " ten"
	if IsValidOutput(nineWords) {
		t.Fatal("expected 9-word output to be rejected")
	}
	if !IsValidOutput(tenWords) {
		t.Fatal("expected 10-word output to be accepted")
	}
}
