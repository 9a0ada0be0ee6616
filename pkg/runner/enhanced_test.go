package runner

import (
	"context"
	"testing"

	"github.com/selfevolve/orchestrator/pkg/agent"
	"github.com/selfevolve/orchestrator/pkg/provider"
	"github.com/selfevolve/orchestrator/pkg/provider/providertest"
)

func TestEnhancedRunner_Solve_DispatchesSpecialistAndSynthesizes(t *testing.T) {
	functionsResp := &provider.Response{
		Content: `consult_graduate_specialist({"specialization": "algebra", "specific_task": "solve for x"})`,
	}
	prof := &providertest.FakeProvider{FunctionsResp: functionsResp, CompleteText: []string{"synthesized final answer covering all of the specialist findings adequately well"}}

	buildSpecialist := func(spec agent.NormalizedConsultation) (gen, eval, ref agent.Agent, err error) {
		return &scriptedAgent{role: agent.RoleGenerator},
			&stopEvaluator{shouldStop: []bool{true}},
			&passthroughRefiner{}, nil
	}

	eval := &stopEvaluator{shouldStop: []bool{true}}
	ref := &passthroughRefiner{}

	r := NewEnhancedRunner(prof, "system", 0.2, eval, ref, 2, 4, buildSpecialist, EngineOptions{JobID: "job-xyz"})

	sol, err := r.Solve(context.Background(), SolveRequest{Question: "solve the equation"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Iterations != 1 {
		t.Fatalf("expected 1 outer iteration (evaluator stopped), got %d", sol.Iterations)
	}
	if sol.Output == "" {
		t.Fatal("expected non-empty synthesized output")
	}
}

func TestEnhancedRunner_ProgressCallback_SpansPhases(t *testing.T) {
	functionsResp := &provider.Response{Content: ""}
	prof := &providertest.FakeProvider{FunctionsResp: functionsResp, CompleteText: []string{"a plain fallback completion with plenty of words in it"}}

	buildSpecialist := func(spec agent.NormalizedConsultation) (gen, eval, ref agent.Agent, err error) {
		return &scriptedAgent{role: agent.RoleGenerator}, &stopEvaluator{shouldStop: []bool{true}}, &passthroughRefiner{}, nil
	}

	eval := &stopEvaluator{shouldStop: []bool{true}}
	ref := &passthroughRefiner{}

	var fractions []float64
	r := NewEnhancedRunner(prof, "system", 0.2, eval, ref, 1, 2, buildSpecialist, EngineOptions{JobID: "job-abc"})
	_, err := r.Solve(context.Background(), SolveRequest{
		Question: "q",
		Progress: func(fraction float64, phase string) { fractions = append(fractions, fraction) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range fractions {
		if f < 0 || f > 1 {
			t.Fatalf("expected fraction in [0,1], got %f", f)
		}
	}
	if len(fractions) == 0 {
		t.Fatal("expected at least one progress report across phases")
	}
}
