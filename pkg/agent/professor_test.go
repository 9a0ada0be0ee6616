package agent

import (
	"context"
	"testing"

	"github.com/selfevolve/orchestrator/pkg/provider"
)

type fakeSpecialistEngine struct {
	solution SpecialistSolution
	err      error
}

func (f *fakeSpecialistEngine) Solve(ctx context.Context, question string) (SpecialistSolution, error) {
	return f.solution, f.err
}

func TestProfessor_DispatchesStructuredToolCall(t *testing.T) {
	fp := &fakeProvider{
		FunctionsResp: &provider.Response{
			Content: "",
			FunctionCalls: []provider.FunctionCall{
				{
					Name: consultToolName,
					Arguments: map[string]any{
						"specialization": "number theory",
						"specific_task":  "classify solutions",
					},
				},
			},
		},
		CompleteText: []string{"Synthesized final answer."},
	}

	var dispatched NormalizedConsultation
	factory := func(c NormalizedConsultation) (SpecialistEngine, error) {
		dispatched = c
		return &fakeSpecialistEngine{solution: SpecialistSolution{
			AnswerTagValue: "42",
			IterationCount: 2,
			TotalTokens:    100,
			FinalAnswer:    "The answer is 42.",
		}}, nil
	}

	pr := NewProfessor(fp, "professor system prompt", 0.7, "job-1", factory)
	result, err := pr.Run(context.Background(), Context{Prompt: "solve the puzzle"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dispatched.Specialization != "number theory" {
		t.Fatalf("expected specialization to be dispatched, got %q", dispatched.Specialization)
	}

	if result.Metadata["specialist_count"] != 1 {
		t.Fatalf("expected exactly one specialist_result, got %v", result.Metadata["specialist_count"])
	}

	summaries, ok := result.Metadata["specialist_results"].([]map[string]any)
	if !ok || len(summaries) != 1 {
		t.Fatalf("expected one specialist summary, got %v", result.Metadata["specialist_results"])
	}
	if summaries[0]["specialization"] != "number theory" {
		t.Fatalf("expected specialization=number theory, got %v", summaries[0]["specialization"])
	}
	if summaries[0]["final_answer_value"] != "42" {
		t.Fatalf("expected final_answer_value=42, got %v", summaries[0]["final_answer_value"])
	}

	if result.OutputText != "Synthesized final answer." {
		t.Fatalf("expected synthesis output, got %q", result.OutputText)
	}
}

func TestProfessor_ContinuesAfterOneConsultationFails(t *testing.T) {
	fp := &fakeProvider{
		FunctionsResp: &provider.Response{
			FunctionCalls: []provider.FunctionCall{
				{Name: consultToolName, Arguments: map[string]any{"specialization": "algebra", "specific_task": "solve"}},
				{Name: consultToolName, Arguments: map[string]any{"specialization": "geometry", "specific_task": "verify"}},
			},
		},
		CompleteText: []string{"Synthesis despite one failure."},
	}

	calls := 0
	factory := func(c NormalizedConsultation) (SpecialistEngine, error) {
		calls++
		if c.Specialization == "algebra" {
			return nil, assertErr{"specialist unavailable"}
		}
		return &fakeSpecialistEngine{solution: SpecialistSolution{AnswerTagValue: "ok"}}, nil
	}

	pr := NewProfessor(fp, "sys", 0.7, "job-2", factory)
	result, err := pr.Run(context.Background(), Context{Prompt: "solve"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both consultations dispatched sequentially, got %d calls", calls)
	}
	summaries := result.Metadata["specialist_results"].([]map[string]any)
	if summaries[0]["error"] == nil {
		t.Fatal("expected first consultation to record an error")
	}
	if summaries[1]["final_answer_value"] != "ok" {
		t.Fatal("expected second consultation to succeed despite the first failing")
	}
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
