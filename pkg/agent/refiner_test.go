package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRefiner_UsesProviderOutput(t *testing.T) {
	fp := &fakeProvider{CompleteText: []string{"Refined prompt that keeps the working parts."}}
	r := NewRefiner(fp, "refine", 0.3)

	result, err := r.Run(context.Background(), Context{
		Prompt:      "2+2?",
		PriorOutput: "4",
		Feedback:    "unclear reasoning",
		Iteration:   1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metadata["fallback_used"] != false {
		t.Fatalf("expected fallback_used=false, got %v", result.Metadata["fallback_used"])
	}
}

func TestRefiner_FallsBackOnProviderError(t *testing.T) {
	fp := &fakeProvider{CompleteErr: errors.New("boom")}
	r := NewRefiner(fp, "refine", 0.3)

	result, err := r.Run(context.Background(), Context{
		Prompt:      "Original question",
		PriorOutput: "4",
		Feedback:    "the calculation is wrong",
		Iteration:   2,
	})
	if err != nil {
		t.Fatalf("refiner must not surface provider errors: %v", err)
	}
	if result.Metadata["fallback_used"] != true {
		t.Fatal("expected fallback_used=true")
	}
	if !strings.Contains(result.OutputText, "arithmetic") {
		t.Fatalf("expected calculation-keyed fallback instruction, got %q", result.OutputText)
	}
}

func TestDeterministicRefine_KeywordMatch(t *testing.T) {
	out := deterministicRefine("What is 2+2?", "the explanation is unclear")
	if !strings.Contains(out, "Clarify") {
		t.Fatalf("expected unclear-keyed instruction, got %q", out)
	}
}

func TestDeterministicRefine_NoKeywordMatch(t *testing.T) {
	out := deterministicRefine("What is 2+2?", "meh")
	if !strings.Contains(out, "Revise the answer") {
		t.Fatalf("expected generic fallback instruction, got %q", out)
	}
}
