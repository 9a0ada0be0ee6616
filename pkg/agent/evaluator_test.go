package agent

import (
	"context"
	"testing"
)

func TestEvaluator_SetsShouldStop(t *testing.T) {
	fp := &fakeProvider{CompleteText: []string{"Looks complete and correct. <stop>"}}
	e := NewEvaluator(fp, "evaluate", 0.2, "<stop>")

	result, err := e.Run(context.Background(), Context{Prompt: "2+2?", PriorOutput: "4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ShouldStop(result) {
		t.Fatal("expected should_stop=true in metadata")
	}
}

func TestEvaluator_GuidelinePhraseDoesNotStop(t *testing.T) {
	fp := &fakeProvider{CompleteText: []string{"Remember to use the <stop> token when the solution is complete."}}
	e := NewEvaluator(fp, "evaluate", 0.2, "<stop>")

	result, err := e.Run(context.Background(), Context{Prompt: "2+2?", PriorOutput: "4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ShouldStop(result) {
		t.Fatal("expected should_stop=false for guideline-style phrase")
	}
}

func TestNeutralEvaluation(t *testing.T) {
	neutral := NeutralEvaluation()
	if ShouldStop(neutral) {
		t.Fatal("neutral evaluation must never set should_stop")
	}
}
