package agent

import (
	"context"
	"testing"
)

func TestGenerator_ReturnsOutputWithoutShouldStop(t *testing.T) {
	fp := &fakeProvider{CompleteText: []string{"A twenty word answer with plenty of content to satisfy the minimum word validity requirement easily."}}
	g := NewGenerator(fp, "generate", 0.7)

	result, err := g.Run(context.Background(), Context{Prompt: "Explain something."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Metadata["should_stop"]; ok {
		t.Fatal("generator must never set should_stop")
	}
	if result.OutputText == "" {
		t.Fatal("expected non-empty output")
	}
}
