package store

import (
	"context"
	"strings"
	"testing"

	"github.com/selfevolve/orchestrator/pkg/selfevolve"
)

func TestPartialResultAdapter_WritesSerializedSnapshot(t *testing.T) {
	s := NewMemoryStore()
	adapter := NewPartialResultAdapter(s)
	ctx := context.Background()

	snapshot := selfevolve.PartialResultSnapshot{
		IterationsSoFar: 2,
		LatestIteration: selfevolve.IterationRecord{Iteration: 2, Output: "partial answer"},
	}
	if err := adapter.WritePartialResult(ctx, "job-1", snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, err := s.GetJobFields(ctx, "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, ok := fields[PartialResultsField]
	if !ok {
		t.Fatal("expected partial_results field to be set")
	}
	if !strings.Contains(raw, "partial answer") {
		t.Fatalf("expected serialized snapshot to contain output, got %q", raw)
	}
}
