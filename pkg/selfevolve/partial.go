package selfevolve

import (
	"context"
	"time"
)

// PartialResultSnapshot is written at each iteration boundary (spec §4.3
// step 7, §6). It mirrors pkg/models.PartialResultSnapshot's shape so a
// PartialResultWriter backed by the job store can serialize it directly.
type PartialResultSnapshot struct {
	IterationsSoFar int              `json:"iterations_so_far"`
	LatestIteration IterationRecord  `json:"latest_iteration"`
	FullHistory     EvolutionHistory `json:"full_history"`
	Timestamp       time.Time        `json:"timestamp"`
}

// PartialResultWriter is the engine's view of the job store: just enough
// to persist a snapshot, so engine tests need no store dependency (spec §9
// "Partial-result persistence coupled to the engine"). pkg/store provides
// an adapter from Store to this interface.
type PartialResultWriter interface {
	WritePartialResult(ctx context.Context, jobID string, snapshot PartialResultSnapshot) error
}

// NoopPartialResultWriter discards every snapshot. Used when no job-id/store
// is bound to an engine run, and in unit tests.
type NoopPartialResultWriter struct{}

func (NoopPartialResultWriter) WritePartialResult(ctx context.Context, jobID string, snapshot PartialResultSnapshot) error {
	return nil
}
