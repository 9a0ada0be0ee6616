package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/selfevolve/orchestrator/pkg/selfevolve"
)

// PartialResultAdapter adapts a Store into selfevolve.PartialResultWriter
// by serializing each snapshot into the job hash's reserved
// "partial_results" field (spec §6).
type PartialResultAdapter struct {
	Store Store
}

// NewPartialResultAdapter builds a PartialResultAdapter over store.
func NewPartialResultAdapter(s Store) *PartialResultAdapter {
	return &PartialResultAdapter{Store: s}
}

func (a *PartialResultAdapter) WritePartialResult(ctx context.Context, jobID string, snapshot selfevolve.PartialResultSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("partial result adapter: marshal snapshot: %w", err)
	}
	return a.Store.SetJobFields(ctx, jobID, map[string]string{
		PartialResultsField: string(data),
	})
}
