package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/selfevolve/orchestrator/pkg/broker"
	"github.com/selfevolve/orchestrator/pkg/models"
	"github.com/selfevolve/orchestrator/pkg/selfevolve"
	"github.com/selfevolve/orchestrator/pkg/store"
)

// TaskNameSolve is the broker task name for a fresh Self-Evolve run.
const TaskNameSolve = "solve"

// SubmitJob writes a pending JobRecord to the store and enqueues the
// corresponding broker task. jobID becomes both the store key and the
// broker task_id, so a later Revoke(jobID) maps onto this job's
// cancellation path (spec §5, §6).
func SubmitJob(ctx context.Context, b broker.Broker, s store.Store, jobID string, req models.SolveRequest, ttl time.Duration) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling solve request: %w", err)
	}

	fields := map[string]string{
		"job_id":        jobID,
		"status":        string(models.JobStatusPending),
		"created_at":    time.Now().Format(time.RFC3339Nano),
		"request":       string(reqJSON),
		"mode":          string(req.Mode),
		"model_name":    req.ModelName,
		"provider_name": req.Provider,
	}
	if err := s.SetJobFields(ctx, jobID, fields); err != nil {
		return fmt.Errorf("writing job record: %w", err)
	}
	if ttl > 0 {
		if err := s.SetTTL(ctx, jobID, ttl); err != nil {
			return fmt.Errorf("setting job ttl: %w", err)
		}
	}

	return b.Submit(ctx, broker.Task{
		TaskName: TaskNameSolve,
		TaskID:   jobID,
		Args:     map[string]any{ArgSolveRequest: req},
	})
}

// SubmitResume writes a job record marked continued_from the parent job
// and enqueues a resume task carrying the prior evolution history.
func SubmitResume(ctx context.Context, b broker.Broker, s store.Store, jobID, parentJobID string, req models.SolveRequest, history selfevolve.EvolutionHistory, additionalIterations int, ttl time.Duration) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling solve request: %w", err)
	}

	fields := map[string]string{
		"job_id":         jobID,
		"status":         string(models.JobStatusPending),
		"created_at":     time.Now().Format(time.RFC3339Nano),
		"request":        string(reqJSON),
		"mode":           string(req.Mode),
		"model_name":     req.ModelName,
		"provider_name":  req.Provider,
		"continued_from": parentJobID,
	}
	if err := s.SetJobFields(ctx, jobID, fields); err != nil {
		return fmt.Errorf("writing job record: %w", err)
	}
	if ttl > 0 {
		if err := s.SetTTL(ctx, jobID, ttl); err != nil {
			return fmt.Errorf("setting job ttl: %w", err)
		}
	}

	return b.Submit(ctx, broker.Task{
		TaskName: TaskNameSolve,
		TaskID:   jobID,
		Args: map[string]any{
			ArgSolveRequest:         req,
			ArgHistory:              history,
			ArgAdditionalIterations: additionalIterations,
		},
	})
}
