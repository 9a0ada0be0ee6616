// Package models defines the wire/storage shapes shared between the engine,
// the runners, and the external job store and broker.
package models

import "time"

// JobStatus is the lifecycle state of a JobRecord.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Mode selects which Runner processes a job.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeEnhanced Mode = "enhanced"
)

// SolveRequest is the serialized form of a client's solve submission.
// It is stored verbatim under JobRecord.Request for audit/resume purposes.
type SolveRequest struct {
	Question    string         `json:"question"`
	Context     string         `json:"context,omitempty"`
	Constraints string         `json:"constraints,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Mode        Mode           `json:"mode"`
	MaxIters    int            `json:"max_iters,omitempty"`
	ModelName   string         `json:"model_name,omitempty"`
	Provider    string         `json:"provider_name,omitempty"`
}

// JobRecord is the hash stored in the job store, keyed by job id. Field
// names are contractual per spec §6 and are the keys used in the store's
// hash representation (see pkg/store).
type JobRecord struct {
	JobID          string     `json:"job_id"`
	Status         JobStatus  `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Progress       float64    `json:"progress"`
	CurrentPhase   string     `json:"current_phase,omitempty"`
	ModelName      string     `json:"model_name,omitempty"`
	ProviderName   string     `json:"provider_name,omitempty"`
	Request        string     `json:"request"` // JSON-serialized SolveRequest
	Mode           Mode       `json:"mode"`
	Result         string     `json:"result,omitempty"`          // JSON-serialized Solution
	Error          string     `json:"error,omitempty"`           // set on failure
	PartialResults string     `json:"partial_results,omitempty"` // JSON-serialized snapshot
	ContinuedFrom  string     `json:"continued_from,omitempty"`  // parent job id, for resumes
}

// PartialResultSnapshot is the value serialized into JobRecord.PartialResults
// at each iteration boundary (spec §4.3 step 7, §6).
type PartialResultSnapshot struct {
	IterationsSoFar int       `json:"iterations_so_far"`
	LatestIteration any       `json:"latest_iteration"`
	FullHistory     any       `json:"full_history"`
	Timestamp       time.Time `json:"timestamp"`
}
