// Package broker implements the abstract job-broker contract (spec §6):
// a task queue that accepts {task_name, args, task_id} submissions, where
// task_id equals the jobId so external revocation maps onto the engine's
// cancellation path.
package broker

import (
	"context"
	"errors"
)

// ErrNoTasksAvailable indicates Claim found nothing pending (grounded on
// the teacher's queue.ErrNoSessionsAvailable).
var ErrNoTasksAvailable = errors.New("no tasks available")

// Task is one broker submission. TaskID MUST equal the jobId (spec §6).
type Task struct {
	TaskName string
	Args     map[string]any
	TaskID   string
}

// Broker is the abstract task queue contract.
type Broker interface {
	// Submit enqueues a task for processing.
	Submit(ctx context.Context, task Task) error

	// Claim atomically removes and returns the next pending task, or
	// ErrNoTasksAvailable if the queue is empty.
	Claim(ctx context.Context) (Task, error)

	// Revoke requests cancellation of a previously-submitted task by
	// task_id. Revocation is observed by the worker processing that
	// task_id, which maps it onto Engine.Cancel() (spec §5).
	Revoke(ctx context.Context, taskID string) error
}
