package broker

import (
	"context"
	"sync"
)

// InMemoryBroker is a process-local FIFO Broker, suitable for single-binary
// deployments and tests. Revoked task_ids are tracked so a worker can poll
// IsRevoked between suspension points (spec §5 cancellation).
type InMemoryBroker struct {
	mu      sync.Mutex
	pending []Task
	revoked map[string]bool
}

// NewInMemoryBroker builds an empty InMemoryBroker.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{revoked: make(map[string]bool)}
}

func (b *InMemoryBroker) Submit(ctx context.Context, task Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, task)
	return nil
}

func (b *InMemoryBroker) Claim(ctx context.Context) (Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return Task{}, ErrNoTasksAvailable
	}
	task := b.pending[0]
	b.pending = b.pending[1:]
	return task, nil
}

func (b *InMemoryBroker) Revoke(ctx context.Context, taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[taskID] = true
	return nil
}

// IsRevoked reports whether taskID has been revoked. Workers poll this
// alongside their own cancellation checks.
func (b *InMemoryBroker) IsRevoked(taskID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revoked[taskID]
}

// Len returns the number of currently pending tasks (used by health/tests).
func (b *InMemoryBroker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
