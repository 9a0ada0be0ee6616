package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/selfevolve/orchestrator/pkg/broker"
	"github.com/selfevolve/orchestrator/pkg/models"
	"github.com/selfevolve/orchestrator/pkg/store"
)

type scriptedExecutor struct {
	mu      sync.Mutex
	results map[string]*ExecutionResult
	ran     []string
}

func (e *scriptedExecutor) Execute(ctx context.Context, task broker.Task) *ExecutionResult {
	e.mu.Lock()
	e.ran = append(e.ran, task.TaskID)
	e.mu.Unlock()
	if r, ok := e.results[task.TaskID]; ok {
		return r
	}
	return &ExecutionResult{Status: models.JobStatusCompleted, Result: `{}`}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPool_ProcessesSubmittedJobToCompletion(t *testing.T) {
	b := broker.NewInMemoryBroker()
	s := store.NewMemoryStore()
	exec := &scriptedExecutor{results: map[string]*ExecutionResult{}}

	pool := NewPool("test-pool", b, s, exec, Options{
		WorkerCount:    2,
		PollInterval:   10 * time.Millisecond,
		SessionTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	err := SubmitJob(context.Background(), b, s, "job-1", models.SolveRequest{Question: "2+2?", Mode: models.ModeBasic}, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		fields, _ := s.GetJobFields(context.Background(), "job-1")
		return fields["status"] == string(models.JobStatusCompleted)
	})

	fields, err := s.GetJobFields(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get job fields: %v", err)
	}
	if fields["result"] != `{}` {
		t.Fatalf("expected result field to be written, got %q", fields["result"])
	}
}

func TestPool_DuplicateClaimSkippedWhenLockHeld(t *testing.T) {
	b := broker.NewInMemoryBroker()
	s := store.NewMemoryStore()
	exec := &scriptedExecutor{results: map[string]*ExecutionResult{}}

	if err := s.AcquireLock(context.Background(), "job-locked", time.Minute); err != nil {
		t.Fatalf("pre-acquire lock: %v", err)
	}

	pool := NewPool("test-pool", b, s, exec, Options{
		WorkerCount:    1,
		PollInterval:   10 * time.Millisecond,
		SessionTimeout: time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	if err := SubmitJob(context.Background(), b, s, "job-locked", models.SolveRequest{Question: "q", Mode: models.ModeBasic}, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	exec.mu.Lock()
	ran := len(exec.ran)
	exec.mu.Unlock()
	if ran != 0 {
		t.Fatalf("expected executor not to run for a locked job, ran %d times", ran)
	}
}

func TestPool_CancelJobPropagatesToExecutionContext(t *testing.T) {
	b := broker.NewInMemoryBroker()
	s := store.NewMemoryStore()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	exec := &blockingExecutor{started: started, cancelled: cancelled}

	pool := NewPool("test-pool", b, s, exec, Options{
		WorkerCount:    1,
		PollInterval:   10 * time.Millisecond,
		SessionTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	if err := SubmitJob(context.Background(), b, s, "job-cancel", models.SolveRequest{Question: "q", Mode: models.ModeBasic}, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("executor never started")
	}

	waitFor(t, time.Second, func() bool { return pool.CancelJob("job-cancel") })

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("expected execution context to be cancelled")
	}
}

type blockingExecutor struct {
	started   chan struct{}
	cancelled chan struct{}
}

func (e *blockingExecutor) Execute(ctx context.Context, task broker.Task) *ExecutionResult {
	close(e.started)
	<-ctx.Done()
	close(e.cancelled)
	return &ExecutionResult{Status: models.JobStatusCancelled, Err: ctx.Err()}
}
