// Package worker drains the job broker and executes jobs against a Runner,
// persisting progress and terminal state to the job store (spec §5, §6).
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/selfevolve/orchestrator/pkg/broker"
	"github.com/selfevolve/orchestrator/pkg/models"
	"github.com/selfevolve/orchestrator/pkg/store"
)

// Status is the current state of a Worker.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
)

// ExecutionResult is the terminal outcome of one job execution. The
// executor is responsible for progressive state (progress/current_phase
// fields written during the run); the Worker writes the running status
// when it claims the job and the terminal state when the run ends.
type ExecutionResult struct {
	Status models.JobStatus
	Result string // JSON-serialized Solution, set on completion
	Err    error
}

// JobExecutor runs one claimed task to completion. Implementations own
// building the Runner for the task's mode and reporting progress into the
// store as the run proceeds.
type JobExecutor interface {
	Execute(ctx context.Context, task broker.Task) *ExecutionResult
}

// jobRegistry is the subset of Pool a Worker needs for cancellation
// registration (mirrors the teacher's SessionRegistry split).
type jobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
}

// Worker polls a Broker for tasks and executes them one at a time.
type Worker struct {
	id             string
	broker         broker.Broker
	store          store.Store
	executor       JobExecutor
	pool           jobRegistry
	pollInterval   time.Duration
	sessionTimeout time.Duration
	lockTTL        time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	mu                sync.RWMutex
	status            Status
	currentJobID      string
	jobsProcessed     int
	lastActivity      time.Time
}

// NewWorker builds a Worker.
func NewWorker(id string, b broker.Broker, s store.Store, executor JobExecutor, pool jobRegistry, pollInterval, sessionTimeout, lockTTL time.Duration) *Worker {
	return &Worker{
		id:             id,
		broker:         b,
		store:          s,
		executor:       executor,
		pool:           pool,
		pollInterval:   pollInterval,
		sessionTimeout: sessionTimeout,
		lockTTL:        lockTTL,
		stopCh:         make(chan struct{}),
		status:         StatusIdle,
		lastActivity:   time.Now(),
	}
}

// Start begins the worker's poll loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its current job to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health reports the worker's current health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, broker.ErrNoTasksAvailable) {
					w.sleep(w.pollIntervalJittered())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	task, err := w.broker.Claim(ctx)
	if err != nil {
		return err
	}

	log := slog.With("job_id", task.TaskID, "worker_id", w.id)

	if err := w.store.AcquireLock(ctx, task.TaskID, w.lockTTL); err != nil {
		if errors.Is(err, store.ErrLockNotAcquired) {
			log.Warn("job already locked by another worker, dropping duplicate claim")
			return nil
		}
		return fmt.Errorf("acquiring job lock: %w", err)
	}
	defer func() {
		if err := w.store.ReleaseLock(context.Background(), task.TaskID); err != nil {
			log.Warn("failed to release job lock", "error", err)
		}
	}()

	log.Info("job claimed")
	w.markRunning(ctx, task.TaskID)

	jobCtx, cancel := context.WithTimeout(ctx, w.sessionTimeout)
	defer cancel()

	w.pool.RegisterJob(task.TaskID, cancel)
	defer w.pool.UnregisterJob(task.TaskID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	go w.runHeartbeat(heartbeatCtx, task.TaskID, cancel)

	w.setStatus(StatusWorking, task.TaskID)
	defer w.setStatus(StatusIdle, "")

	result := w.executor.Execute(jobCtx, task)
	cancelHeartbeat()

	if result == nil {
		result = &ExecutionResult{Status: models.JobStatusFailed, Err: fmt.Errorf("executor returned nil result")}
	}
	if errors.Is(jobCtx.Err(), context.DeadlineExceeded) && result.Status != models.JobStatusCompleted {
		result.Status = models.JobStatusFailed
		if result.Err == nil {
			result.Err = fmt.Errorf("job timed out after %v", w.sessionTimeout)
		}
	}
	if errors.Is(jobCtx.Err(), context.Canceled) && result.Status != models.JobStatusCompleted {
		result.Status = models.JobStatusCancelled
	}

	w.markTerminal(context.Background(), task.TaskID, result)

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job processing complete", "status", result.Status)
	return nil
}

func (w *Worker) markRunning(ctx context.Context, jobID string) {
	now := time.Now().Format(time.RFC3339Nano)
	if err := w.store.SetJobFields(ctx, jobID, map[string]string{
		"status":     string(models.JobStatusRunning),
		"started_at": now,
	}); err != nil {
		slog.Warn("failed to mark job running", "job_id", jobID, "error", err)
	}
}

func (w *Worker) markTerminal(ctx context.Context, jobID string, result *ExecutionResult) {
	fields := map[string]string{
		"status":       string(result.Status),
		"completed_at": time.Now().Format(time.RFC3339Nano),
	}
	if result.Result != "" {
		fields["result"] = result.Result
	}
	if result.Err != nil {
		fields["error"] = result.Err.Error()
	}
	if err := w.store.SetJobFields(ctx, jobID, fields); err != nil {
		slog.Warn("failed to write terminal job state", "job_id", jobID, "error", err)
	}
}

// revocationChecker is an optional Broker extension (implemented by
// InMemoryBroker) that lets the heartbeat loop observe an external Revoke
// call and map it onto cooperative cancellation (spec §5).
type revocationChecker interface {
	IsRevoked(taskID string) bool
}

// runHeartbeat refreshes the job hash's TTL periodically so a long-running
// job's record doesn't expire out from under it mid-execution, and polls
// the broker for an external revocation of jobID.
func (w *Worker) runHeartbeat(ctx context.Context, jobID string, cancel context.CancelFunc) {
	interval := w.lockTTL / 3
	if interval <= 0 {
		interval = 5 * time.Second
	}
	checker, _ := w.broker.(revocationChecker)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.SetTTL(ctx, jobID, w.lockTTL); err != nil {
				slog.Warn("heartbeat ttl refresh failed", "job_id", jobID, "error", err)
			}
			if checker != nil && checker.IsRevoked(jobID) {
				cancel()
			}
		}
	}
}

func (w *Worker) pollIntervalJittered() time.Duration {
	base := w.pollInterval
	if base <= 0 {
		base = time.Second
	}
	jitter := base / 4
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status Status, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
