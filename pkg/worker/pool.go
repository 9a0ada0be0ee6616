package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/selfevolve/orchestrator/pkg/broker"
	"github.com/selfevolve/orchestrator/pkg/store"
)

// PoolHealth reports the health of the entire pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	TotalWorkers  int            `json:"total_workers"`
	ActiveWorkers int            `json:"active_workers"`
	ActiveJobs    int            `json:"active_jobs"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth reports the health of a single worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}

// Options configures a Pool.
type Options struct {
	WorkerCount    int
	PollInterval   time.Duration
	SessionTimeout time.Duration
	LockTTL        time.Duration // defaults to SessionTimeout when zero
}

// Pool manages a fixed-size set of Workers draining one Broker.
type Pool struct {
	id       string
	broker   broker.Broker
	store    store.Store
	executor JobExecutor
	opts     Options

	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	activeJobs map[string]context.CancelFunc
	mu         sync.RWMutex
}

// NewPool builds a worker pool.
func NewPool(id string, b broker.Broker, s store.Store, executor JobExecutor, opts Options) *Pool {
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.SessionTimeout
	}
	return &Pool{
		id:         id,
		broker:     b,
		store:      s,
		executor:   executor,
		opts:       opts,
		workers:    make([]*Worker, 0, opts.WorkerCount),
		stopCh:     make(chan struct{}),
		activeJobs: make(map[string]context.CancelFunc),
	}
}

// Start spawns the pool's worker goroutines. Safe to call once; later
// calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call", "pool_id", p.id)
		return
	}
	p.started = true

	slog.Info("starting worker pool", "pool_id", p.id, "worker_count", p.opts.WorkerCount)
	for i := 0; i < p.opts.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.id, i)
		w := NewWorker(workerID, p.broker, p.store, p.executor, p, p.opts.PollInterval, p.opts.SessionTimeout, p.opts.LockTTL)
		p.workers = append(p.workers, w)
		w.Start(ctx)
	}
}

// Stop signals every worker to finish its current job and waits for all
// of them to exit.
func (p *Pool) Stop() {
	slog.Info("stopping worker pool gracefully", "pool_id", p.id)
	active := p.activeJobIDs()
	if len(active) > 0 {
		slog.Info("waiting for active jobs to complete", "count", len(active), "job_ids", active)
	}
	for _, w := range p.workers {
		w.Stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	slog.Info("worker pool stopped gracefully", "pool_id", p.id)
}

// RegisterJob stores a cancel function so CancelJob can reach it later.
func (p *Pool) RegisterJob(jobID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeJobs[jobID] = cancel
}

// UnregisterJob removes the cancel function once a job finishes.
func (p *Pool) UnregisterJob(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeJobs, jobID)
}

// CancelJob triggers context cancellation for a job running on this pool.
// Returns true if the job was found and cancelled here.
func (p *Pool) CancelJob(jobID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeJobs[jobID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns a snapshot of the pool and its workers.
func (p *Pool) Health() *PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		h := w.Health()
		stats[i] = h
		if h.Status == string(StatusWorking) {
			active++
		}
	}
	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0,
		TotalWorkers:  len(p.workers),
		ActiveWorkers: active,
		ActiveJobs:    len(p.activeJobIDs()),
		WorkerStats:   stats,
	}
}

func (p *Pool) activeJobIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeJobs))
	for id := range p.activeJobs {
		ids = append(ids, id)
	}
	return ids
}
