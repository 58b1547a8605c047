package service

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned when work is handed to a stopped pool.
var ErrPoolClosed = errors.New("worker pool is stopped")

// Task is a unit of background work. ctx is cancelled when the pool stops.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed set of workers with bounded admission.
//
// A caller first reserves a slot with TryAcquire, then hands the task over with
// Enqueue. Slots cover both queued and running tasks, so Enqueue never blocks.
type Pool struct {
	workers int
	slots   *semaphore.Weighted
	queue   chan Task

	mu      sync.Mutex
	started bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	group   errgroup.Group
}

// NewPool creates a pool with the given worker count and queue depth.
// Parameters:
//   - workers: number of concurrent tasks.
//   - queueSize: number of tasks that may wait beyond the running ones.
// Returns:
//   - *Pool: stopped pool; call Start before use.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	capacity := workers + queueSize
	return &Pool{
		workers: workers,
		slots:   semaphore.NewWeighted(int64(capacity)),
		queue:   make(chan Task, capacity),
	}
}

// Start launches the workers. Tasks receive a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.group.Go(func() error {
			for task := range p.queue {
				p.runTask(task)
			}
			return nil
		})
	}
}

func (p *Pool) runTask(task Task) {
	defer p.slots.Release(1)
	task(p.ctx)
}

// TryAcquire reserves a slot without blocking. It reports false when the pool is
// full, stopped or not yet started.
func (p *Pool) TryAcquire() bool {
	p.mu.Lock()
	running := p.started && !p.closed
	p.mu.Unlock()
	if !running {
		return false
	}
	return p.slots.TryAcquire(1)
}

// Release returns a slot reserved with TryAcquire that will not be used.
func (p *Pool) Release() {
	p.slots.Release(1)
}

// Enqueue hands a task to the workers. The caller must hold a slot from TryAcquire;
// the slot is released when the task returns, or immediately on error.
func (p *Pool) Enqueue(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.started {
		p.slots.Release(1)
		return ErrPoolClosed
	}
	p.queue <- task
	return nil
}

// Stop refuses new work, cancels running tasks and waits for the workers to drain
// the queue or for ctx to end.
// Parameters:
//   - ctx: bounds the wait.
// Returns:
//   - error: ctx.Err() if the workers did not finish in time.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
