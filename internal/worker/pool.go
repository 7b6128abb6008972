package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task represents a unit of work for the worker pool. A non-nil error from
// Process makes the pool retry the task.
type Task interface {
	Process(ctx context.Context) error
}

// Options tune a WorkerPool. Zero values take the defaults.
type Options struct {
	QueueSize  int
	MaxRetries int
	// OnDeadLetter is called once a task has failed MaxRetries times.
	OnDeadLetter func(task Task, err error)
}

const (
	defaultQueueSize  = 100
	defaultMaxRetries = 3
)

// WorkerPool manages a pool of worker goroutines
// and a queue of tasks to process
type WorkerPool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	workers int
	logger  logrus.FieldLogger

	mu      sync.RWMutex // guards tasks against close during Submit
	stopped bool
	tasks   chan Task

	deadLetter   []Task
	deadLetterMu sync.Mutex
	maxRetries   int
	onDeadLetter func(Task, error)
}

// PoolStats holds monitoring information about the worker pool
type PoolStats struct {
	ActiveWorkers int
	QueueLength   int
	DeadLetters   int
}

// NewWorkerPool creates a new WorkerPool with the given number of workers.
func NewWorkerPool(workers int, opts Options, logger logrus.FieldLogger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		ctx:          ctx,
		cancel:       cancel,
		workers:      workers,
		logger:       logger,
		tasks:        make(chan Task, opts.QueueSize),
		maxRetries:   opts.MaxRetries,
		onDeadLetter: opts.OnDeadLetter,
		deadLetter:   make([]Task, 0),
	}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
	p.logger.WithField("workers", p.workers).Info("Worker pool started")
}

// Stop stops accepting tasks, lets the workers drain the queue and waits
// for them to finish. ctx bounds the wait; once it expires in-flight
// retries are abandoned.
func (p *WorkerPool) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.cancel()
		<-done
	}
	p.cancel()
	p.logger.Info("Worker pool stopped")
}

// Submit adds a task to the queue. It returns false if the queue is full or
// the pool is stopped; it never blocks.
func (p *WorkerPool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false // backpressure: queue is full
	}
}

// workerLoop is the main loop for each worker goroutine
func (p *WorkerPool) workerLoop() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.processWithRetry(task)
	}
}

// processWithRetry processes a task, retrying up to maxRetries, then moves to dead letter
func (p *WorkerPool) processWithRetry(task Task) {
	var err error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if p.ctx.Err() != nil {
			return
		}
		if err = task.Process(p.ctx); err == nil {
			return
		}
		p.logger.WithError(err).WithField("attempt", attempt).Debug("Task failed")
	}

	p.deadLetterMu.Lock()
	p.deadLetter = append(p.deadLetter, task)
	p.deadLetterMu.Unlock()

	p.logger.WithError(err).Warn("Task moved to dead letter queue")
	if p.onDeadLetter != nil {
		p.onDeadLetter(task, err)
	}
}

// DeadLetterCount returns the number of tasks in the dead letter queue
func (p *WorkerPool) DeadLetterCount() int {
	p.deadLetterMu.Lock()
	defer p.deadLetterMu.Unlock()
	return len(p.deadLetter)
}

// Workers returns the number of worker goroutines
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Stats returns current statistics about the worker pool
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ActiveWorkers: p.workers,
		QueueLength:   len(p.tasks),
		DeadLetters:   p.DeadLetterCount(),
	}
}
