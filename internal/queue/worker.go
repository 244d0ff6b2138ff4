package queue

import (
	"context"
	"sync"
	"time"
)

// Handler processes one job to completion. A returned error triggers the
// retry/backoff policy of the job.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

const (
	popTimeout      = 5 * time.Second
	promoteInterval = time.Second
)

// WorkerPool runs N concurrent processors per registered queue. Each worker
// processes one job to completion before picking up the next.
type WorkerPool struct {
	queues      *Queues
	concurrency int
	handlers    map[string]Handler
	wg          sync.WaitGroup
}

// NewWorkerPool creates a worker pool with the given per-queue concurrency.
func NewWorkerPool(queues *Queues, concurrency int) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerPool{
		queues:      queues,
		concurrency: concurrency,
		handlers:    make(map[string]Handler),
	}
}

// Register binds a handler to a queue name. Must be called before Start.
func (p *WorkerPool) Register(queue string, handler Handler) {
	p.handlers[queue] = handler
}

// Start launches workers and delayed-job promoters for every registered
// queue. It returns immediately; workers stop when ctx is cancelled.
func (p *WorkerPool) Start(ctx context.Context) {
	for queue, handler := range p.handlers {
		for i := 0; i < p.concurrency; i++ {
			p.wg.Add(1)
			go p.work(ctx, queue, handler)
		}
		p.wg.Add(1)
		go p.promote(ctx, queue)
	}
}

// Wait blocks until all workers have stopped.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) work(ctx context.Context, queue string, handler Handler) {
	defer p.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := p.queues.pop(ctx, queue, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.queues.logger.Error("failed popping job", "queue", queue, "error", err)
			p.queues.meter.Errors.WithLabelValues("queue").Inc()
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		p.process(ctx, job, handler)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *Job, handler Handler) {
	started := time.Now()
	err := handler.Handle(ctx, job)
	p.queues.meter.JobDuration.WithLabelValues(job.Queue).Observe(time.Since(started).Seconds())

	if err == nil {
		p.queues.meter.JobsProcessed.WithLabelValues(job.Queue, "succeeded").Inc()
		return
	}

	p.queues.logger.Error("job failed",
		"queue", job.Queue, "job_id", job.ID, "attempt", job.AttemptNumber(),
		"max_attempts", job.MaxAttempts, "error", err)

	delay, hasNext := NextAttemptDelay(job)
	if !hasNext {
		p.queues.meter.JobsProcessed.WithLabelValues(job.Queue, "dead").Inc()
		if dlErr := p.queues.deadLetter(ctx, job); dlErr != nil {
			p.queues.logger.Error("failed dead-lettering job", "queue", job.Queue, "job_id", job.ID, "error", dlErr)
		}
		return
	}

	job.AttemptsMade++
	p.queues.meter.JobsProcessed.WithLabelValues(job.Queue, "retried").Inc()
	if rtErr := p.queues.retryLater(ctx, job, delay); rtErr != nil {
		p.queues.logger.Error("failed scheduling retry", "queue", job.Queue, "job_id", job.ID, "error", rtErr)
	}
}

func (p *WorkerPool) promote(ctx context.Context, queue string) {
	defer p.wg.Done()
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.queues.promoteDue(ctx, queue); err != nil && ctx.Err() == nil {
				p.queues.logger.Error("failed promoting delayed jobs", "queue", queue, "error", err)
			}
		}
	}
}
