// Package worker runs the search starts of a solve concurrently.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/talksched/internal/adapters/mq/queue"
	"github.com/okian/talksched/internal/solver"
	"github.com/okian/talksched/pkg/logger"
	"github.com/okian/talksched/pkg/metrics"
)

// Runner executes one search start. *solver.Solver implements it.
type Runner interface {
	Solve(ctx context.Context, job solver.Job) solver.Outcome
}

// Recorder stores start outcomes.
type Recorder interface {
	Put(ctx context.Context, o solver.Outcome) (bool, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue is drained.
type Worker interface {
	// Run starts the worker loop until the queue is drained or ctx is
	// canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current start.
	Shutdown(ctx context.Context) error
}

// StartWorker runs starts one at a time. Each start owns its state, so
// workers share only the runner and the recorder.
type StartWorker struct {
	queue    Queue
	runner   Runner
	recorder Recorder
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewStartWorker creates a worker with configuration options.
func NewStartWorker(q Queue, runner Runner, recorder Recorder, opts ...Option) *StartWorker {
	w := &StartWorker{
		queue:    q,
		runner:   runner,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.GetOrNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *StartWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			// Starts still queued at the deadline are skipped.
			if ctx.Err() != nil {
				w.logger.Debug(ctx, "start skipped", logger.Int("start", job.Start))
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing start", logger.Error(err))
			}
		}
	}
}

// Shutdown signals the worker and waits for it to stop.
func (w *StartWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *StartWorker) process(ctx context.Context, job queue.Job) error {
	metrics.UpdateWorkerActiveCount(1)
	defer metrics.UpdateWorkerActiveCount(-1)

	begin := time.Now()
	out := w.runner.Solve(ctx, job)
	metrics.RecordWorkerStartLatency(float64(time.Since(begin).Milliseconds()))

	// A start cut short by cancellation still reports its best state.
	won, err := w.recorder.Put(context.WithoutCancel(ctx), out)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		return fmt.Errorf("record start %d: %w", job.Start, err)
	}

	w.logger.Debug(ctx, "start recorded",
		logger.Int("start", job.Start),
		logger.String("score", out.Score.String()),
		logger.Bool("winner", won),
	)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*StartWorker
	queue   Queue
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses
// the number of CPUs.
func NewPool(workerCount int, q Queue, runner Runner, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*StartWorker, workerCount),
		queue:   q,
		logger:  logger.GetOrNop().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewStartWorker(q, runner, recorder, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *StartWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has stopped, which happens once the
// queue is closed and drained.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown closes the queue when it can be closed and waits for the
// workers to finish their current start.
func (p *Pool) Shutdown(ctx context.Context) error {
	type closer interface {
		Close() error
		IsClosed() bool
	}
	if c, ok := p.queue.(closer); ok && !c.IsClosed() {
		if err := c.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
