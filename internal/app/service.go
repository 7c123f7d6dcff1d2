// Package service runs a complete solve: configuration, instance
// construction, search starts and result extraction.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/talksched/internal/adapters/mq/queue"
	"github.com/okian/talksched/internal/adapters/mq/worker"
	"github.com/okian/talksched/internal/adapters/repository"
	"github.com/okian/talksched/internal/config"
	"github.com/okian/talksched/internal/domain/model"
	"github.com/okian/talksched/internal/domain/schedule"
	"github.com/okian/talksched/internal/domain/scoring"
	"github.com/okian/talksched/internal/solver"
	"github.com/okian/talksched/pkg/logger"
	"github.com/okian/talksched/pkg/metrics"
)

// Service solves scheduling problems. It holds no per-solve state and is
// safe for concurrent use.
type Service struct {
	cfg    *config.Config
	extra  []scoring.Constraint
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. The default is config.New().
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConstraints appends constraints after the built-in ones.
func WithConstraints(extra ...scoring.Constraint) Option {
	return func(s *Service) {
		s.extra = append(s.extra, extra...)
	}
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		logger: logger.GetOrNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("service")
	return s
}

// Solve schedules p. Configuration and problem errors are returned before
// any search; every search outcome, including cancellation, is a Result.
func (s *Service) Solve(ctx context.Context, p model.Problem) (Result, error) { //nolint:gocritic // hugeParam: the problem is read once
	begin := time.Now()

	opts, err := s.cfg.SolverOptions()
	if err != nil {
		metrics.RecordInvalidConfig()
		return Result{}, err
	}
	inst, err := model.NewInstance(p)
	if err != nil {
		metrics.RecordInvalidProblem()
		return Result{}, err
	}
	slv, err := solver.New(inst, opts, s.logger, s.extra...)
	if err != nil {
		metrics.RecordInvalidConfig()
		return Result{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	runID := uuid.NewString()
	starts := s.cfg.Starts
	if opts.Mode == solver.ModeExact {
		starts = 1
	}
	workers := min(s.cfg.Workers, starts)

	metrics.RecordInstanceSize(inst.NumTalks())
	s.logger.Info(ctx, "solve started",
		logger.String("run_id", runID),
		logger.Int("talks", inst.NumTalks()),
		logger.Int("slots", inst.NumSlots()),
		logger.Int("rooms", inst.NumRooms()),
		logger.String("mode", string(opts.Mode)),
		logger.Int("starts", starts),
		logger.Int("workers", workers),
	)
	if inst.NumTalks() > inst.Capacity() {
		metrics.RecordCapacityOverflow()
		s.logger.Warn(ctx, "more talks than slot x room capacity",
			logger.String("run_id", runID),
			logger.Int("talks", inst.NumTalks()),
			logger.Int("capacity", inst.Capacity()),
		)
	}

	// One deadline covers every start, whether they run in parallel or
	// wait for a free worker.
	solveCtx, cancel := context.WithTimeout(ctx, opts.TimeLimit)
	defer cancel()

	store, err := s.runStarts(solveCtx, slv, runID, starts, workers)
	if err != nil {
		return Result{}, err
	}
	best, err := store.Best(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("pick winner: %w", err)
	}
	entries, err := store.TopN(ctx, store.Count(ctx))
	if err != nil {
		return Result{}, fmt.Errorf("rank starts: %w", err)
	}

	res := Extract(inst, slv.Calculator(), best)
	res.Stats = Stats{Mode: string(opts.Mode), Starts: len(entries)}
	for _, e := range entries {
		st := e.Outcome.Stats
		res.Stats.Iterations += st.Iterations
		res.Stats.Evaluations += st.Evaluations
		res.Stats.Nodes += st.Nodes
		metrics.RecordStart(string(e.Outcome.Termination), st.Iterations, st.Evaluations, st.Improvements, st.Nodes)
		metrics.RecordMovesAccepted(schedule.KindReassign.String(), st.AcceptedReassign)
		metrics.RecordMovesAccepted(schedule.KindSwap.String(), st.AcceptedSwap)
	}
	res.Stats.Duration = time.Since(begin)

	metrics.RecordSolve(res.Stats.Mode, res.Termination, float64(res.Stats.Duration.Milliseconds()),
		res.Score.Hard, res.Score.Soft, len(res.Unplaced))
	s.logger.Info(ctx, "solve finished",
		logger.String("run_id", runID),
		logger.String("score", res.Score.String()),
		logger.Bool("feasible", res.Feasible),
		logger.Int("unplaced", len(res.Unplaced)),
		logger.String("termination", res.Termination),
		logger.Int("winning_start", best.Start),
		logger.Duration("elapsed", res.Stats.Duration),
	)
	return res, nil
}

// runStarts queues the starts and drains them with a worker pool until the
// queue is empty or ctx ends. Starts still queued at the deadline are
// skipped. When no start ran at all, the first start runs inline: it still
// constructs a schedule and reports time_expired.
func (s *Service) runStarts(ctx context.Context, slv *solver.Solver, runID string, starts, workers int) (repository.Store, error) {
	q := queue.New(queue.WithCapacity(starts))
	for i := 0; i < starts; i++ {
		job := queue.Job{Start: i, Seed: slv.Options().Seed + int64(i), RunID: runID}
		if err := q.Enqueue(ctx, job); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("queue start %d: %w", i, err)
		}
	}
	_ = q.Close()

	var store repository.Store = repository.NewOutcomeStore()
	pool := worker.NewPool(workers, q, slv, store, worker.WithLogger(s.logger))
	s.logger.Debug(ctx, "starts queued",
		logger.String("run_id", runID),
		logger.Int("queued", q.Len()),
		logger.Int("workers", pool.Size()),
	)
	pool.Start(ctx)

	drained := make(chan struct{})
	go func() {
		pool.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		pending := q.Len()
		if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown failed", logger.Error(err))
		}
		<-drained
		s.logger.Info(ctx, "solve deadline reached",
			logger.String("run_id", runID),
			logger.Int("finished", store.Count(ctx)),
			logger.Int("skipped", pending),
		)
	}

	if store.Count(ctx) == 0 {
		out := slv.Solve(ctx, queue.Job{Start: 0, Seed: slv.Options().Seed, RunID: runID})
		if _, err := store.Put(context.WithoutCancel(ctx), out); err != nil {
			return nil, fmt.Errorf("record start 0: %w", err)
		}
	}
	return store, nil
}
