package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/okian/talksched/internal/domain/model"
	"github.com/okian/talksched/internal/domain/moves"
	"github.com/okian/talksched/internal/domain/schedule"
	"github.com/okian/talksched/internal/domain/scoring"
	"github.com/okian/talksched/pkg/logger"
)

// Stats counts the work of one start.
type Stats struct {
	Iterations       int64
	Evaluations      int64
	AcceptedReassign int64
	AcceptedSwap     int64
	Improvements     int64
	Nodes            int64
	Duration         time.Duration
}

// Outcome is the result of one search start. Heuristic and exact starts
// return the same shape.
type Outcome struct {
	Start       int
	Seed        int64
	RunID       string
	Best        schedule.Snapshot
	Score       scoring.Score
	Initial     scoring.Score
	Unplaced    int
	Termination Termination
	Trace       []Phase
	Stats       Stats
}

// Feasible reports whether the best state has no hard violation and every
// talk placed.
func (o Outcome) Feasible() bool { return o.Score.Feasible() && o.Unplaced == 0 }

// Better reports whether o beats other: better score first, then the lower
// start index.
func (o Outcome) Better(other Outcome) bool {
	if c := o.Score.Compare(other.Score); c != 0 {
		return c > 0
	}
	return o.Start < other.Start
}

// Job identifies one start of a solve.
type Job struct {
	Start int
	Seed  int64
	RunID string
}

// Solver runs search starts on one instance. It keeps no per-start state
// and may run several starts concurrently.
type Solver struct {
	inst *model.Instance
	calc *scoring.Calculator
	gen  *moves.Generator
	opts Options
	log  logger.Logger
}

// New validates opts and creates a Solver. A nil logger discards output.
func New(inst *model.Instance, opts Options, log logger.Logger, extra ...scoring.Constraint) (*Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Solver{
		inst: inst,
		calc: scoring.New(inst, scoring.WithWeights(opts.Weights), scoring.WithConstraints(extra...)),
		gen: moves.New(inst,
			moves.WithExhaustiveLimit(opts.ExhaustiveLimit),
			moves.WithSampleSize(opts.SampleSize),
		),
		opts: opts,
		log:  log.Named("solver"),
	}, nil
}

// Calculator returns the score calculator used by the solver.
func (s *Solver) Calculator() *scoring.Calculator { return s.calc }

// Options returns the solver options.
func (s *Solver) Options() Options { return s.opts }

// Solve runs one start until ctx ends or the time limit passes, whichever
// comes first. Cancellation ends the search with the best state found so
// far; it is never reported as an error.
func (s *Solver) Solve(ctx context.Context, job Job) Outcome {
	begin := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.opts.TimeLimit)
	defer cancel()

	r := &run{
		s:   s,
		job: job,
		a:   schedule.New(s.inst),
		rng: rand.New(rand.NewSource(job.Seed)), //nolint:gosec // deterministic search per seed
		m:   newMachine(),
	}

	s.log.Debug(ctx, "start",
		logger.String("run_id", job.RunID),
		logger.Int("start", job.Start),
		logger.Int64("seed", job.Seed),
		logger.String("mode", string(s.opts.Mode)),
	)

	r.m.advance(Constructing)
	r.construct()
	initial := r.bestScore
	r.m.advance(Improving)

	var term Termination
	if s.opts.Mode == ModeExact {
		term = r.exact(ctx)
	} else {
		term = r.improve(ctx, true)
	}
	if term == TerminationTimeExpired {
		r.m.advance(TimeExpired)
	} else {
		r.m.advance(Converged)
	}
	r.m.advance(Done)

	out := Outcome{
		Start:       job.Start,
		Seed:        job.Seed,
		RunID:       job.RunID,
		Best:        r.best,
		Score:       r.bestScore,
		Initial:     initial,
		Unplaced:    unplaced(r.best),
		Termination: term,
		Trace:       r.m.trace,
		Stats:       r.stats,
	}
	out.Stats.Duration = time.Since(begin)

	s.log.Debug(ctx, "start finished",
		logger.String("run_id", job.RunID),
		logger.Int("start", job.Start),
		logger.String("termination", string(term)),
		logger.String("score", out.Score.String()),
		logger.Int("unplaced", out.Unplaced),
		logger.Int64("iterations", out.Stats.Iterations),
		logger.Duration("elapsed", out.Stats.Duration),
	)
	return out
}

func unplaced(s schedule.Snapshot) int {
	n := 0
	for _, slot := range s.Slots {
		if slot == schedule.Unassigned {
			n++
		}
	}
	return n
}

// run is the mutable state of a single start. It is owned by one goroutine.
type run struct {
	s   *Solver
	job Job
	a   *schedule.Assignment
	rng *rand.Rand
	m   *machine

	current   scoring.Score
	best      schedule.Snapshot
	bestScore scoring.Score
	hasBest   bool
	stats     Stats
}

// record keeps the current state as best when it improves on it.
func (r *run) record() bool {
	if r.hasBest && !r.current.Better(r.bestScore) {
		return false
	}
	r.best = r.a.Snapshot()
	r.bestScore = r.current
	r.hasBest = true
	return true
}
