package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/okian/talksched/internal/adapters/problemfile"
	app "github.com/okian/talksched/internal/app"
	"github.com/okian/talksched/internal/config"
	"github.com/okian/talksched/pkg/logger"
	"github.com/okian/talksched/pkg/metrics"
)

// Environment names read by the runner besides the config keys.
const (
	envProblem     = "TALKSCHED_PROBLEM"
	envMetricsFile = "TALKSCHED_METRICS_FILE"
)

var errNoProblem = errors.New("no problem file: pass a path or set " + envProblem)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM. Cancellation ends the
	// search early with the best schedule found so far.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], logger.Get()); err != nil {
		os.Stderr.WriteString("talksched: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, log logger.Logger) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		metrics.RecordInvalidConfig()
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	path := os.Getenv(envProblem)
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return errNoProblem
	}
	p, err := problemfile.Load(path)
	if err != nil {
		return err
	}

	svc := app.New(app.WithConfig(cfg), app.WithLogger(log))
	res, err := svc.Solve(ctx, p)
	if err != nil {
		return err
	}
	logSchedule(ctx, log, res)

	if file := os.Getenv(envMetricsFile); file != "" {
		if err := prometheus.WriteToTextfile(file, metrics.GetRegistry()); err != nil {
			log.Warn(ctx, "failed to write metrics", logger.String("file", file), logger.Error(err))
		}
	}
	return nil
}

func logSchedule(ctx context.Context, log logger.Logger, res app.Result) { //nolint:gocritic // hugeParam: logged once
	log = log.Named("schedule")
	for _, e := range res.Placed {
		log.Info(ctx, e.Title,
			logger.String("talk_id", e.TalkID),
			logger.String("day", e.DayName),
			logger.String("start", e.Start),
			logger.String("end", e.End),
			logger.String("room", e.Room),
			logger.String("track", e.Track),
			logger.String("level", e.Level.String()),
			logger.Any("speakers", e.Speakers),
		)
	}
	for _, u := range res.Unplaced {
		log.Warn(ctx, "unplaced talk",
			logger.String("talk_id", u.TalkID),
			logger.String("title", u.Title),
			logger.String("reason", u.Reason),
		)
	}
	for _, v := range res.Violations {
		log.Warn(ctx, "hard violation",
			logger.String("constraint", v.Constraint),
			logger.Any("talks", v.TalkIDs),
		)
	}
	summary := []logger.Field{
		logger.String("run_id", res.RunID),
		logger.String("score", res.Score.String()),
		logger.String("termination", res.Termination),
		logger.Int("placed", len(res.Placed)),
		logger.Int("unplaced", len(res.Unplaced)),
		logger.Duration("elapsed", res.Stats.Duration),
	}
	if res.Feasible {
		log.Info(ctx, "feasible schedule", summary...)
		return
	}
	log.Warn(ctx, "infeasible schedule needs review", summary...)
}
