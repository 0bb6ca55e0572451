package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

var (
	ErrInvalidJob = errors.New("invalid scheduler job")
	ErrDuplicate  = errors.New("duplicate scheduler job")
)

// Job is one periodic task. Spec is any robfig/cron spec, including
// "@every 30s".
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Every builds an interval spec.
func Every(d time.Duration) string {
	return "@every " + d.String()
}

// Runner wraps cron and guarantees a job never overlaps with itself: a tick
// that fires while the previous one is still running is skipped.
type Runner struct {
	cron    *cron.Cron
	logger  *logging.Logger
	baseCtx context.Context

	mu   sync.Mutex
	jobs map[string]*guardedJob
}

type guardedJob struct {
	job     Job
	running atomic.Bool
	skipped atomic.Int64
	logger  *logging.Logger
}

func New(baseCtx context.Context, logger *logging.Logger) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = logging.Default()
	}
	cl := cronLogger{logger: logger}
	return &Runner{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
		jobs:    make(map[string]*guardedJob),
	}
}

func (r *Runner) Add(job Job) error {
	job.Name = strings.TrimSpace(job.Name)
	if job.Name == "" || job.Run == nil || strings.TrimSpace(job.Spec) == "" {
		return fmt.Errorf("%w: name, spec and run are required", ErrInvalidJob)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, job.Name)
	}

	g := &guardedJob{job: job, logger: r.logger}
	if _, err := r.cron.AddFunc(job.Spec, func() { g.tick(r.baseCtx) }); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidJob, job.Name, err)
	}
	r.jobs[job.Name] = g
	return nil
}

func (r *Runner) Start() {
	r.logger.Info("scheduler started", "jobs", len(r.jobs))
	r.cron.Start()
}

// Stop prevents new ticks and waits for running ones or for ctx.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.logger.Info("scheduler stopped")
	case <-ctx.Done():
		r.logger.Warn("scheduler stop timed out", "error", ctx.Err())
	}
}

// Skipped reports how many ticks of name were dropped due to overlap.
func (r *Runner) Skipped(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.jobs[name]; ok {
		return g.skipped.Load()
	}
	return 0
}

// tick runs the job unless a previous tick is still in flight and reports
// whether it ran.
func (g *guardedJob) tick(ctx context.Context) bool {
	if !g.running.CompareAndSwap(false, true) {
		g.skipped.Add(1)
		g.logger.Warn("scheduler tick skipped, previous run still active", "job", g.job.Name)
		return false
	}
	defer g.running.Store(false)

	if g.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := g.job.Run(ctx); err != nil {
		g.logger.ErrorContext(ctx, "scheduler job failed",
			"job", g.job.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return true
	}
	g.logger.DebugContext(ctx, "scheduler job finished", "job", g.job.Name, "duration_ms", time.Since(start).Milliseconds())
	return true
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
