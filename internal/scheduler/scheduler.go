// Package scheduler drives the engine tick on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const jobName = "farming-tick"

// Ticker implements engine.Scheduler on a gocron scheduler. At most one
// job is registered; a run that overlaps the previous one is skipped and
// rescheduled.
type Ticker struct {
	sched gocron.Scheduler
	base  context.Context

	mu       sync.Mutex
	job      gocron.Job
	cancel   context.CancelFunc
	interval time.Duration
}

// New starts an empty scheduler. Job contexts derive from ctx.
func New(ctx context.Context) (*Ticker, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s.Start()
	return &Ticker{sched: s, base: ctx}, nil
}

// Start registers fn to run every interval, replacing any earlier job.
func (t *Ticker) Start(interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("start ticker: interval must be positive, got %s", interval)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.stopLocked(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(t.base)
	job, err := t.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { fn(ctx) }),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("start ticker: %w", err)
	}

	t.job = job
	t.cancel = cancel
	t.interval = interval
	slog.Info("ticker started", "interval", interval, "job_id", job.ID())
	return nil
}

// Stop removes the job and cancels a run in progress. Stopping an idle
// ticker is a no-op.
func (t *Ticker) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

func (t *Ticker) stopLocked() error {
	if t.job == nil {
		return nil
	}
	id := t.job.ID()
	t.cancel()
	t.job = nil
	t.cancel = nil
	t.interval = 0
	if err := t.sched.RemoveJob(id); err != nil {
		return fmt.Errorf("stop ticker: %w", err)
	}
	slog.Info("ticker stopped", "job_id", id)
	return nil
}

// Active reports whether a job is registered, and its interval.
func (t *Ticker) Active() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval, t.job != nil
}

// NextRun returns when the registered job fires next.
func (t *Ticker) NextRun() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.job == nil {
		return time.Time{}, false
	}
	next, err := t.job.NextRun()
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

// Shutdown stops the job and the scheduler.
func (t *Ticker) Shutdown() error {
	if err := t.Stop(); err != nil {
		slog.Warn("ticker stop during shutdown failed", "error", err)
	}
	return t.sched.Shutdown()
}
