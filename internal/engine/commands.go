package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/dropfarm/internal/match"
	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/reconcile"
)

func validCampaign(c model.Campaign) bool {
	return strings.TrimSpace(c.Name) != "" || strings.TrimSpace(c.ID) != "" || strings.TrimSpace(c.CampaignID) != ""
}

// resolve matches target against known campaigns. Without a confident match
// the literal input is returned.
func resolve(target model.Campaign, known []model.Campaign) model.Campaign {
	if m, ok := match.MatchGame(target, known); ok {
		return m
	}
	slog.Warn("no confident campaign match, using literal input",
		"name", target.Name,
		"id", target.ID,
		"known", len(known),
	)
	return target
}

// SelectCampaign makes target the farmed campaign. The target is resolved
// against the campaign list; an unmatched target is kept as given. Any
// in-flight tick is discarded.
func (e *Engine) SelectCampaign(ctx context.Context, target model.Campaign) (model.Campaign, error) {
	if !validCampaign(target) {
		return model.Campaign{}, commandError(ErrCodeInvalidArgument, "campaign needs a name or id")
	}

	known, err := e.ListCampaigns(ctx, false)
	if err != nil {
		slog.Warn("campaign list unavailable for selection", "error", err)
	}
	chosen := resolve(target, known).WithExpiry(e.clock.Now())

	e.releaseTab(ctx, e.choose(chosen))
	slog.Info("campaign selected", "campaign", chosen.Name, "key", chosen.Key())
	return chosen, e.persist(ctx, NotifyState, "campaign selected")
}

// choose installs c as the selection and returns the viewing tab to release.
// Switching campaigns resets the viewer and re-splits the cached drops.
func (e *Engine) choose(c model.Campaign) (prevTab string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen.Add(1)
	same := e.state.Selected != nil && e.state.Selected.Key() == c.Key()
	e.state.Selected = &c
	if same {
		return ""
	}
	prevTab = e.state.ActiveTab
	e.state.ActiveTab = ""
	e.state.ActiveStreamer = nil
	e.timing.InvalidStreamChecks = 0
	e.timing.GraceUntil = time.Time{}
	e.clearDropsLocked()
	if len(e.snapshot.Drops) > 0 {
		e.applyLocked(reconcile.Reconcile(e.state, e.snapshot, e.clock.Now()))
	}
	return prevTab
}

// QueueAdd appends c to the queue. A campaign already queued keeps its
// place; the campaign being farmed moves to the front.
func (e *Engine) QueueAdd(ctx context.Context, c model.Campaign) ([]model.Campaign, error) {
	if !validCampaign(c) {
		return nil, commandError(ErrCodeInvalidArgument, "campaign needs a name or id")
	}

	return e.enqueue(c), e.persist(ctx, NotifyState, "queue updated")
}

func (e *Engine) enqueue(c model.Campaign) []model.Campaign {
	e.mu.Lock()
	defer e.mu.Unlock()

	c = resolve(c, e.state.Available).WithExpiry(e.clock.Now())
	key := c.Key()
	switch {
	case e.state.Selected != nil && e.state.Selected.Key() == key && e.state.Running:
		e.state.Queue = append([]model.Campaign{c}, removeKey(e.state.Queue, key)...)
	case indexKey(e.state.Queue, key) >= 0:
	default:
		e.state.Queue = append(e.state.Queue, c)
	}
	return e.state.Clone().Queue
}

// QueueRemove removes the campaign identified by key (or name).
func (e *Engine) QueueRemove(ctx context.Context, key string) ([]model.Campaign, error) {
	e.mu.Lock()
	i := findQueued(e.state.Queue, key)
	if i < 0 {
		e.mu.Unlock()
		return nil, commandError(ErrCodeNotQueued, "%q is not queued", key)
	}
	e.state.Queue = append(e.state.Queue[:i:i], e.state.Queue[i+1:]...)
	q := e.state.Clone().Queue
	e.mu.Unlock()

	return q, e.persist(ctx, NotifyState, "queue updated")
}

// QueueClear empties the queue.
func (e *Engine) QueueClear(ctx context.Context) error {
	e.mu.Lock()
	e.state.Queue = []model.Campaign{}
	e.mu.Unlock()
	return e.persist(ctx, NotifyState, "queue cleared")
}

// Start begins farming the selected campaign, or the head of the queue when
// nothing is selected. The first refresh and queue check run before the
// scheduler starts, so an already-exhausted campaign never gets a viewer.
func (e *Engine) Start(ctx context.Context) error {
	r, name, started, err := e.arm()
	if err != nil || !started {
		return err
	}

	if err := e.refresh(ctx, r, true); err != nil {
		slog.Warn("initial refresh failed", "campaign", name, "error", err)
	}
	_, stopped, err := e.advanceIfCompleted(ctx, r)
	if err != nil {
		slog.Warn("initial queue check failed", "error", err)
	}
	if stopped {
		return e.persist(ctx, NotifyFarmingStopped, "nothing left to farm")
	}

	if e.scheduler != nil {
		if err := e.scheduler.Start(e.opts.TickInterval, e.scheduledTick); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	slog.Info("farming started", "campaign", name)
	return e.persist(ctx, NotifyState, "farming started")
}

// arm marks farming as running, selecting the queue head when nothing is
// selected. started is false when farming was already running.
func (e *Engine) arm() (r run, name string, started bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Running && !e.state.Paused {
		return run{}, "", false, nil
	}
	if e.state.Selected == nil {
		if len(e.state.Queue) == 0 {
			return run{}, "", false, commandError(ErrCodeNoCampaign, "no campaign selected and queue is empty")
		}
		next := e.state.Queue[0]
		e.state.Selected = &next
		e.clearDropsLocked()
	}
	e.state.Running = true
	e.state.Paused = false
	return run{gen: e.gen.Load(), tick: true}, e.state.Selected.Name, true, nil
}

func (e *Engine) scheduledTick(ctx context.Context) {
	e.Tick(ctx)
}

// Pause keeps the selection and viewer but skips ticks.
func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	if !e.state.Running {
		e.mu.Unlock()
		return commandError(ErrCodeNotRunning, "farming is not running")
	}
	e.state.Paused = true
	e.mu.Unlock()
	return e.persist(ctx, NotifyState, "farming paused")
}

// Resume undoes Pause.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	if !e.state.Running {
		e.mu.Unlock()
		return commandError(ErrCodeNotRunning, "farming is not running")
	}
	e.state.Paused = false
	e.mu.Unlock()
	return e.persist(ctx, NotifyState, "farming resumed")
}

// Stop halts farming: the scheduler job is removed, cooldowns and counters
// are cleared, the viewer is released, and in-flight results are discarded.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	e.gen.Add(1)
	tab := e.state.ActiveTab
	e.state.Running = false
	e.state.Paused = false
	e.state.ActiveTab = ""
	e.state.ActiveStreamer = nil
	e.timing.Reset()
	e.mu.Unlock()

	e.stopScheduler()
	e.releaseTab(ctx, tab)
	slog.Info("farming stopped")
	return e.persist(ctx, NotifyFarmingStopped, "farming stopped")
}

func (e *Engine) stopScheduler() {
	if e.scheduler == nil {
		return
	}
	if err := e.scheduler.Stop(); err != nil {
		slog.Warn("stop scheduler failed", "error", err)
	}
}

// RefreshDrops forces a full refresh and returns the resulting state.
func (e *Engine) RefreshDrops(ctx context.Context) (model.FarmingState, error) {
	if err := e.refresh(ctx, e.newRun(false), true); err != nil {
		return e.State(), fmt.Errorf("refresh drops: %w", err)
	}
	if err := e.persist(ctx, NotifyState, "drops refreshed"); err != nil {
		return e.State(), err
	}
	return e.State(), nil
}

// ListCampaigns returns the available campaigns, served from cache within
// the TTL unless force is set. Concurrent callers share one fetch.
func (e *Engine) ListCampaigns(ctx context.Context, force bool) ([]model.Campaign, error) {
	e.mu.Lock()
	fresh := !e.campaignsAt.IsZero() &&
		e.clock.Now().Sub(e.campaignsAt) < e.opts.CampaignCacheTTL &&
		len(e.state.Available) > 0
	if fresh && !force {
		out := e.state.Clone().Available
		e.mu.Unlock()
		return out, nil
	}
	e.mu.Unlock()

	_, err, shared := e.flights.Do("campaigns", func() (any, error) {
		if err := e.refresh(ctx, e.newRun(false), true); err != nil {
			return nil, err
		}
		return nil, e.persist(ctx, NotifyState, "campaigns refreshed")
	})
	if shared {
		slog.Debug("campaign fetch shared with in-flight caller")
	}
	return e.State().Available, err
}
