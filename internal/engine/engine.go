package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/dropfarm/internal/model"
)

// Engine owns the farming state and drives one campaign at a time through
// refresh, viewing, claiming and queue advancement.
//
// Thread-safety model:
//   - Commands and Tick may be called from any goroutine.
//   - mu guards state, timing and the snapshot cache. It is held only for
//     in-memory phases; every remote call runs with mu released.
//   - At most one tick is in flight. A tick that finds another in flight
//     returns immediately instead of waiting.
//   - Stop and SelectCampaign bump the run generation. Work started under an
//     older generation discards its results.
type Engine struct {
	gql       GraphQL
	sessions  SessionProvider
	tabs      TabController
	store     StateStore
	notifier  Notifier
	scheduler Scheduler
	claimLog  ClaimLog
	clock     Clock
	ids       IDGenerator
	opts      Options

	mu          sync.Mutex
	state       model.FarmingState
	timing      model.TimingState
	snapshot    model.Snapshot
	campaignsAt time.Time

	persistMu sync.Mutex
	ticking   atomic.Bool
	gen       atomic.Uint64
	seq       Sequence
	flights   singleflight.Group
}

// New creates an Engine wired to its collaborators.
func New(gql GraphQL, sessions SessionProvider, tabs TabController, store StateStore, opts ...EngineOption) *Engine {
	e := &Engine{
		gql:      gql,
		sessions: sessions,
		tabs:     tabs,
		store:    store,
		notifier: nopNotifier{},
		clock:    systemClock{},
		ids:      UUIDv7Generator{},
		opts:     DefaultOptions(),
		state:    emptyState(),
	}
	e.timing.Reset()

	for _, opt := range opts {
		opt(e)
	}
	return e
}

func emptyState() model.FarmingState {
	return model.FarmingState{
		Completed: []model.Drop{},
		Pending:   []model.Drop{},
		Drops:     []model.Drop{},
		Available: []model.Campaign{},
		Queue:     []model.Campaign{},
	}
}

// State returns a copy of the current farming state.
func (e *Engine) State() model.FarmingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Timing returns a copy of the current timing state.
func (e *Engine) Timing() model.TimingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneTiming(e.timing)
}

// Options returns the engine's cadences and thresholds.
func (e *Engine) Options() Options {
	return e.opts
}

func cloneTiming(t model.TimingState) model.TimingState {
	out := t
	out.ClaimRetryNotBefore = make(map[string]time.Time, len(t.ClaimRetryNotBefore))
	for k, v := range t.ClaimRetryNotBefore {
		out.ClaimRetryNotBefore[k] = v
	}
	return out
}

// run identifies the generation a unit of work started under. Tick runs
// additionally require farming to still be running when results land.
type run struct {
	gen  uint64
	tick bool
}

func (e *Engine) newRun(tick bool) run {
	return run{gen: e.gen.Load(), tick: tick}
}

// currentLocked reports whether results of r may still be applied.
// Callers must hold mu.
func (e *Engine) currentLocked(r run) bool {
	if e.gen.Load() != r.gen {
		return false
	}
	return !r.tick || e.state.Running
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opts.RequestTimeout)
}

// session returns the cached session, or a fresh one when forced.
func (e *Engine) session(ctx context.Context, forced bool) (model.Session, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	e.mu.Lock()
	e.timing.SessionLastAttemptAt = e.clock.Now()
	e.mu.Unlock()

	if forced {
		e.sessions.Invalidate()
		return e.sessions.Refresh(ctx)
	}
	return e.sessions.Get(ctx)
}

// persist writes farming and timing state, then notifies. Saves are
// serialized so the last write always carries the latest state.
func (e *Engine) persist(ctx context.Context, kind NotificationKind, msg string) error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	st := e.State()
	tm := e.Timing()

	var errs []error
	if err := e.store.SaveFarming(ctx, st); err != nil {
		errs = append(errs, fmt.Errorf("save farming state: %w", err))
	}
	if err := e.store.SaveTiming(ctx, tm); err != nil {
		errs = append(errs, fmt.Errorf("save timing state: %w", err))
	}
	for _, err := range errs {
		slog.Error("persist failed", "error", err)
	}

	e.notifier.Notify(ctx, Notification{Kind: kind, Message: msg, State: st, At: e.clock.Now()})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// releaseTab closes tabID if set. Failures are logged and ignored.
func (e *Engine) releaseTab(ctx context.Context, tabID string) {
	if tabID == "" {
		return
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := e.tabs.Close(ctx, tabID); err != nil {
		slog.Warn("close viewing tab failed", "tab_id", tabID, "error", err)
	}
}
