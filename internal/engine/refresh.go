package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/reconcile"
)

// withSession runs fn with the cached session. On an auth failure the
// session is refreshed and fn retried exactly once.
func (e *Engine) withSession(ctx context.Context, op string, fn func(context.Context, model.Session) error) error {
	sess, err := e.session(ctx, false)
	if err != nil {
		return fmt.Errorf("%s: get session: %w", op, err)
	}

	err = e.callWithTimeout(ctx, sess, fn)
	if !IsAuthError(err) {
		return err
	}

	slog.Warn("auth failure, refreshing session", "op", op, "error", err)
	sess, rerr := e.session(ctx, true)
	if rerr != nil {
		return fmt.Errorf("%s: refresh session: %w", op, rerr)
	}
	return e.callWithTimeout(ctx, sess, fn)
}

func (e *Engine) callWithTimeout(ctx context.Context, sess model.Session, fn func(context.Context, model.Session) error) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return fn(ctx, sess)
}

func (e *Engine) fetchSnapshot(ctx context.Context, full bool) (model.Snapshot, error) {
	var snap model.Snapshot
	err := e.withSession(ctx, "fetch_snapshot", func(ctx context.Context, sess model.Session) error {
		s, err := e.gql.FetchSnapshot(ctx, sess, full)
		snap = s
		return err
	})
	return snap, err
}

func (e *Engine) fullRefreshDue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last := e.timing.LastFullRefreshAt
	return last.IsZero() || e.clock.Now().Sub(last) >= e.opts.FullRefreshInterval
}

// refresh fetches a snapshot and reconciles it into state. A snapshot with
// fewer drops than the cached full snapshot is supplemented from the cache
// and never replaces it.
func (e *Engine) refresh(ctx context.Context, r run, full bool) error {
	snap, err := e.fetchSnapshot(ctx, full)
	now := e.clock.Now()
	switch {
	case IsEmptyResult(err):
		slog.Info("empty snapshot", "full", full)
		snap = model.Snapshot{Full: full}
	case err != nil:
		return err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = now
	}

	cache, save, ok := e.install(r, snap, full, now)
	if !ok {
		slog.Debug("refresh result discarded", "full", full)
		return nil
	}
	if save {
		if err := e.store.SaveSnapshot(ctx, cache); err != nil {
			slog.Error("save snapshot cache failed", "error", err)
		}
	}
	return nil
}

// install reconciles snap into state. It returns the snapshot cache and
// whether the cache changed; ok is false when r is no longer current.
func (e *Engine) install(r run, snap model.Snapshot, full bool, now time.Time) (cache model.Snapshot, save, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(r) {
		return model.Snapshot{}, false, false
	}

	if len(snap.Drops) < len(e.snapshot.Drops) {
		slog.Info("partial snapshot, supplementing from cache",
			"full", full,
			"fetched_drops", len(snap.Drops),
			"cached_drops", len(e.snapshot.Drops),
		)
		snap.Drops = supplement(snap.Drops, e.snapshot.Drops)
	} else if full {
		e.snapshot = snap
		save = true
	}
	if snap.AllowList == nil {
		snap.AllowList = e.snapshot.AllowList
	}

	e.applyLocked(reconcile.Reconcile(e.state, snap, now))
	if full {
		e.timing.LastFullRefreshAt = now
		e.campaignsAt = now
	}
	return e.snapshot, save, true
}

// supplement appends cached drops whose key is absent from fetched.
func supplement(fetched, cached []model.Drop) []model.Drop {
	have := make(map[string]bool, len(fetched))
	for _, d := range fetched {
		have[d.Key()] = true
	}
	out := append([]model.Drop(nil), fetched...)
	for _, d := range cached {
		if !have[d.Key()] {
			out = append(out, d)
		}
	}
	return out
}

// applyLocked installs a reconcile result. Callers must hold mu.
func (e *Engine) applyLocked(res reconcile.Result) {
	e.state.Available = res.Games
	e.state.Selected = res.Selected
	e.state.Drops = res.Drops
	e.state.Completed = res.Completed
	e.state.Pending = res.Pending
	e.state.CurrentDrop = res.Current

	if len(res.Pending) > 0 {
		e.state.CompletionNotified = false
	}

	if res.ZeroMatch && e.state.Selected != nil {
		slog.Warn("no drops matched selected campaign",
			"campaign", e.state.Selected.Name,
			"preserved", res.Preserved,
		)
	}
	if res.Relaxed > 0 {
		slog.Info("drops matched by game name only", "count", res.Relaxed)
	}
}

// clearDropsLocked resets the per-campaign split. Callers must hold mu.
func (e *Engine) clearDropsLocked() {
	e.state.Drops = []model.Drop{}
	e.state.Completed = []model.Drop{}
	e.state.Pending = []model.Drop{}
	e.state.CurrentDrop = nil
	e.state.CompletionNotified = false
	e.timing.StallKey = ""
	e.timing.StallProgress = 0
	e.timing.StallSince = time.Time{}
}

// exhausted reports whether the selected campaign has drops but nothing
// left to farm.
func exhausted(st model.FarmingState) bool {
	if len(st.Drops) == 0 || st.CurrentDrop != nil {
		return false
	}
	for _, d := range st.Pending {
		if d.Farmable() {
			return false
		}
	}
	return true
}
