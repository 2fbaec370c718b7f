package engine

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// SkipReason explains why a tick did no work.
type SkipReason string

const (
	SkipInFlight  SkipReason = "in_flight"
	SkipIdle      SkipReason = "idle"
	SkipDiscarded SkipReason = "discarded"
	SkipPanicked  SkipReason = "panicked"
)

// TickResult summarizes one tick.
type TickResult struct {
	ID       string
	Seq      int64
	Skipped  SkipReason
	Rotation RotationState

	Refreshed   bool
	FullRefresh bool
	Claimed     bool
	Advanced    bool
	Stopped     bool
}

// Tick runs one pass of the farming loop.
//
// Sequence: verify the viewing tab, enforce playback during the grace
// window, run rotation, refresh (full on the slower cadence), claim (with a
// forced full refresh when anything was claimed), advance the queue, then
// persist once and notify.
//
// A tick arriving while another is in flight returns immediately. Failures
// in any step are logged and degrade to a no-op for that step; nothing
// escapes Tick, including panics.
func (e *Engine) Tick(ctx context.Context) (res TickResult) {
	if !e.ticking.CompareAndSwap(false, true) {
		slog.Debug("tick dropped, previous tick in flight")
		res.Skipped = SkipInFlight
		return res
	}
	defer e.ticking.Store(false)

	e.mu.Lock()
	idle := !e.state.Running || e.state.Paused
	e.mu.Unlock()
	if idle {
		res.Skipped = SkipIdle
		return res
	}

	r := e.newRun(true)
	res.ID = e.ids.Generate()
	res.Seq = e.seq.Next()
	log := slog.With("tick_id", res.ID, "seq", res.Seq)
	started := e.clock.Now()

	defer func() {
		if p := recover(); p != nil {
			log.Error("tick panicked", "panic", p, "stack", string(debug.Stack()))
			res.Skipped = SkipPanicked
		}
	}()

	e.verifyTab(ctx, r)
	e.enforcePlayback(ctx)
	res.Rotation = e.rotate(ctx, r)

	full := e.fullRefreshDue()
	if err := e.refresh(ctx, r, full); err != nil {
		log.Warn("refresh failed", "full", full, "error", err)
	} else {
		res.Refreshed = true
		res.FullRefresh = full
	}

	claimed, err := e.autoClaim(ctx, r)
	if err != nil {
		log.Warn("claim pass failed", "error", err)
	}
	if claimed {
		res.Claimed = true
		if err := e.refresh(ctx, r, true); err != nil {
			log.Warn("post-claim refresh failed", "error", err)
		} else {
			res.Refreshed, res.FullRefresh = true, true
		}
	}

	res.Advanced, res.Stopped, err = e.advanceIfCompleted(ctx, r)
	if err != nil {
		log.Warn("queue advance failed", "error", err)
	}

	if e.gen.Load() != r.gen {
		log.Info("tick discarded, farming stopped or reselected")
		res.Skipped = SkipDiscarded
		return res
	}

	kind := NotifyState
	switch {
	case res.Stopped:
		kind = NotifyFarmingStopped
	case res.Claimed:
		kind = NotifyClaimed
	case res.Rotation == RotationRotating:
		kind = NotifyRotated
	}
	if err := e.persist(ctx, kind, ""); err != nil {
		log.Warn("tick persist failed", "error", err)
	}
	if res.Stopped {
		e.stopScheduler()
	}

	log.Debug("tick complete",
		"rotation", res.Rotation,
		"full_refresh", res.FullRefresh,
		"claimed", res.Claimed,
		"advanced", res.Advanced,
		"elapsed", e.clock.Now().Sub(started).Round(time.Millisecond),
	)
	return res
}

// verifyTab clears the binding when its tab no longer exists.
func (e *Engine) verifyTab(ctx context.Context, r run) {
	e.mu.Lock()
	tab := e.state.ActiveTab
	e.mu.Unlock()
	if tab == "" {
		return
	}

	tctx, cancel := e.withTimeout(ctx)
	ok, err := e.tabs.Exists(tctx, tab)
	cancel()
	if err != nil {
		slog.Warn("verify viewing tab failed", "tab_id", tab, "error", err)
		return
	}
	if ok {
		return
	}

	e.mu.Lock()
	if e.currentLocked(r) && e.state.ActiveTab == tab {
		e.state.ActiveTab = ""
		e.state.ActiveStreamer = nil
		e.timing.InvalidStreamChecks = 0
		e.timing.GraceUntil = time.Time{}
	}
	e.mu.Unlock()
	slog.Info("viewing tab gone", "tab_id", tab)
}

// enforcePlayback nudges a freshly opened viewer while the grace window is
// open.
func (e *Engine) enforcePlayback(ctx context.Context) {
	e.mu.Lock()
	tab := e.state.ActiveTab
	inGrace := e.clock.Now().Before(e.timing.GraceUntil)
	e.mu.Unlock()
	if tab == "" || !inGrace {
		return
	}

	pctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := e.tabs.EnforcePlayback(pctx, tab); err != nil {
		slog.Debug("enforce playback failed", "tab_id", tab, "error", err)
	}
}
