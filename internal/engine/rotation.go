package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

// RotationState is the outcome of one pass of the streamer rotation state
// machine.
type RotationState string

const (
	RotationNoTarget RotationState = "no_target"
	RotationWatching RotationState = "watching"
	RotationValid    RotationState = "valid"
	RotationSuspect  RotationState = "suspect"
	RotationRotating RotationState = "rotating"
)

// rotate runs one pass of the rotation state machine.
//
// Without a binding it acquires one. Inside the grace window it only
// reports watching. Afterwards each observation either resets the
// invalid-stream counter or adds a severity weight, and a stalled current
// drop trips the counter to the threshold. The binding is replaced once the
// counter reaches the threshold and the cooldown since the last rotation
// has elapsed.
func (e *Engine) rotate(ctx context.Context, r run) RotationState {
	e.mu.Lock()
	tab := e.state.ActiveTab
	login := ""
	if e.state.ActiveStreamer != nil {
		login = e.state.ActiveStreamer.Login
	}
	now := e.clock.Now()
	inGrace := now.Before(e.timing.GraceUntil)
	e.mu.Unlock()

	if tab == "" {
		return e.acquire(ctx, r, "")
	}
	if inGrace {
		return RotationWatching
	}

	octx, cancel := e.withTimeout(ctx)
	obs, err := e.tabs.Observe(octx, tab)
	cancel()
	if err != nil {
		slog.Debug("observe viewing tab failed", "tab_id", tab, "error", err)
	}
	weight := e.severity(obs, err, login)

	outcome, checks, replace := e.score(r, tab, login, weight, now)
	if !replace {
		return outcome
	}

	slog.Info("rotating streamer", "login", login, "checks", checks)
	e.releaseTab(ctx, tab)
	e.acquire(ctx, r, login)
	return RotationRotating
}

// score folds weight into the invalid-stream counter and reports whether
// the binding must be replaced. A replaced binding is cleared before
// returning.
func (e *Engine) score(r run, tab, login string, weight int, now time.Time) (outcome RotationState, checks int, replace bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.currentLocked(r) || e.state.ActiveTab != tab {
		return RotationWatching, 0, false
	}

	outcome = RotationValid
	if weight == 0 {
		e.timing.InvalidStreamChecks = 0
	} else {
		e.timing.InvalidStreamChecks += weight
		outcome = RotationSuspect
	}
	if e.stalledLocked(now) && e.timing.InvalidStreamChecks < e.opts.RotationThreshold {
		slog.Info("drop progress stalled, forcing rotation check",
			"login", login,
			"since", e.timing.StallSince,
		)
		e.timing.InvalidStreamChecks = e.opts.RotationThreshold
		outcome = RotationSuspect
	}

	checks = e.timing.InvalidStreamChecks
	if checks < e.opts.RotationThreshold {
		return outcome, checks, false
	}
	last := e.timing.LastRotationAt
	if !last.IsZero() && now.Sub(last) < e.opts.RotationCooldown {
		slog.Debug("rotation held by cooldown", "login", login, "checks", checks)
		return outcome, checks, false
	}

	e.state.ActiveTab = ""
	e.state.ActiveStreamer = nil
	e.timing.InvalidStreamChecks = 0
	e.timing.GraceUntil = time.Time{}
	e.timing.LastRotationAt = now
	return outcome, checks, true
}

// severity maps an observation to a counter increment. Zero means fully
// valid: live, on the expected channel, with the drops signal present.
func (e *Engine) severity(obs Observation, err error, login string) int {
	w := e.opts.Weights
	if err != nil {
		return w.Ambiguous
	}
	weight := 0
	if !obs.Live {
		weight = w.NotLive
	}
	if obs.Channel != "" && login != "" && !strings.EqualFold(obs.Channel, login) {
		weight = max(weight, w.WrongChannel)
	}
	if weight == 0 && (obs.Channel == "" || obs.DropsEnabled == nil || !*obs.DropsEnabled) {
		weight = w.Ambiguous
	}
	return weight
}

// stalledLocked tracks the current drop's progress and reports whether it
// has been flat for the stall window. Callers must hold mu.
func (e *Engine) stalledLocked(now time.Time) bool {
	cur := e.state.CurrentDrop
	if cur == nil {
		e.timing.StallKey = ""
		return false
	}
	key := cur.Key()
	if key != e.timing.StallKey || cur.Progress != e.timing.StallProgress || e.timing.StallSince.IsZero() {
		e.timing.StallKey = key
		e.timing.StallProgress = cur.Progress
		e.timing.StallSince = now
		return false
	}
	return e.opts.StallWindow > 0 && now.Sub(e.timing.StallSince) >= e.opts.StallWindow
}

// target returns the selected campaign and its channel allow-list; ok is
// false when there is nothing to watch.
func (e *Engine) target() (sel model.Campaign, allow []string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Selected == nil || exhausted(e.state) {
		return model.Campaign{}, nil, false
	}
	sel = *e.state.Selected
	return sel, allowListFor(sel, e.snapshot.AllowList), true
}

// bind records pick as the watched streamer and opens the grace window.
func (e *Engine) bind(r run, pick model.Streamer, tab string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(r) {
		return false
	}
	e.state.ActiveStreamer = &pick
	e.state.ActiveTab = tab
	e.timing.GraceUntil = e.clock.Now().Add(e.opts.GraceWindow)
	e.timing.InvalidStreamChecks = 0
	e.timing.StallKey = ""
	e.timing.StallSince = time.Time{}
	return true
}

// acquire opens the best candidate channel for the selected campaign.
// exclude names a login to skip for this acquisition only.
func (e *Engine) acquire(ctx context.Context, r run, exclude string) RotationState {
	sel, allow, ok := e.target()
	if !ok {
		return RotationNoTarget
	}

	var streamers []model.Streamer
	err := e.withSession(ctx, "fetch_directory_streamers", func(ctx context.Context, sess model.Session) error {
		s, err := e.gql.FetchDirectoryStreamers(ctx, sess, sel)
		streamers = s
		return err
	})
	if err != nil {
		slog.Warn("directory fetch failed", "campaign", sel.Name, "error", err)
		return RotationNoTarget
	}

	candidates := Candidates(streamers, allow, exclude)
	if len(candidates) == 0 {
		slog.Info("no viable streamer", "campaign", sel.Name, "listed", len(streamers), "excluded", exclude)
		return RotationNoTarget
	}
	pick := candidates[0]

	octx, cancel := e.withTimeout(ctx)
	tab, err := e.tabs.Open(octx, pick)
	cancel()
	if err != nil {
		slog.Warn("open viewing tab failed", "login", pick.Login, "error", err)
		return RotationNoTarget
	}

	if !e.bind(r, pick, tab) {
		e.releaseTab(ctx, tab)
		return RotationNoTarget
	}

	slog.Info("watching streamer",
		"login", pick.Login,
		"viewers", pick.ViewerRank(),
		"tab_id", tab,
		"campaign", sel.Name,
	)
	return RotationWatching
}

func allowListFor(c model.Campaign, lists map[string][]string) []string {
	if c.AllowedChannels != nil {
		return c.AllowedChannels
	}
	if c.CampaignID != "" {
		if list, ok := lists[c.CampaignID]; ok {
			return list
		}
	}
	return nil
}

// Candidates filters streamers to live, allowed, distinct channels other
// than exclude, ordered by ascending viewer count with unknown counts last.
// A nil allow list admits every channel.
func Candidates(streamers []model.Streamer, allow []string, exclude string) []model.Streamer {
	restricted := model.Campaign{AllowedChannels: allow}
	seen := make(map[string]bool, len(streamers))
	out := make([]model.Streamer, 0, len(streamers))
	for _, s := range streamers {
		login := strings.ToLower(strings.TrimSpace(s.Login))
		if login == "" || !s.Live || seen[login] {
			continue
		}
		if exclude != "" && strings.EqualFold(login, exclude) {
			continue
		}
		if !restricted.AllowsChannel(login) {
			continue
		}
		seen[login] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].ViewerRank(), out[j].ViewerRank()
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(out[i].Login) < strings.ToLower(out[j].Login)
	})
	return out
}
