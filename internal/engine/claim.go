package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/reconcile"
)

// AutoClaim claims every claimable drop of the selected campaign that is not
// cooling down. It reports whether anything was claimed.
func (e *Engine) AutoClaim(ctx context.Context) (bool, error) {
	return e.autoClaim(ctx, e.newRun(false))
}

// autoClaim attempts each due claim independently. A failed claim sets its
// retry-not-before and never blocks the drops after it. The first auth
// failure refreshes the session and retries that claim once.
func (e *Engine) autoClaim(ctx context.Context, r run) (bool, error) {
	due := e.dueClaims(e.clock.Now())
	if len(due) == 0 {
		return false, nil
	}

	sess, err := e.session(ctx, false)
	if err != nil {
		e.coolDown(r, due, e.clock.Now())
		return false, fmt.Errorf("claim: get session: %w", err)
	}

	authRetried := false
	claimedAny := false
	for _, d := range due {
		err := e.claimOnce(ctx, sess, d.ClaimID)
		if IsAuthError(err) && !authRetried {
			authRetried = true
			slog.Warn("claim auth failure, refreshing session", "claim_id", d.ClaimID)
			fresh, rerr := e.session(ctx, true)
			if rerr != nil {
				err = fmt.Errorf("%w (session refresh: %v)", err, rerr)
			} else {
				sess = fresh
				err = e.claimOnce(ctx, sess, d.ClaimID)
			}
		}

		at := e.clock.Now()
		e.recordClaim(ctx, d, err, at)

		if !e.settleClaim(r, d.ClaimID, err, at) {
			return claimedAny, nil
		}
		if err != nil {
			slog.Warn("claim failed",
				"claim_id", d.ClaimID,
				"drop", d.Name,
				"retry_in", e.opts.ClaimRetryCooldown,
				"error", err,
			)
			continue
		}

		claimedAny = true
		slog.Info("drop claimed", "claim_id", d.ClaimID, "drop", d.Name)
	}
	return claimedAny, nil
}

// settleClaim applies one claim outcome: a failure cools the claim down, a
// success marks its drops claimed. It reports false when r is no longer
// current.
func (e *Engine) settleClaim(r run, claimID string, err error, at time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(r) {
		return false
	}
	if err != nil {
		e.timing.ClaimRetryNotBefore[claimID] = at.Add(e.opts.ClaimRetryCooldown)
		return true
	}
	delete(e.timing.ClaimRetryNotBefore, claimID)
	e.markClaimedLocked(claimID)
	return true
}

func (e *Engine) dueClaims(now time.Time) []model.Drop {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := map[string]bool{}
	var due []model.Drop
	for _, d := range e.state.Drops {
		if !d.Claimable || d.Claimed || d.ClaimID == "" || seen[d.ClaimID] {
			continue
		}
		seen[d.ClaimID] = true
		if nb, ok := e.timing.ClaimRetryNotBefore[d.ClaimID]; ok && now.Before(nb) {
			continue
		}
		due = append(due, d)
	}
	return due
}

func (e *Engine) claimOnce(ctx context.Context, sess model.Session, claimID string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.gql.ClaimReward(ctx, sess, claimID)
}

func (e *Engine) coolDown(r run, drops []model.Drop, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(r) {
		return
	}
	for _, d := range drops {
		e.timing.ClaimRetryNotBefore[d.ClaimID] = now.Add(e.opts.ClaimRetryCooldown)
	}
}

// markClaimedLocked reflects a successful claim into state without waiting
// for the next snapshot. Callers must hold mu.
func (e *Engine) markClaimedLocked(claimID string) {
	for i, d := range e.state.Drops {
		if d.ClaimID == claimID {
			e.state.Drops[i] = d.MarkClaimed()
		}
	}
	e.state.Completed, e.state.Pending, e.state.CurrentDrop = reconcile.Split(e.state.Drops)
}

func (e *Engine) recordClaim(ctx context.Context, d model.Drop, err error, at time.Time) {
	if e.claimLog == nil {
		return
	}
	rec := ClaimRecord{
		ClaimID:    d.ClaimID,
		DropID:     d.ID,
		DropName:   d.Name,
		CampaignID: d.CampaignID,
		Success:    err == nil,
		At:         at,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if lerr := e.claimLog.RecordClaim(ctx, rec); lerr != nil {
		slog.Warn("record claim failed", "claim_id", d.ClaimID, "error", lerr)
	}
}
