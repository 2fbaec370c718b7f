package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

// AdvanceIfCompleted moves past the selected campaign once it is exhausted.
// It reports whether the selection changed or farming stopped.
func (e *Engine) AdvanceIfCompleted(ctx context.Context) (bool, error) {
	advanced, _, err := e.advanceIfCompleted(ctx, e.newRun(false))
	return advanced, err
}

// advanceIfCompleted removes an exhausted campaign from the queue and
// selects the next one, fetching its drops before deciding whether it is
// exhausted too. Exhausted campaigns are skipped without opening a viewer.
// The loop runs at most once per queued campaign, and farming stops when
// the queue runs dry. The caller stops the scheduler on stopped.
func (e *Engine) advanceIfCompleted(ctx context.Context, r run) (advanced, stopped bool, err error) {
	e.mu.Lock()
	bound := len(e.state.Queue) + 1
	e.mu.Unlock()

	for range bound {
		step, ok := e.dequeueExhausted(r)
		if !ok {
			return advanced, false, nil
		}

		e.releaseTab(ctx, step.tab)
		if step.announce {
			e.notify(ctx, NotifyCampaignComplete, step.done.Name)
		}
		if step.next == nil {
			slog.Info("queue exhausted, farming stopped", "campaign", step.done.Name)
			return true, true, nil
		}
		slog.Info("campaign exhausted, advancing queue", "from", step.done.Name, "to", step.next.Name)
		advanced = true

		if err := e.refresh(ctx, r, true); err != nil {
			return advanced, false, fmt.Errorf("fetch drops for %s: %w", step.next.Name, err)
		}
	}
	return advanced, false, nil
}

// queueStep is one move past an exhausted campaign. next is nil when
// farming stopped.
type queueStep struct {
	done     model.Campaign
	next     *model.Campaign
	tab      string
	announce bool
}

// dequeueExhausted drops the selected campaign from the queue when it has
// nothing left to farm and selects the queue head. An empty queue stops
// farming and clears every counter and cooldown.
func (e *Engine) dequeueExhausted(r run) (queueStep, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.currentLocked(r) || e.state.Selected == nil || !exhausted(e.state) {
		return queueStep{}, false
	}

	step := queueStep{
		done:     *e.state.Selected,
		tab:      e.state.ActiveTab,
		announce: !e.state.CompletionNotified,
	}
	e.state.CompletionNotified = true
	e.state.Queue = removeKey(e.state.Queue, step.done.Key())
	e.state.ActiveTab = ""
	e.state.ActiveStreamer = nil

	if len(e.state.Queue) == 0 {
		e.state.Running = false
		e.state.Paused = false
		e.timing.Reset()
		return step, true
	}

	e.timing.InvalidStreamChecks = 0
	e.timing.GraceUntil = time.Time{}
	next := e.state.Queue[0]
	e.state.Selected = &next
	e.clearDropsLocked()
	step.next = &next
	return step, true
}

func (e *Engine) notify(ctx context.Context, kind NotificationKind, msg string) {
	e.notifier.Notify(ctx, Notification{Kind: kind, Message: msg, State: e.State(), At: e.clock.Now()})
}

func indexKey(q []model.Campaign, key string) int {
	for i, c := range q {
		if c.Key() == key {
			return i
		}
	}
	return -1
}

func removeKey(q []model.Campaign, key string) []model.Campaign {
	out := make([]model.Campaign, 0, len(q))
	for _, c := range q {
		if c.Key() != key {
			out = append(out, c)
		}
	}
	return out
}

// findQueued resolves a queue reference by key, then by case-insensitive
// name.
func findQueued(q []model.Campaign, ref string) int {
	if i := indexKey(q, ref); i >= 0 {
		return i
	}
	for i, c := range q {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(ref)) {
			return i
		}
	}
	return -1
}
