package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

// Restore loads persisted state. Claim cooldowns and refresh timestamps
// carry over; counters tied to the old viewer do not. Farming that was
// running resumes on the scheduler.
func (e *Engine) Restore(ctx context.Context) error {
	st, haveState, err := e.store.LoadFarming(ctx)
	if err != nil {
		return fmt.Errorf("load farming state: %w", err)
	}
	tm, haveTiming, err := e.store.LoadTiming(ctx)
	if err != nil {
		return fmt.Errorf("load timing state: %w", err)
	}
	snap, haveSnap, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot cache: %w", err)
	}

	e.mu.Lock()
	if haveState {
		e.state = withSlices(st)
	}
	if haveTiming {
		tm.InvalidStreamChecks = 0
		tm.GraceUntil = time.Time{}
		if tm.ClaimRetryNotBefore == nil {
			tm.ClaimRetryNotBefore = map[string]time.Time{}
		}
		e.timing = tm
	}
	if haveSnap {
		e.snapshot = snap
	}
	running := e.state.Running
	selected := ""
	if e.state.Selected != nil {
		selected = e.state.Selected.Name
	}
	e.mu.Unlock()

	slog.Info("state restored",
		"running", running,
		"campaign", selected,
		"cached_drops", len(snap.Drops),
	)

	if running && e.scheduler != nil {
		if err := e.scheduler.Start(e.opts.TickInterval, e.scheduledTick); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	return nil
}

func withSlices(st model.FarmingState) model.FarmingState {
	if st.Drops == nil {
		st.Drops = []model.Drop{}
	}
	if st.Completed == nil {
		st.Completed = []model.Drop{}
	}
	if st.Pending == nil {
		st.Pending = []model.Drop{}
	}
	if st.Available == nil {
		st.Available = []model.Campaign{}
	}
	if st.Queue == nil {
		st.Queue = []model.Campaign{}
	}
	return st
}
