package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/engine/enginetest"
	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/testutil"
)

// Epoch is the fake clock start for every scenario.
var Epoch = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

// Harness holds the engine and fakes for one scenario run.
type Harness struct {
	engine *engine.Engine
	gql    *enginetest.GraphQL
	tabs   *enginetest.Tabs
	notes  *enginetest.Notifier
	clock  *testutil.FakeClock
}

// New wires an engine to fresh fakes seeded from scenario.
func New(scenario *Scenario) *Harness {
	clock := testutil.NewFakeClock(Epoch)
	gql := enginetest.NewGraphQL(snapshots(scenario.Snapshots, Epoch)...)
	for game, list := range scenario.Streamers {
		gql.Streamers[game] = streamers(list)
	}

	h := &Harness{
		gql:   gql,
		tabs:  enginetest.NewTabs(),
		notes: &enginetest.Notifier{},
		clock: clock,
	}
	st := &enginetest.Store{}
	h.engine = engine.New(gql,
		&enginetest.Sessions{Session: model.Session{OAuthToken: "scenario-token", UserID: "scenario-user"}},
		h.tabs,
		st,
		engine.WithClock(clock),
		engine.WithNotifier(h.notes),
		engine.WithScheduler(&enginetest.Scheduler{}),
		engine.WithClaimLog(st),
		engine.WithIDGenerator(engine.NewFixedGenerator()),
	)
	return h
}

// Engine exposes the wired engine.
func (h *Harness) Engine() *engine.Engine {
	return h.engine
}

// Run executes a scenario in a fresh harness and evaluates its assertions.
// The returned error covers harness failures; step and assertion failures
// land in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("nil scenario")
	}
	h := New(scenario)
	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.apply(ctx, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Do, err)
		}
	}

	result.State = h.engine.State()
	for i, n := range h.notes.Sent {
		result.Trace = append(result.Trace, traceEvent(i+1, n))
	}

	for i, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// apply runs one step. Command failures are compared against ExpectError;
// a mismatch is recorded in result.
func (h *Harness) apply(ctx context.Context, step Step, result *Result) error {
	var err error
	switch step.Do {
	case StepSelect:
		_, err = h.engine.SelectCampaign(ctx, model.Campaign{ID: step.ID, Name: step.Name})
	case StepQueueAdd:
		_, err = h.engine.QueueAdd(ctx, model.Campaign{ID: step.ID, Name: step.Name})
	case StepQueueRemove:
		_, err = h.engine.QueueRemove(ctx, step.Name)
	case StepQueueClear:
		err = h.engine.QueueClear(ctx)
	case StepStart:
		err = h.engine.Start(ctx)
	case StepPause:
		err = h.engine.Pause(ctx)
	case StepResume:
		err = h.engine.Resume(ctx)
	case StepStop:
		err = h.engine.Stop(ctx)
	case StepRefresh:
		_, err = h.engine.RefreshDrops(ctx)
	case StepTick:
		result.Ticks = append(result.Ticks, h.engine.Tick(ctx))
	case StepAdvance:
		d, perr := time.ParseDuration(step.Duration)
		if perr != nil {
			return perr
		}
		h.clock.Advance(d)
	case StepObserve:
		obs := make([]engine.Observation, 0, len(step.Observations))
		for _, name := range step.Observations {
			obs = append(obs, observation(name))
		}
		h.tabs.SetObservations(obs...)
	case StepServe:
		h.gql.SetSnapshots(snapshots(step.Snapshots, h.clock.Now())...)
	default:
		return fmt.Errorf("unknown step %q", step.Do)
	}

	got := string(engine.CommandCode(err))
	switch {
	case step.ExpectError != "" && got != step.ExpectError:
		result.AddError(fmt.Sprintf("%s: expected error %s, got %v", step.Do, step.ExpectError, err))
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", step.Do, err))
	}
	return nil
}

func observation(name string) engine.Observation {
	on := true
	switch name {
	case "ambiguous":
		return engine.Observation{Live: true}
	case "not_live":
		return engine.Observation{Live: false}
	case "wrong_channel":
		return engine.Observation{Live: true, Channel: "somebody-else", DropsEnabled: &on}
	default:
		return engine.Observation{Live: true, DropsEnabled: &on}
	}
}

func snapshots(fixtures []SnapshotFixture, now time.Time) []model.Snapshot {
	out := make([]model.Snapshot, 0, len(fixtures))
	for _, f := range fixtures {
		snap := model.Snapshot{}
		for _, c := range f.Campaigns {
			camp := model.Campaign{ID: c.ID, Name: c.Name}
			if d, err := time.ParseDuration(c.EndsIn); err == nil && d > 0 {
				camp.EndsAt = now.Add(d)
			}
			if c.AllowedChannels != nil {
				camp.AllowedChannels = lower(c.AllowedChannels)
			}
			snap.Games = append(snap.Games, camp)
		}
		for _, d := range f.Drops {
			snap.Drops = append(snap.Drops, model.Drop{
				ID:               d.ID,
				ClaimID:          d.ClaimID,
				Name:             d.Name,
				GameID:           d.GameID,
				Progress:         d.Progress,
				RemainingMinutes: d.RemainingMinutes,
				Claimable:        d.Claimable,
				Claimed:          d.Claimed,
			})
		}
		out = append(out, snap)
	}
	return out
}

func streamers(list []StreamerFixture) []model.Streamer {
	out := make([]model.Streamer, 0, len(list))
	for _, s := range list {
		out = append(out, model.Streamer{Login: s.Login, Live: s.Live, Viewers: s.Viewers})
	}
	return out
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
