package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/engine/enginetest"
	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/testutil"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func mins(v int) *int { return model.IntPtr(v) }
func viewers(v int) *int { return model.IntPtr(v) }

func rustCampaign() model.Campaign {
	return model.Campaign{ID: "rust", Name: "Rust", EndsAt: t0.Add(96 * time.Hour)}
}

func csCampaign() model.Campaign {
	return model.Campaign{ID: "cs", Name: "Counter-Strike", EndsAt: t0.Add(96 * time.Hour)}
}

func baseSnapshot() model.Snapshot {
	return model.Snapshot{
		Games: []model.Campaign{rustCampaign(), csCampaign()},
		Drops: []model.Drop{
			{ID: "r1", Name: "Hoodie", GameID: "rust", Progress: 20, RemainingMinutes: mins(40)},
			{ID: "r2", Name: "Pants", GameID: "rust", RemainingMinutes: mins(120)},
			{ID: "c1", Name: "Sticker", GameID: "cs", Progress: 10, RemainingMinutes: mins(50)},
		},
	}
}

type harness struct {
	eng   *engine.Engine
	gql   *enginetest.GraphQL
	sess  *enginetest.Sessions
	tabs  *enginetest.Tabs
	store *enginetest.Store
	notes *enginetest.Notifier
	sched *enginetest.Scheduler
	clock *testutil.FakeClock
}

func newHarness(t *testing.T, snaps ...model.Snapshot) *harness {
	t.Helper()
	fake := enginetest.NewGraphQL(snaps...)
	return newHarnessWith(t, fake, fake)
}

// newHarnessWith wires port as the engine's GraphQL while fake keeps the
// scripted state and call counts.
func newHarnessWith(t *testing.T, port engine.GraphQL, fake *enginetest.GraphQL) *harness {
	t.Helper()
	fake.Streamers["rust"] = []model.Streamer{
		{Login: "alpha", Live: true, Viewers: viewers(500)},
		{Login: "bravo", Live: true, Viewers: viewers(50)},
		{Login: "charlie", Live: true},
		{Login: "delta", Live: false, Viewers: viewers(5)},
	}
	fake.Streamers["cs"] = []model.Streamer{{Login: "echo", Live: true, Viewers: viewers(10)}}

	h := &harness{
		gql:   fake,
		sess:  &enginetest.Sessions{Session: model.Session{OAuthToken: "tok", UserID: "u1"}},
		tabs:  enginetest.NewTabs(),
		store: &enginetest.Store{},
		notes: &enginetest.Notifier{},
		sched: &enginetest.Scheduler{},
		clock: testutil.NewFakeClock(t0),
	}
	opts := engine.DefaultOptions()
	opts.RequestTimeout = time.Second
	h.eng = engine.New(port, h.sess, h.tabs, h.store,
		engine.WithOptions(opts),
		engine.WithClock(h.clock),
		engine.WithNotifier(h.notes),
		engine.WithScheduler(h.sched),
		engine.WithClaimLog(h.store),
		engine.WithIDGenerator(engine.NewFixedGenerator()),
	)
	return h
}

// farm selects c and starts farming it.
func (h *harness) farm(t *testing.T, c model.Campaign) {
	t.Helper()
	ctx := context.Background()
	_, err := h.eng.SelectCampaign(ctx, c)
	require.NoError(t, err)
	require.NoError(t, h.eng.Start(ctx))
}

func (h *harness) tick(t *testing.T) engine.TickResult {
	t.Helper()
	return h.eng.Tick(context.Background())
}

func valid() engine.Observation {
	on := true
	return engine.Observation{Live: true, DropsEnabled: &on}
}

func ambiguous() engine.Observation {
	return engine.Observation{Live: true}
}

func notLive() engine.Observation {
	return engine.Observation{Live: false}
}

// gatedGraphQL blocks the next FetchSnapshot once armed.
type gatedGraphQL struct {
	*enginetest.GraphQL
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGated(fake *enginetest.GraphQL) *gatedGraphQL {
	return &gatedGraphQL{GraphQL: fake, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedGraphQL) FetchSnapshot(ctx context.Context, sess model.Session, full bool) (model.Snapshot, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.GraphQL.FetchSnapshot(ctx, sess, full)
}

// panickingGraphQL panics on the next FetchSnapshot once armed.
type panickingGraphQL struct {
	*enginetest.GraphQL
	armed atomic.Bool
}

func (g *panickingGraphQL) FetchSnapshot(ctx context.Context, sess model.Session, full bool) (model.Snapshot, error) {
	if g.armed.CompareAndSwap(true, false) {
		panic("decoder exploded")
	}
	return g.GraphQL.FetchSnapshot(ctx, sess, full)
}

func dropByID(st model.FarmingState, id string) (model.Drop, bool) {
	for _, d := range st.Drops {
		if d.ID == id {
			return d, true
		}
	}
	return model.Drop{}, false
}

func queueKeys(q []model.Campaign) []string {
	out := make([]string, len(q))
	for i, c := range q {
		out[i] = c.Key()
	}
	return out
}
