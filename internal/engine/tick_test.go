package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/engine/enginetest"
	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/testutil"
)

func TestTick_IdleWhenNotRunning(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	res := h.tick(t)
	assert.Equal(t, engine.SkipIdle, res.Skipped)
	assert.Equal(t, 0, h.gql.FetchCalls)
}

func TestTick_IdleWhenPaused(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())
	require.NoError(t, h.eng.Pause(context.Background()))

	assert.Equal(t, engine.SkipIdle, h.tick(t).Skipped)

	require.NoError(t, h.eng.Resume(context.Background()))
	assert.Empty(t, h.tick(t).Skipped)
}

func TestTick_DropsConcurrentTick(t *testing.T) {
	fake := enginetest.NewGraphQL(baseSnapshot())
	gated := newGated(fake)
	h := newHarnessWith(t, gated, fake)
	h.farm(t, rustCampaign())

	gated.armed.Store(true)
	done := make(chan engine.TickResult)
	go func() { done <- h.eng.Tick(context.Background()) }()
	<-gated.entered

	second := h.tick(t)
	assert.Equal(t, engine.SkipInFlight, second.Skipped)

	close(gated.release)
	first := <-done
	assert.Empty(t, first.Skipped)
	assert.Equal(t, int64(1), first.Seq)
}

func TestTick_DiscardsResultsAfterStop(t *testing.T) {
	fake := enginetest.NewGraphQL(baseSnapshot())
	gated := newGated(fake)
	h := newHarnessWith(t, gated, fake)
	h.farm(t, rustCampaign())

	gated.armed.Store(true)
	done := make(chan engine.TickResult)
	go func() { done <- h.eng.Tick(context.Background()) }()
	<-gated.entered

	require.NoError(t, h.eng.Stop(context.Background()))
	close(gated.release)
	res := <-done

	assert.Equal(t, engine.SkipDiscarded, res.Skipped)
	st := h.eng.State()
	assert.False(t, st.Running)
	assert.Nil(t, st.ActiveStreamer)
	kinds := h.notes.Kinds()
	assert.Equal(t, engine.NotifyFarmingStopped, kinds[len(kinds)-1])
}

func TestTick_RecoversPanic(t *testing.T) {
	fake := enginetest.NewGraphQL(baseSnapshot())
	boom := &panickingGraphQL{GraphQL: fake}
	h := newHarnessWith(t, boom, fake)
	h.farm(t, rustCampaign())

	boom.armed.Store(true)
	var res engine.TickResult
	require.NotPanics(t, func() { res = h.tick(t) })
	assert.Equal(t, engine.SkipPanicked, res.Skipped)

	h.clock.Advance(15 * time.Second)
	assert.Empty(t, h.tick(t).Skipped, "in-flight flag must clear after a panic")
}

// trippingClock panics on its next read once armed.
type trippingClock struct {
	*testutil.FakeClock
	armed atomic.Bool
}

func (c *trippingClock) Now() time.Time {
	if c.armed.CompareAndSwap(true, false) {
		panic("clock exploded")
	}
	return c.FakeClock.Now()
}

// armingTabs arms the clock after opening a tab, so the next clock read
// happens while the binding is recorded.
type armingTabs struct {
	*enginetest.Tabs
	clock *trippingClock
}

func (t *armingTabs) Open(ctx context.Context, s model.Streamer) (string, error) {
	id, err := t.Tabs.Open(ctx, s)
	t.clock.armed.Store(true)
	return id, err
}

func TestTick_PanicWhileLockedReleasesState(t *testing.T) {
	clock := &trippingClock{FakeClock: testutil.NewFakeClock(t0)}
	fake := enginetest.NewGraphQL(baseSnapshot())
	fake.Streamers["rust"] = []model.Streamer{{Login: "alpha", Live: true, Viewers: viewers(5)}}
	eng := engine.New(fake,
		&enginetest.Sessions{Session: model.Session{OAuthToken: "tok", UserID: "u1"}},
		&armingTabs{Tabs: enginetest.NewTabs(), clock: clock},
		&enginetest.Store{},
		engine.WithClock(clock),
		engine.WithScheduler(&enginetest.Scheduler{}),
	)
	ctx := context.Background()
	_, err := eng.SelectCampaign(ctx, rustCampaign())
	require.NoError(t, err)
	require.NoError(t, eng.Start(ctx))

	res := eng.Tick(ctx)
	require.Equal(t, engine.SkipPanicked, res.Skipped)

	done := make(chan model.FarmingState, 1)
	go func() { done <- eng.State() }()
	select {
	case st := <-done:
		assert.True(t, st.Running)
		assert.Nil(t, st.ActiveStreamer)
	case <-time.After(2 * time.Second):
		t.Fatal("state lock still held after a recovered tick panic")
	}
}

func TestTick_AcquiresFewestViewers(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())

	res := h.tick(t)
	assert.Equal(t, engine.RotationWatching, res.Rotation)
	assert.Equal(t, []string{"bravo"}, h.tabs.Opened)

	st := h.eng.State()
	require.NotNil(t, st.ActiveStreamer)
	assert.Equal(t, "bravo", st.ActiveStreamer.Login)
	assert.Equal(t, "tab-1", st.ActiveTab)
	assert.Equal(t, t0.Add(engine.DefaultGraceWindow), h.eng.Timing().GraceUntil)
}

func TestTick_RespectsAllowList(t *testing.T) {
	snap := baseSnapshot()
	snap.Games[0].CampaignID = "camp-rust"
	snap.AllowList = map[string][]string{"camp-rust": {"Alpha"}}
	h := newHarness(t, snap)
	h.farm(t, rustCampaign())

	h.tick(t)
	assert.Equal(t, []string{"alpha"}, h.tabs.Opened)
}

func TestTick_NoViableStreamerLeavesNoViewer(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.gql.Streamers["rust"] = []model.Streamer{{Login: "offline", Live: false}}
	h.farm(t, rustCampaign())

	res := h.tick(t)
	assert.Equal(t, engine.RotationNoTarget, res.Rotation)
	assert.Empty(t, h.tabs.Opened)
	assert.Nil(t, h.eng.State().ActiveStreamer)
	assert.True(t, h.eng.State().Running)
}

func TestTick_EnforcesPlaybackOnlyDuringGrace(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())
	h.tick(t)

	h.clock.Advance(10 * time.Second)
	h.tick(t)
	assert.Equal(t, 1, h.tabs.Playback)

	h.clock.Advance(engine.DefaultGraceWindow)
	h.tick(t)
	assert.Equal(t, 1, h.tabs.Playback)
}

func TestTick_ReacquiresWhenTabVanishes(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())
	h.tick(t)

	h.tabs.Vanish("tab-1")
	h.clock.Advance(15 * time.Second)
	res := h.tick(t)

	assert.Equal(t, engine.RotationWatching, res.Rotation)
	assert.Equal(t, []string{"bravo", "bravo"}, h.tabs.Opened)
	assert.Equal(t, "tab-2", h.eng.State().ActiveTab)
}

func TestTick_LightThenFullCadence(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())
	fullBefore := h.gql.FullFetchCalls

	h.clock.Advance(15 * time.Second)
	res := h.tick(t)
	assert.True(t, res.Refreshed)
	assert.False(t, res.FullRefresh)
	assert.Equal(t, fullBefore, h.gql.FullFetchCalls)

	h.clock.Advance(engine.DefaultFullRefreshInterval)
	res = h.tick(t)
	assert.True(t, res.FullRefresh)
	assert.Equal(t, fullBefore+1, h.gql.FullFetchCalls)
}

func TestTick_ForcedFullRefreshAfterClaim(t *testing.T) {
	snap := baseSnapshot()
	snap.Drops = append(snap.Drops, model.Drop{ID: "r3", Name: "Crate", GameID: "rust", ClaimID: "cx", Claimable: true})
	h := newHarness(t, snap)
	h.farm(t, rustCampaign())
	fullBefore := h.gql.FullFetchCalls

	h.clock.Advance(15 * time.Second)
	res := h.tick(t)

	assert.True(t, res.Claimed)
	assert.True(t, res.FullRefresh)
	assert.Equal(t, fullBefore+1, h.gql.FullFetchCalls)
	kinds := h.notes.Kinds()
	assert.Equal(t, engine.NotifyClaimed, kinds[len(kinds)-1])

	d, ok := dropByID(h.eng.State(), "r3")
	require.True(t, ok)
	assert.True(t, d.Claimed, "claim survives the snapshot that still reports it claimable")
}

func TestTick_PartialSnapshotSupplementedFromCache(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())

	h.gql.SetSnapshots(model.Snapshot{Drops: []model.Drop{
		{ID: "r1", Name: "Hoodie", GameID: "rust", Progress: 60, Source: model.SourceInventory},
	}})
	h.clock.Advance(15 * time.Second)
	h.tick(t)

	st := h.eng.State()
	r1, ok := dropByID(st, "r1")
	require.True(t, ok)
	assert.Equal(t, 60, r1.Progress)
	_, ok = dropByID(st, "r2")
	assert.True(t, ok, "zero-progress drop kept from the cached snapshot")

	require.NotNil(t, h.store.Snapshot)
	assert.Len(t, h.store.Snapshot.Drops, 3, "partial fetch must not replace the cache")
}

func TestTick_EmptyFullSnapshotKeepsState(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())
	before := h.eng.State()

	h.gql.SetSnapshots(model.Snapshot{})
	h.clock.Advance(engine.DefaultFullRefreshInterval)
	res := h.tick(t)
	require.True(t, res.FullRefresh)

	st := h.eng.State()
	assert.Len(t, st.Drops, len(before.Drops))
	assert.Len(t, st.Available, len(before.Available))
}

func TestTick_RefreshFailureDegradesToNoop(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())
	before := h.eng.State().Drops

	h.gql.SnapshotErr = engine.NewRemoteError(engine.ErrCodeTransient, "fetch_snapshot", errors.New("connection reset"))
	h.clock.Advance(15 * time.Second)
	res := h.tick(t)

	assert.Empty(t, res.Skipped)
	assert.False(t, res.Refreshed)
	assert.Equal(t, before, h.eng.State().Drops)
}

func TestTick_AuthFailureRefreshesSessionOnce(t *testing.T) {
	h := newHarness(t, baseSnapshot())
	h.farm(t, rustCampaign())

	h.gql.SnapshotErr = engine.NewRemoteError(engine.ErrCodeAuth, "fetch_snapshot", errors.New("401"))
	h.clock.Advance(15 * time.Second)
	refreshes := h.sess.Refreshes
	h.tick(t)

	assert.Equal(t, refreshes+1, h.sess.Refreshes)
}
