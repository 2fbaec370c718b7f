package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/engine/enginetest"
	"github.com/roach88/dropfarm/internal/gql"
	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/testutil"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fakeProber struct {
	info      gql.StreamInfo
	infoErr   error
	tokenErr  error
	probed    []string
	playbacks []string
}

func (p *fakeProber) StreamInfo(_ context.Context, _ model.Session, login string) (gql.StreamInfo, error) {
	p.probed = append(p.probed, login)
	return p.info, p.infoErr
}

func (p *fakeProber) PlaybackToken(_ context.Context, _ model.Session, login string) (string, error) {
	p.playbacks = append(p.playbacks, login)
	return "token", p.tokenErr
}

func newController(p *fakeProber) (*Controller, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(t0)
	sessions := &enginetest.Sessions{Session: model.Session{OAuthToken: "tok"}}
	return New(p, sessions, clock), clock
}

func TestController_OpenExistsClose(t *testing.T) {
	c, _ := newController(&fakeProber{})
	ctx := context.Background()

	id, err := c.Open(ctx, model.Streamer{Login: "alpha"})
	require.NoError(t, err)
	assert.Contains(t, id, "view-")

	ok, err := c.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Close(ctx, id))
	ok, _ = c.Exists(ctx, id)
	assert.False(t, ok)

	assert.NoError(t, c.Close(ctx, id), "closing twice is a no-op")
}

func TestController_OpenRejectsEmptyLogin(t *testing.T) {
	c, _ := newController(&fakeProber{})
	_, err := c.Open(context.Background(), model.Streamer{Login: " "})
	assert.Error(t, err)
}

func TestController_Observe(t *testing.T) {
	enabled := true
	p := &fakeProber{info: gql.StreamInfo{Login: "alpha", Live: true, DropsEnabled: &enabled}}
	c, _ := newController(p)
	ctx := context.Background()

	id, err := c.Open(ctx, model.Streamer{Login: "alpha"})
	require.NoError(t, err)

	obs, err := c.Observe(ctx, id)
	require.NoError(t, err)
	assert.True(t, obs.Live)
	assert.Equal(t, "alpha", obs.Channel)
	require.NotNil(t, obs.DropsEnabled)
	assert.True(t, *obs.DropsEnabled)
	assert.Equal(t, []string{"alpha"}, p.probed)
}

func TestController_ObserveMissingChannelReadsNotLive(t *testing.T) {
	p := &fakeProber{infoErr: &engine.RemoteError{Code: engine.ErrCodeNotFound, Op: "stream_metadata"}}
	c, _ := newController(p)
	ctx := context.Background()

	id, _ := c.Open(ctx, model.Streamer{Login: "alpha"})
	obs, err := c.Observe(ctx, id)
	require.NoError(t, err)
	assert.False(t, obs.Live)
	assert.Equal(t, "alpha", obs.Channel)
}

func TestController_ObserveTransientError(t *testing.T) {
	p := &fakeProber{infoErr: engine.NewRemoteError(engine.ErrCodeTransient, "stream_metadata", errors.New("timeout"))}
	c, _ := newController(p)
	ctx := context.Background()

	id, _ := c.Open(ctx, model.Streamer{Login: "alpha"})
	_, err := c.Observe(ctx, id)
	assert.True(t, engine.IsTransientError(err))
}

func TestController_ObserveUnknownBinding(t *testing.T) {
	c, _ := newController(&fakeProber{})
	_, err := c.Observe(context.Background(), "view-missing")
	assert.True(t, engine.IsNotFound(err))
}

func TestController_EnforcePlayback(t *testing.T) {
	p := &fakeProber{}
	c, clock := newController(p)
	ctx := context.Background()

	id, _ := c.Open(ctx, model.Streamer{Login: "alpha"})
	clock.Advance(time.Minute)
	require.NoError(t, c.EnforcePlayback(ctx, id))

	assert.Equal(t, []string{"alpha"}, p.playbacks)
	bindings := c.Bindings()
	require.Len(t, bindings, 1)
	assert.Equal(t, t0, bindings[0].OpenedAt)
	assert.Equal(t, t0.Add(time.Minute), bindings[0].LastPlayback)

	p.tokenErr = errors.New("offline")
	assert.Error(t, c.EnforcePlayback(ctx, id))
}

func TestController_SessionFailure(t *testing.T) {
	p := &fakeProber{}
	clock := testutil.NewFakeClock(t0)
	c := New(p, &enginetest.Sessions{Err: errors.New("no token")}, clock)
	ctx := context.Background()

	id, _ := c.Open(ctx, model.Streamer{Login: "alpha"})
	_, err := c.Observe(ctx, id)
	assert.Error(t, err)
	assert.Empty(t, p.probed)
}

func TestController_SatisfiesEnginePort(t *testing.T) {
	var _ engine.TabController = (*Controller)(nil)
}
