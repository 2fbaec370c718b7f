package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func runningState() model.FarmingState {
	rust := model.Campaign{ID: "rust", Name: "Rust", EndsAt: t0.Add(50 * time.Hour)}
	cs := model.Campaign{ID: "cs", Name: "Counter-Strike", EndsAt: t0.Add(100 * time.Hour)}
	hoodie := model.Drop{ID: "r1", Name: "Hoodie", GameID: "rust", Progress: 20, RemainingMinutes: model.IntPtr(40)}
	pants := model.Drop{ID: "r2", Name: "Pants", GameID: "rust", RemainingMinutes: model.IntPtr(120)}
	viewers := 500

	return model.FarmingState{
		Selected:       &rust,
		Running:        true,
		ActiveStreamer: &model.Streamer{Login: "alpha", Live: true, Viewers: &viewers},
		ActiveTab:      "view-1",
		CurrentDrop:    &hoodie,
		Pending:        []model.Drop{hoodie, pants},
		Completed:      []model.Drop{{ID: "r0", Name: "Cap", Claimed: true, Progress: 100}},
		Queue:          []model.Campaign{rust, cs},
	}
}

func TestRenderStatus_Running(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, runningState(), t0))
	newGoldie(t).Assert(t, "status_running", buf.Bytes())
}

func TestRenderStatus_Stopped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, model.FarmingState{}, t0))
	newGoldie(t).Assert(t, "status_stopped", buf.Bytes())
}

func TestRenderCampaigns(t *testing.T) {
	games := []model.Campaign{
		{ID: "rust", Name: "Rust", DropCount: 3, EndsAt: t0.Add(50 * time.Hour)},
		{ID: "cs", Name: "Counter-Strike", DropCount: 1, EndsAt: t0.Add(100 * time.Hour)},
		{ID: "mys", Name: "Mystery"},
	}
	var buf bytes.Buffer
	require.NoError(t, renderCampaigns(&buf, games, t0))
	newGoldie(t).Assert(t, "campaigns", buf.Bytes())
}

func TestRenderCampaigns_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderCampaigns(&buf, nil, t0))
	assert.Equal(t, "No campaigns available.\n", buf.String())
}

func TestRenderClaims(t *testing.T) {
	recs := []engine.ClaimRecord{
		{ClaimID: "c2", DropName: "Pants", Success: false, Error: "TRANSIENT: 503", At: t0.Add(time.Minute)},
		{ClaimID: "c1", DropName: "Hoodie", Success: true, At: t0},
	}
	var buf bytes.Buffer
	require.NoError(t, renderClaims(&buf, recs))

	out := buf.String()
	assert.Contains(t, out, "2026-10-14T12:01:00Z  Pants   failed: TRANSIENT: 503")
	assert.Contains(t, out, "2026-10-14T12:00:00Z  Hoodie  claimed")
}

func TestHumanizeLeft(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"unknown", time.Time{}, "-"},
		{"ended", t0.Add(-time.Minute), "ended"},
		{"minutes", t0.Add(42 * time.Minute), "42m"},
		{"hours", t0.Add(3*time.Hour + 5*time.Minute), "3h 5m"},
		{"days", t0.Add(49 * time.Hour), "2d 1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeLeft(tt.in, t0))
		})
	}
}

func TestDropLine_Claimable(t *testing.T) {
	d := model.Drop{Name: "Hoodie", Progress: 100, Claimable: true}
	assert.Equal(t, "Hoodie 100%, claimable", dropLine(d))
}
