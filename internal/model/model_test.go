package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCampaign_Key(t *testing.T) {
	ends := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		campaign Campaign
		want     string
	}{
		{"campaign id wins", Campaign{ID: "game-1", CampaignID: "camp-1"}, "camp-1"},
		{"game id fallback", Campaign{ID: "game-1"}, "game-1"},
		{"name and end fallback", Campaign{Name: "Rust ", EndsAt: ends}, "rust+1792454400"},
		{"name only", Campaign{Name: "Rust"}, "rust+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.campaign.Key())
		})
	}
}

func TestBucketFor(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, ExpiryUnknown, BucketFor(time.Time{}, now))
	assert.Equal(t, ExpiryUrgent, BucketFor(now.Add(23*time.Hour), now))
	assert.Equal(t, ExpiryWarning, BucketFor(now.Add(48*time.Hour), now))
	assert.Equal(t, ExpirySafe, BucketFor(now.Add(96*time.Hour), now))
}

func TestCampaign_Expired(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	assert.True(t, Campaign{EndsAt: now}.Expired(now), "end equal to now is expired")
	assert.True(t, Campaign{EndsAt: now.Add(-time.Second)}.Expired(now))
	assert.False(t, Campaign{EndsAt: now.Add(time.Second)}.Expired(now))
	assert.False(t, Campaign{}.Expired(now), "unknown end never expires")
}

func TestCampaign_AllowsChannel(t *testing.T) {
	open := Campaign{}
	assert.True(t, open.AllowsChannel("anyone"))
	assert.False(t, open.Restricted())

	restricted := Campaign{AllowedChannels: []string{"Shroud"}}
	assert.True(t, restricted.AllowsChannel("shroud"))
	assert.False(t, restricted.AllowsChannel("other"))

	empty := Campaign{AllowedChannels: []string{}}
	assert.False(t, empty.AllowsChannel("shroud"), "empty allow-list admits nobody")
}

func TestDrop_Key(t *testing.T) {
	assert.Equal(t, "d-1", Drop{ID: " d-1 "}.Key())

	a := Drop{CampaignID: "c", GameName: "Rust  Game", Name: "Hoodie", ImageURL: "X.png"}
	b := Drop{CampaignID: "c", GameName: "rust game", Name: "hoodie", ImageURL: "x.png"}
	assert.Equal(t, a.Key(), b.Key(), "fallback key folds case and whitespace")
}

func TestDrop_Normalize_ClaimedInvariant(t *testing.T) {
	d := Drop{Progress: 40, Claimed: true, Claimable: true}.Normalize()

	assert.True(t, d.Claimed)
	assert.False(t, d.Claimable)
	assert.Equal(t, 100, d.Progress)
	assert.Equal(t, DropCompleted, d.Status)
}

func TestDrop_Normalize_ClaimableHasZeroRemaining(t *testing.T) {
	d := Drop{Progress: 90, Claimable: true, RemainingMinutes: IntPtr(12)}.Normalize()

	if assert.NotNil(t, d.RemainingMinutes) {
		assert.Equal(t, 0, *d.RemainingMinutes)
	}
	assert.Equal(t, 100, d.Progress)
}

func TestDrop_Normalize_DerivesStatus(t *testing.T) {
	assert.Equal(t, DropPending, Drop{}.Normalize().Status)
	assert.Equal(t, DropActive, Drop{Progress: 10}.Normalize().Status)
	assert.Equal(t, DropCompleted, Drop{Progress: 150}.Normalize().Status)
	assert.Equal(t, 100, Drop{Progress: 150}.Normalize().Progress)
	assert.Equal(t, 0, Drop{Progress: -3}.Normalize().Progress)
	assert.Equal(t, SourceCampaign, Drop{}.Normalize().Source)
}

func TestFarmingState_CloneIsDeep(t *testing.T) {
	st := FarmingState{
		Selected: &Campaign{ID: "g", AllowedChannels: []string{"a"}},
		Drops:    []Drop{{ID: "d", RemainingMinutes: IntPtr(5)}},
		Queue:    []Campaign{{ID: "q"}},
	}

	cp := st.Clone()
	cp.Selected.AllowedChannels[0] = "changed"
	*cp.Drops[0].RemainingMinutes = 1
	cp.Queue[0].ID = "other"

	assert.Equal(t, "a", st.Selected.AllowedChannels[0])
	assert.Equal(t, 5, *st.Drops[0].RemainingMinutes)
	assert.Equal(t, "q", st.Queue[0].ID)
}

func TestStreamer_ViewerRank(t *testing.T) {
	known := Streamer{Viewers: IntPtr(10)}
	unknown := Streamer{}
	assert.Less(t, known.ViewerRank(), unknown.ViewerRank())
}
