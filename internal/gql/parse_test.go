package gql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/dropfarm/internal/model"
)

func TestToDrops_Progress(t *testing.T) {
	req := func(v int) *int { return &v }

	tests := []struct {
		name          string
		drop          wireTimeDrop
		wantProgress  int
		wantRemaining *int
		wantClaimable bool
	}{
		{
			name:          "partial",
			drop:          wireTimeDrop{ID: "a", RequiredMinutesWatched: req(90), Self: &wireDropSelf{CurrentMinutesWatched: 30}},
			wantProgress:  33,
			wantRemaining: req(60),
		},
		{
			name:          "reached without instance",
			drop:          wireTimeDrop{ID: "b", RequiredMinutesWatched: req(30), Self: &wireDropSelf{CurrentMinutesWatched: 30}},
			wantProgress:  100,
			wantRemaining: req(0),
		},
		{
			name:          "unknown requirement with instance",
			drop:          wireTimeDrop{ID: "c", Self: &wireDropSelf{DropInstanceID: "i"}},
			wantProgress:  100,
			wantRemaining: req(0),
			wantClaimable: true,
		},
		{
			name:          "zero requirement",
			drop:          wireTimeDrop{ID: "d", RequiredMinutesWatched: req(0), Self: &wireDropSelf{}},
			wantProgress:  0,
			wantRemaining: req(0),
		},
		{
			name:          "no self keeps the full requirement",
			drop:          wireTimeDrop{ID: "e", RequiredMinutesWatched: req(45)},
			wantProgress:  0,
			wantRemaining: req(45),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drops := toDrops(wireCampaign{ID: "camp", TimeBasedDrops: []wireTimeDrop{tt.drop}}, model.SourceInventory, nil)
			if !assert.Len(t, drops, 1) {
				return
			}
			d := drops[0]
			assert.Equal(t, tt.wantProgress, d.Progress)
			assert.Equal(t, tt.wantRemaining, d.RemainingMinutes)
			assert.Equal(t, tt.wantClaimable, d.Claimable)
			assert.Equal(t, "camp", d.CampaignID)
		})
	}
}

func TestToDrops_InheritsCampaignEnd(t *testing.T) {
	wc := wireCampaign{
		ID:             "camp",
		EndAt:          "2026-10-20T00:00:00Z",
		Game:           &wireGame{ID: "g", Name: "rust", DisplayName: "Rust", Slug: "rust"},
		TimeBasedDrops: []wireTimeDrop{{ID: "a"}, {ID: "b", EndAt: "2026-10-18T00:00:00Z"}},
	}
	drops := toDrops(wc, model.SourceCampaign, nil)

	assert.Equal(t, parseTime("2026-10-20T00:00:00Z"), drops[0].EndsAt)
	assert.Equal(t, parseTime("2026-10-18T00:00:00Z"), drops[1].EndsAt)
	assert.Equal(t, "Rust", drops[0].GameName)
	assert.Equal(t, "rust", drops[0].CategorySlug)
}

func TestAllowedChannels(t *testing.T) {
	assert.Nil(t, allowedChannels(nil))
	assert.Nil(t, allowedChannels(&wireAllow{IsEnabled: true}))
	assert.Nil(t, allowedChannels(&wireAllow{IsEnabled: false, Channels: []wireChannel{{Login: "a"}}}))
	assert.Equal(t, []string{"a", "b"}, allowedChannels(&wireAllow{
		IsEnabled: true,
		Channels:  []wireChannel{{Login: "A"}, {Name: "b"}, {Login: "a"}, {}},
	}))
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("not a time").IsZero())
	assert.Equal(t, t0, parseTime("2026-10-14T14:00:00+02:00"))
}
