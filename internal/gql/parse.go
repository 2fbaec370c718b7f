package gql

import (
	"strings"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func gameName(g *wireGame) string {
	if g == nil {
		return ""
	}
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.Name
}

// allowedChannels returns the campaign allow-list. A disabled or empty
// upstream list means any channel may earn progress.
func allowedChannels(a *wireAllow) []string {
	if a == nil || !a.IsEnabled || len(a.Channels) == 0 {
		return nil
	}
	out := make([]string, 0, len(a.Channels))
	seen := map[string]bool{}
	for _, ch := range a.Channels {
		login := strings.ToLower(strings.TrimSpace(ch.Login))
		if login == "" {
			login = strings.ToLower(strings.TrimSpace(ch.Name))
		}
		if login == "" || seen[login] {
			continue
		}
		seen[login] = true
		out = append(out, login)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toCampaign(wc wireCampaign, now time.Time) model.Campaign {
	c := model.Campaign{
		Name:            gameName(wc.Game),
		CampaignID:      wc.ID,
		EndsAt:          parseTime(wc.EndAt),
		DropCount:       len(wc.TimeBasedDrops),
		AllowedChannels: allowedChannels(wc.Allow),
	}
	if wc.Game != nil {
		c.ID = wc.Game.ID
		c.CategorySlug = wc.Game.Slug
		c.ImageURL = wc.Game.BoxArtURL
	}
	if c.Name == "" {
		c.Name = wc.Name
	}
	return c.WithExpiry(now)
}

// toDrops converts the time-based drops of a campaign. awarded holds benefit
// ids already granted to the user; drops carrying one of them and no
// per-user progress are reported claimed.
func toDrops(wc wireCampaign, source model.ProgressSource, awarded map[string]bool) []model.Drop {
	out := make([]model.Drop, 0, len(wc.TimeBasedDrops))
	campaignEnd := parseTime(wc.EndAt)
	for _, td := range wc.TimeBasedDrops {
		d := model.Drop{
			ID:                   td.ID,
			Name:                 td.Name,
			CampaignID:           wc.ID,
			GameName:             gameName(wc.Game),
			Source:               source,
			EndsAt:               parseTime(td.EndAt),
			RequiresSubscription: td.RequiredSubs > 0,
		}
		if wc.Game != nil {
			d.GameID = wc.Game.ID
			d.CategorySlug = wc.Game.Slug
		}
		if d.EndsAt.IsZero() {
			d.EndsAt = campaignEnd
		}

		var benefitID string
		if len(td.BenefitEdges) > 0 {
			b := td.BenefitEdges[0].Benefit
			benefitID = b.ID
			if b.Name != "" {
				d.Name = b.Name
			}
			d.ImageURL = b.ImageAssetURL
		}

		if td.RequiredMinutesWatched != nil {
			d.RequiredMinutes = model.IntPtr(*td.RequiredMinutesWatched)
			d.RemainingMinutes = model.IntPtr(*td.RequiredMinutesWatched)
		}

		switch {
		case td.Self != nil:
			applySelf(&d, *td.Self)
		case benefitID != "" && awarded[benefitID]:
			d.Claimed = true
		}
		out = append(out, d.Normalize())
	}
	return out
}

func applySelf(d *model.Drop, self wireDropSelf) {
	d.ClaimID = self.DropInstanceID
	d.Claimed = self.IsClaimed

	current := self.CurrentMinutesWatched
	if current < 0 {
		current = 0
	}
	reached := true
	if d.RequiredMinutes != nil {
		required := *d.RequiredMinutes
		if required > 0 {
			d.Progress = min(100, current*100/required)
		}
		d.RemainingMinutes = model.IntPtr(max(0, required-current))
		reached = current >= required
	}
	d.Claimable = !d.Claimed && self.DropInstanceID != "" && reached
}

func awardedBenefits(drops []wireEventDrop) map[string]bool {
	out := make(map[string]bool, len(drops))
	for _, d := range drops {
		if d.ID != "" {
			out[d.ID] = true
		}
	}
	return out
}

// activeCampaign reports whether a dashboard campaign can still be farmed.
func activeCampaign(wc wireCampaign, now time.Time) bool {
	if wc.Status != "" && !strings.EqualFold(wc.Status, "ACTIVE") {
		return false
	}
	end := parseTime(wc.EndAt)
	return end.IsZero() || end.After(now)
}

func toStreamer(n wireStreamNode) (model.Streamer, bool) {
	if n.Broadcaster == nil {
		return model.Streamer{}, false
	}
	login := strings.ToLower(strings.TrimSpace(n.Broadcaster.Login))
	if login == "" {
		return model.Streamer{}, false
	}
	s := model.Streamer{
		Login:       login,
		DisplayName: n.Broadcaster.DisplayName,
		Live:        n.Type == "" || strings.EqualFold(n.Type, "live"),
		Thumbnail:   n.PreviewImageURL,
	}
	if n.ViewersCount != nil {
		s.Viewers = model.IntPtr(*n.ViewersCount)
	}
	return s, true
}
