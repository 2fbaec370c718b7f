package reconcile

import (
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

// MergeGames unions prev and incoming by identity key. Incoming fields win
// except ImageURL, EndsAt, ExpiresInMs and DropCount, which fall back to the
// previous value when incoming lacks them. Expired campaigns are dropped and
// the expiry bucket is recomputed for now.
func MergeGames(prev, incoming []model.Campaign, now time.Time) []model.Campaign {
	byKey := make(map[string]model.Campaign, len(prev))
	for _, c := range prev {
		byKey[c.Key()] = c
	}

	seen := make(map[string]bool, len(prev)+len(incoming))
	out := make([]model.Campaign, 0, len(prev)+len(incoming))
	for _, c := range incoming {
		key := c.Key()
		if seen[key] {
			continue
		}
		if old, ok := byKey[key]; ok {
			c = mergeGame(c, old)
		}
		seen[key] = true
		out = append(out, c)
	}
	for _, c := range prev {
		key := c.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	kept := out[:0]
	for _, c := range out {
		if c.Expired(now) {
			continue
		}
		kept = append(kept, c.WithExpiry(now))
	}
	return kept
}

func mergeGame(newer, older model.Campaign) model.Campaign {
	if newer.ImageURL == "" {
		newer.ImageURL = older.ImageURL
	}
	if newer.EndsAt.IsZero() {
		newer.EndsAt = older.EndsAt
	}
	if newer.ExpiresInMs == 0 {
		newer.ExpiresInMs = older.ExpiresInMs
	}
	if newer.DropCount == 0 {
		newer.DropCount = older.DropCount
	}
	return newer
}

// ApplyAllowList copies channel allow-lists onto campaigns that do not
// already carry one. Lists are keyed by campaign id, falling back to the
// campaign key.
func ApplyAllowList(games []model.Campaign, allow map[string][]string) []model.Campaign {
	if len(allow) == 0 {
		return games
	}
	for i, c := range games {
		if c.AllowedChannels != nil {
			continue
		}
		list, ok := allow[c.CampaignID]
		if !ok {
			list, ok = allow[c.Key()]
		}
		if ok {
			games[i].AllowedChannels = append([]string(nil), list...)
		}
	}
	return games
}
