package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

// MergeDrop merges two records of the same logical drop. Fields from newer
// win; older fills what newer lacks. Progress never decreases and claimed
// never reverts.
func MergeDrop(newer, older model.Drop) model.Drop {
	out := newer

	out.Progress = max(newer.Progress, older.Progress)
	out.Claimed = newer.Claimed || older.Claimed
	out.Claimable = (newer.Claimable || older.Claimable) && !out.Claimed
	out.RemainingMinutes = minFinite(newer.RemainingMinutes, older.RemainingMinutes)
	if out.RequiredMinutes == nil && older.RequiredMinutes != nil {
		out.RequiredMinutes = model.IntPtr(*older.RequiredMinutes)
	}

	fill(&out.ID, older.ID)
	fill(&out.ClaimID, older.ClaimID)
	fill(&out.Name, older.Name)
	fill(&out.GameID, older.GameID)
	fill(&out.GameName, older.GameName)
	fill(&out.CategorySlug, older.CategorySlug)
	fill(&out.CampaignID, older.CampaignID)
	fill(&out.ImageURL, older.ImageURL)
	if out.EndsAt.IsZero() {
		out.EndsAt = older.EndsAt
	}
	if out.Source == "" {
		out.Source = older.Source
	}

	out.Status = ""
	return out.Normalize()
}

func fill(dst *string, fallback string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = fallback
	}
}

func minFinite(a, b *int) *int {
	switch {
	case a != nil && b != nil:
		return model.IntPtr(min(*a, *b))
	case a != nil:
		return model.IntPtr(*a)
	case b != nil:
		return model.IntPtr(*b)
	default:
		return nil
	}
}

// SortPending orders drops by remaining minutes (unknown last), then nearer
// expiry (unknown last), then higher progress, then name.
func SortPending(drops []model.Drop) {
	sort.SliceStable(drops, func(i, j int) bool {
		return lessPending(drops[i], drops[j])
	})
}

func lessPending(a, b model.Drop) bool {
	ra, rb := remainingRank(a), remainingRank(b)
	if ra != rb {
		return ra < rb
	}
	ea, eb := expiryRank(a.EndsAt), expiryRank(b.EndsAt)
	if ea != eb {
		return ea < eb
	}
	if a.Progress != b.Progress {
		return a.Progress > b.Progress
	}
	return a.Name < b.Name
}

func remainingRank(d model.Drop) int64 {
	if d.RemainingMinutes == nil {
		return 1<<62 - 1
	}
	return int64(*d.RemainingMinutes)
}

func expiryRank(t time.Time) int64 {
	if t.IsZero() {
		return 1<<62 - 1
	}
	return t.Unix()
}

// Split partitions drops into completed and pending, sorts pending by
// priority and picks the current drop: the first farmable pending drop.
func Split(drops []model.Drop) (completed, pending []model.Drop, current *model.Drop) {
	completed = []model.Drop{}
	pending = []model.Drop{}
	for _, d := range drops {
		if d.Done() {
			completed = append(completed, d)
		} else {
			pending = append(pending, d)
		}
	}
	SortPending(pending)
	sort.SliceStable(completed, func(i, j int) bool { return completed[i].Name < completed[j].Name })

	for _, d := range pending {
		if d.Farmable() {
			cur := d
			current = &cur
			break
		}
	}
	return completed, pending, current
}
