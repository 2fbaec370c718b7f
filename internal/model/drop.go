package model

import (
	"strings"
	"time"
)

// DropStatus is the lifecycle position of a drop.
type DropStatus string

const (
	DropPending   DropStatus = "pending"
	DropActive    DropStatus = "active"
	DropCompleted DropStatus = "completed"
)

// ProgressSource names the query a drop's progress was read from.
type ProgressSource string

const (
	SourceCampaign  ProgressSource = "campaign"
	SourceInventory ProgressSource = "inventory"
)

// Drop is one rewardable milestone within a campaign.
type Drop struct {
	ID           string `json:"id"`
	ClaimID      string `json:"claim_id,omitempty"`
	Name         string `json:"name"`
	GameID       string `json:"game_id,omitempty"`
	GameName     string `json:"game_name,omitempty"`
	CategorySlug string `json:"category_slug,omitempty"`
	CampaignID   string `json:"campaign_id,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`

	Progress         int  `json:"progress"`
	Claimed          bool `json:"claimed"`
	Claimable        bool `json:"claimable"`
	RequiredMinutes  *int `json:"required_minutes,omitempty"`
	RemainingMinutes *int `json:"remaining_minutes,omitempty"`

	Status DropStatus     `json:"status"`
	Source ProgressSource `json:"source"`
	EndsAt time.Time      `json:"ends_at,omitempty"`

	// RequiresSubscription marks drops unlocked out of band; they are never
	// picked as the current drop.
	RequiresSubscription bool `json:"requires_subscription,omitempty"`
}

// Key returns the identity key: the drop id, else a composite of campaign,
// normalized game, normalized name and normalized image.
func (d Drop) Key() string {
	if id := strings.TrimSpace(d.ID); id != "" {
		return id
	}
	return strings.Join([]string{
		strings.TrimSpace(d.CampaignID),
		foldKey(d.GameName),
		foldKey(d.Name),
		foldKey(d.ImageURL),
	}, "|")
}

// Farmable reports whether watch time can advance this drop.
func (d Drop) Farmable() bool {
	return !d.RequiresSubscription
}

// Done reports whether the drop belongs in the completed split.
func (d Drop) Done() bool {
	return d.Claimed || (d.Progress >= 100 && !d.Claimable)
}

// Normalize returns a copy with the drop invariants enforced.
func (d Drop) Normalize() Drop {
	if d.Progress < 0 {
		d.Progress = 0
	}
	if d.Progress > 100 {
		d.Progress = 100
	}
	if d.Claimed {
		d.Claimable = false
		d.Progress = 100
		d.Status = DropCompleted
	}
	if d.Claimable {
		d.Progress = 100
		d.RemainingMinutes = IntPtr(0)
	}
	if d.Status == "" {
		switch {
		case d.Progress >= 100:
			d.Status = DropCompleted
		case d.Progress > 0:
			d.Status = DropActive
		default:
			d.Status = DropPending
		}
	}
	if d.Source == "" {
		d.Source = SourceCampaign
	}
	return d
}

// MarkClaimed returns the drop as it looks after a successful claim.
func (d Drop) MarkClaimed() Drop {
	d.Claimed = true
	d.Claimable = false
	d.Progress = 100
	d.RemainingMinutes = IntPtr(0)
	d.Status = DropCompleted
	return d
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

func foldKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
