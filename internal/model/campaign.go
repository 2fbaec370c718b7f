package model

import (
	"strconv"
	"strings"
	"time"
)

// ExpiryBucket classifies how close a campaign is to its end.
type ExpiryBucket string

const (
	ExpirySafe    ExpiryBucket = "safe"
	ExpiryWarning ExpiryBucket = "warning"
	ExpiryUrgent  ExpiryBucket = "urgent"
	ExpiryUnknown ExpiryBucket = "unknown"
)

const (
	warningWindow = 72 * time.Hour
	urgentWindow  = 24 * time.Hour
)

// Campaign is a reward-bearing game campaign a user can select to farm.
type Campaign struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	CampaignID   string       `json:"campaign_id,omitempty"`
	CategorySlug string       `json:"category_slug,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	EndsAt       time.Time    `json:"ends_at,omitempty"`
	ExpiresInMs  int64        `json:"expires_in_ms,omitempty"`
	Expiry       ExpiryBucket `json:"expiry"`
	DropCount    int          `json:"drop_count"`

	// AllowedChannels restricts which channels may earn progress.
	// nil means unrestricted.
	AllowedChannels []string `json:"allowed_channels"`
}

// Key returns the identity key used to deduplicate campaigns: the campaign
// id when present, else the game id, else name+endsAt.
func (c Campaign) Key() string {
	if id := strings.TrimSpace(c.CampaignID); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	ends := ""
	if !c.EndsAt.IsZero() {
		ends = strconv.FormatInt(c.EndsAt.UTC().Unix(), 10)
	}
	return strings.ToLower(strings.TrimSpace(c.Name)) + "+" + ends
}

// Expired reports whether the campaign has ended at now.
// Campaigns without a known end never expire.
func (c Campaign) Expired(now time.Time) bool {
	if c.EndsAt.IsZero() {
		return false
	}
	return !c.EndsAt.After(now)
}

// WithExpiry returns a copy with ExpiresInMs and Expiry derived from now.
func (c Campaign) WithExpiry(now time.Time) Campaign {
	c.Expiry = BucketFor(c.EndsAt, now)
	if !c.EndsAt.IsZero() {
		c.ExpiresInMs = c.EndsAt.Sub(now).Milliseconds()
	}
	return c
}

// Restricted reports whether the campaign has a channel allow-list.
func (c Campaign) Restricted() bool {
	return c.AllowedChannels != nil
}

// AllowsChannel reports whether login may farm this campaign.
func (c Campaign) AllowsChannel(login string) bool {
	if c.AllowedChannels == nil {
		return true
	}
	for _, allowed := range c.AllowedChannels {
		if strings.EqualFold(allowed, login) {
			return true
		}
	}
	return false
}

// BucketFor derives the expiry bucket for an end time.
func BucketFor(endsAt, now time.Time) ExpiryBucket {
	if endsAt.IsZero() {
		return ExpiryUnknown
	}
	left := endsAt.Sub(now)
	switch {
	case left < urgentWindow:
		return ExpiryUrgent
	case left < warningWindow:
		return ExpiryWarning
	default:
		return ExpirySafe
	}
}
