package model

import "time"

// Snapshot is one fetch result from the remote campaign queries.
type Snapshot struct {
	Games     []Campaign          `json:"games"`
	Drops     []Drop              `json:"drops"`
	AllowList map[string][]string `json:"allow_list,omitempty"`
	FetchedAt time.Time           `json:"fetched_at"`

	// Full is false for light refreshes that only carry inventory progress.
	Full bool `json:"full"`
}

// FarmingState is the authoritative farming model persisted after every
// mutation.
type FarmingState struct {
	Selected           *Campaign  `json:"selected,omitempty"`
	Running            bool       `json:"running"`
	Paused             bool       `json:"paused"`
	ActiveStreamer     *Streamer  `json:"active_streamer,omitempty"`
	ActiveTab          string     `json:"active_tab,omitempty"`
	CurrentDrop        *Drop      `json:"current_drop,omitempty"`
	Completed          []Drop     `json:"completed"`
	Pending            []Drop     `json:"pending"`
	Drops              []Drop     `json:"drops"`
	Available          []Campaign `json:"available"`
	Queue              []Campaign `json:"queue"`
	CompletionNotified bool       `json:"completion_notified"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s FarmingState) Clone() FarmingState {
	out := s
	if s.Selected != nil {
		c := *s.Selected
		c.AllowedChannels = cloneStrings(s.Selected.AllowedChannels)
		out.Selected = &c
	}
	if s.ActiveStreamer != nil {
		st := *s.ActiveStreamer
		out.ActiveStreamer = &st
	}
	if s.CurrentDrop != nil {
		d := cloneDrop(*s.CurrentDrop)
		out.CurrentDrop = &d
	}
	out.Completed = cloneDrops(s.Completed)
	out.Pending = cloneDrops(s.Pending)
	out.Drops = cloneDrops(s.Drops)
	out.Available = cloneCampaigns(s.Available)
	out.Queue = cloneCampaigns(s.Queue)
	return out
}

// TimingState holds the counters and cooldowns that outlive a single tick.
type TimingState struct {
	InvalidStreamChecks  int                  `json:"invalid_stream_checks"`
	LastRotationAt       time.Time            `json:"last_rotation_at,omitempty"`
	GraceUntil           time.Time            `json:"grace_until,omitempty"`
	ClaimRetryNotBefore  map[string]time.Time `json:"claim_retry_not_before,omitempty"`
	SessionLastAttemptAt time.Time            `json:"session_last_attempt_at,omitempty"`
	LastFullRefreshAt    time.Time            `json:"last_full_refresh_at,omitempty"`

	// Stall tracking for the current drop.
	StallKey      string    `json:"stall_key,omitempty"`
	StallProgress int       `json:"stall_progress"`
	StallSince    time.Time `json:"stall_since,omitempty"`
}

// Reset clears every counter and cooldown.
func (t *TimingState) Reset() {
	*t = TimingState{ClaimRetryNotBefore: map[string]time.Time{}}
}

// Session is the credential bundle supplied by the session provider.
type Session struct {
	OAuthToken     string `json:"oauth_token"`
	UserID         string `json:"user_id"`
	DeviceID       string `json:"device_id"`
	SessionUUID    string `json:"session_uuid"`
	IntegrityToken string `json:"integrity_token,omitempty"`
}

func cloneDrop(d Drop) Drop {
	if d.RequiredMinutes != nil {
		d.RequiredMinutes = IntPtr(*d.RequiredMinutes)
	}
	if d.RemainingMinutes != nil {
		d.RemainingMinutes = IntPtr(*d.RemainingMinutes)
	}
	return d
}

func cloneDrops(in []Drop) []Drop {
	if in == nil {
		return nil
	}
	out := make([]Drop, len(in))
	for i, d := range in {
		out[i] = cloneDrop(d)
	}
	return out
}

func cloneCampaigns(in []Campaign) []Campaign {
	if in == nil {
		return nil
	}
	out := make([]Campaign, len(in))
	for i, c := range in {
		c.AllowedChannels = cloneStrings(c.AllowedChannels)
		out[i] = c
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
