package engine

import (
	"context"
	"time"

	"github.com/roach88/dropfarm/internal/model"
)

// GraphQL is the remote campaign API. Implementations parse wire payloads
// into model entities at the boundary and classify failures as
// *RemoteError.
type GraphQL interface {
	// FetchSnapshot returns the known campaigns and drops. A light fetch
	// (full=false) may return inventory progress only.
	FetchSnapshot(ctx context.Context, sess model.Session, full bool) (model.Snapshot, error)

	// FetchDirectoryStreamers returns channels advertising the campaign.
	FetchDirectoryStreamers(ctx context.Context, sess model.Session, game model.Campaign) ([]model.Streamer, error)

	// ClaimReward claims one drop instance. A nil error means the claim was
	// accepted.
	ClaimReward(ctx context.Context, sess model.Session, claimID string) error
}

// SessionProvider supplies credentials. Get may serve a cached session;
// Refresh always re-fetches.
type SessionProvider interface {
	Get(ctx context.Context) (model.Session, error)
	Invalidate()
	Refresh(ctx context.Context) (model.Session, error)
}

// Observation is one reading of a viewing binding.
type Observation struct {
	Live    bool
	Channel string
	// DropsEnabled is nil when the stream metadata carried no signal.
	DropsEnabled *bool
}

// TabController manages viewing bindings for channels.
type TabController interface {
	Exists(ctx context.Context, tabID string) (bool, error)
	Open(ctx context.Context, s model.Streamer) (tabID string, err error)
	Close(ctx context.Context, tabID string) error
	Observe(ctx context.Context, tabID string) (Observation, error)
	EnforcePlayback(ctx context.Context, tabID string) error
}

// StateStore persists engine state between ticks and restarts. Load
// methods report false when nothing was stored.
type StateStore interface {
	LoadFarming(ctx context.Context) (model.FarmingState, bool, error)
	SaveFarming(ctx context.Context, st model.FarmingState) error
	LoadSnapshot(ctx context.Context) (model.Snapshot, bool, error)
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
	LoadTiming(ctx context.Context) (model.TimingState, bool, error)
	SaveTiming(ctx context.Context, t model.TimingState) error
}

// ClaimRecord is one claim attempt outcome.
type ClaimRecord struct {
	ClaimID    string    `json:"claim_id"`
	DropID     string    `json:"drop_id"`
	DropName   string    `json:"drop_name"`
	CampaignID string    `json:"campaign_id,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// ClaimLog records claim attempts for diagnostics.
type ClaimLog interface {
	RecordClaim(ctx context.Context, rec ClaimRecord) error
}

// NotificationKind names what changed.
type NotificationKind string

const (
	NotifyState            NotificationKind = "state"
	NotifyClaimed          NotificationKind = "claimed"
	NotifyRotated          NotificationKind = "rotated"
	NotifyCampaignComplete NotificationKind = "campaign_complete"
	NotifyFarmingStopped   NotificationKind = "farming_stopped"
)

// Notification is emitted after state is persisted.
type Notification struct {
	Kind    NotificationKind   `json:"kind"`
	Message string             `json:"message,omitempty"`
	State   model.FarmingState `json:"state"`
	At      time.Time          `json:"at"`
}

// Notifier receives notifications. Notify must not block for long.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Scheduler invokes fn every interval until stopped.
type Scheduler interface {
	Start(interval time.Duration, fn func(context.Context)) error
	Stop() error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
