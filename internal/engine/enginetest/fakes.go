// Package enginetest provides in-memory fakes for the engine ports.
package enginetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

// GraphQL is a scripted GraphQL port.
type GraphQL struct {
	mu sync.Mutex

	// Snapshots are served in order; the last one repeats.
	Snapshots   []model.Snapshot
	SnapshotErr error
	// Streamers by campaign game id.
	Streamers map[string][]model.Streamer
	// ClaimErrs by claim id; a missing entry succeeds.
	ClaimErrs map[string][]error

	FetchCalls     int
	FullFetchCalls int
	DirectoryCalls []string
	ClaimCalls     []string
}

// NewGraphQL creates a fake serving snaps in order.
func NewGraphQL(snaps ...model.Snapshot) *GraphQL {
	return &GraphQL{
		Snapshots: snaps,
		Streamers: map[string][]model.Streamer{},
		ClaimErrs: map[string][]error{},
	}
}

func (g *GraphQL) FetchSnapshot(_ context.Context, _ model.Session, full bool) (model.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.FetchCalls++
	if full {
		g.FullFetchCalls++
	}
	if g.SnapshotErr != nil {
		return model.Snapshot{}, g.SnapshotErr
	}
	if len(g.Snapshots) == 0 {
		return model.Snapshot{Full: full}, nil
	}
	snap := g.Snapshots[0]
	if len(g.Snapshots) > 1 {
		g.Snapshots = g.Snapshots[1:]
	}
	snap.Full = full
	return snap, nil
}

func (g *GraphQL) FetchDirectoryStreamers(_ context.Context, _ model.Session, game model.Campaign) ([]model.Streamer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.DirectoryCalls = append(g.DirectoryCalls, game.ID)
	return append([]model.Streamer(nil), g.Streamers[game.ID]...), nil
}

func (g *GraphQL) ClaimReward(_ context.Context, _ model.Session, claimID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ClaimCalls = append(g.ClaimCalls, claimID)
	errs := g.ClaimErrs[claimID]
	if len(errs) == 0 {
		return nil
	}
	err := errs[0]
	g.ClaimErrs[claimID] = errs[1:]
	return err
}

// SetSnapshots replaces the scripted snapshots.
func (g *GraphQL) SetSnapshots(snaps ...model.Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Snapshots = snaps
}

// Sessions is a counting session provider.
type Sessions struct {
	mu          sync.Mutex
	Session     model.Session
	Err         error
	Gets        int
	Refreshes   int
	Invalidates int
}

func (s *Sessions) Get(context.Context) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets++
	return s.Session, s.Err
}

func (s *Sessions) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invalidates++
}

func (s *Sessions) Refresh(context.Context) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Refreshes++
	return s.Session, s.Err
}

// Tabs is an in-memory tab controller. Observations are served per tab in
// order; the last one repeats.
type Tabs struct {
	mu           sync.Mutex
	next         int
	open         map[string]model.Streamer
	Observations []engine.Observation
	Opened       []string
	Closed       []string
	Playback     int
}

func NewTabs() *Tabs {
	return &Tabs{open: map[string]model.Streamer{}}
}

func (t *Tabs) Exists(_ context.Context, tabID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.open[tabID]
	return ok, nil
}

func (t *Tabs) Open(_ context.Context, s model.Streamer) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := fmt.Sprintf("tab-%d", t.next)
	t.open[id] = s
	t.Opened = append(t.Opened, s.Login)
	return id, nil
}

func (t *Tabs) Close(_ context.Context, tabID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, tabID)
	t.Closed = append(t.Closed, tabID)
	return nil
}

// Vanish drops a tab as if the user closed it.
func (t *Tabs) Vanish(tabID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, tabID)
}

func (t *Tabs) Observe(_ context.Context, tabID string) (engine.Observation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.open[tabID]
	if !ok {
		return engine.Observation{}, fmt.Errorf("tab %s not open", tabID)
	}
	if len(t.Observations) == 0 {
		on := true
		return engine.Observation{Live: true, Channel: s.Login, DropsEnabled: &on}, nil
	}
	obs := t.Observations[0]
	if len(t.Observations) > 1 {
		t.Observations = t.Observations[1:]
	}
	if obs.Channel == "" {
		obs.Channel = s.Login
	}
	return obs, nil
}

func (t *Tabs) EnforcePlayback(context.Context, string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Playback++
	return nil
}

// SetObservations replaces the scripted observations.
func (t *Tabs) SetObservations(obs ...engine.Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Observations = obs
}

// Store is an in-memory StateStore and ClaimLog.
type Store struct {
	mu       sync.Mutex
	Farming  *model.FarmingState
	Timing   *model.TimingState
	Snapshot *model.Snapshot
	Claims   []engine.ClaimRecord
	Saves    int
}

func (s *Store) LoadFarming(context.Context) (model.FarmingState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Farming == nil {
		return model.FarmingState{}, false, nil
	}
	return s.Farming.Clone(), true, nil
}

func (s *Store) SaveFarming(_ context.Context, st model.FarmingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := st.Clone()
	s.Farming = &c
	s.Saves++
	return nil
}

func (s *Store) LoadSnapshot(context.Context) (model.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Snapshot == nil {
		return model.Snapshot{}, false, nil
	}
	return *s.Snapshot, true, nil
}

func (s *Store) SaveSnapshot(_ context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Snapshot = &snap
	return nil
}

func (s *Store) LoadTiming(context.Context) (model.TimingState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Timing == nil {
		return model.TimingState{}, false, nil
	}
	return *s.Timing, true, nil
}

func (s *Store) SaveTiming(_ context.Context, t model.TimingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Timing = &t
	return nil
}

func (s *Store) RecordClaim(_ context.Context, rec engine.ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Claims = append(s.Claims, rec)
	return nil
}

// Notifier records notifications.
type Notifier struct {
	mu   sync.Mutex
	Sent []engine.Notification
}

func (n *Notifier) Notify(_ context.Context, note engine.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, note)
}

// Kinds returns the kinds sent so far.
func (n *Notifier) Kinds() []engine.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]engine.NotificationKind, len(n.Sent))
	for i, note := range n.Sent {
		out[i] = note.Kind
	}
	return out
}

// Scheduler records Start/Stop without running anything.
type Scheduler struct {
	mu       sync.Mutex
	Interval time.Duration
	Starts   int
	Stops    int
	Fn       func(context.Context)
}

func (s *Scheduler) Start(interval time.Duration, fn func(context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Starts++
	s.Interval = interval
	s.Fn = fn
	return nil
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stops++
	return nil
}
