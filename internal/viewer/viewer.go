// Package viewer implements engine.TabController with virtual viewing
// bindings. A binding is a record of the channel being watched; observation
// and playback go through GraphQL stream probes instead of a browser tab.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/gql"
	"github.com/roach88/dropfarm/internal/model"
)

// Prober reads channel state.
type Prober interface {
	StreamInfo(ctx context.Context, sess model.Session, login string) (gql.StreamInfo, error)
	PlaybackToken(ctx context.Context, sess model.Session, login string) (string, error)
}

type binding struct {
	streamer     model.Streamer
	openedAt     time.Time
	lastPlayback time.Time
}

// Controller tracks open bindings.
type Controller struct {
	prober   Prober
	sessions engine.SessionProvider
	clock    engine.Clock

	mu       sync.Mutex
	bindings map[string]*binding
}

// New creates a controller probing through p with credentials from sessions.
func New(p Prober, sessions engine.SessionProvider, clock engine.Clock) *Controller {
	if clock == nil {
		clock = engine.SystemClock()
	}
	return &Controller{
		prober:   p,
		sessions: sessions,
		clock:    clock,
		bindings: map[string]*binding{},
	}
}

// Exists implements engine.TabController.
func (c *Controller) Exists(_ context.Context, tabID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.bindings[tabID]
	return ok, nil
}

// Open implements engine.TabController.
func (c *Controller) Open(ctx context.Context, s model.Streamer) (string, error) {
	if strings.TrimSpace(s.Login) == "" {
		return "", fmt.Errorf("open binding: empty login")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "view-" + uuid.NewString()

	c.mu.Lock()
	c.bindings[id] = &binding{streamer: s, openedAt: c.clock.Now()}
	c.mu.Unlock()

	slog.Info("viewing binding opened", "tab_id", id, "streamer", s.Login)
	return id, nil
}

// Close implements engine.TabController. Closing an unknown binding is a
// no-op.
func (c *Controller) Close(_ context.Context, tabID string) error {
	c.mu.Lock()
	b, ok := c.bindings[tabID]
	delete(c.bindings, tabID)
	c.mu.Unlock()

	if ok {
		slog.Info("viewing binding closed", "tab_id", tabID, "streamer", b.streamer.Login)
	}
	return nil
}

// Observe implements engine.TabController. A channel that no longer exists
// reads as not live.
func (c *Controller) Observe(ctx context.Context, tabID string) (engine.Observation, error) {
	login, err := c.login(tabID)
	if err != nil {
		return engine.Observation{}, err
	}
	sess, err := c.sessions.Get(ctx)
	if err != nil {
		return engine.Observation{}, fmt.Errorf("observe: %w", err)
	}

	info, err := c.prober.StreamInfo(ctx, sess, login)
	if err != nil {
		if engine.IsNotFound(err) {
			return engine.Observation{Live: false, Channel: login}, nil
		}
		return engine.Observation{}, err
	}
	return engine.Observation{
		Live:         info.Live,
		Channel:      info.Login,
		DropsEnabled: info.DropsEnabled,
	}, nil
}

// EnforcePlayback implements engine.TabController by requesting a fresh
// playback token for the bound channel.
func (c *Controller) EnforcePlayback(ctx context.Context, tabID string) error {
	login, err := c.login(tabID)
	if err != nil {
		return err
	}
	sess, err := c.sessions.Get(ctx)
	if err != nil {
		return fmt.Errorf("enforce playback: %w", err)
	}
	if _, err := c.prober.PlaybackToken(ctx, sess, login); err != nil {
		return fmt.Errorf("enforce playback: %w", err)
	}

	c.mu.Lock()
	if b, ok := c.bindings[tabID]; ok {
		b.lastPlayback = c.clock.Now()
	}
	c.mu.Unlock()
	return nil
}

// Binding describes one open binding.
type Binding struct {
	TabID        string         `json:"tab_id"`
	Streamer     model.Streamer `json:"streamer"`
	OpenedAt     time.Time      `json:"opened_at"`
	LastPlayback time.Time      `json:"last_playback,omitempty"`
}

// Bindings lists the open bindings.
func (c *Controller) Bindings() []Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Binding, 0, len(c.bindings))
	for id, b := range c.bindings {
		out = append(out, Binding{TabID: id, Streamer: b.streamer, OpenedAt: b.openedAt, LastPlayback: b.lastPlayback})
	}
	return out
}

func (c *Controller) login(tabID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bindings[tabID]
	if !ok {
		return "", &engine.RemoteError{Code: engine.ErrCodeNotFound, Op: "binding", Message: "unknown binding " + tabID}
	}
	return b.streamer.Login, nil
}
