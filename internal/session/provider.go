package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

// DefaultRetryCooldown is the minimum spacing between failed acquisitions.
const DefaultRetryCooldown = 30 * time.Second

// ErrNoToken is returned when no source carries an OAuth token.
var ErrNoToken = errors.New("no session token available")

// Store persists a pushed session bundle.
type Store interface {
	LoadSession(ctx context.Context) (model.Session, bool, error)
	SaveSession(ctx context.Context, sess model.Session) error
}

// Validator resolves the user behind a token. Implementations return an
// AUTH *engine.RemoteError for a rejected token.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (userID string, err error)
}

// Static is the credential bundle configured out of band.
type Static struct {
	OAuthToken string
	UserID     string
	DeviceID   string
}

// Option configures a Provider.
type Option func(*Provider)

// WithStatic sets the configured credentials.
func WithStatic(s Static) Option {
	return func(p *Provider) { p.static = s }
}

// WithValidator resolves missing user ids and rejects dead tokens.
func WithValidator(v Validator) Option {
	return func(p *Provider) { p.validator = v }
}

// WithRetryCooldown overrides DefaultRetryCooldown.
func WithRetryCooldown(d time.Duration) Option {
	return func(p *Provider) { p.cooldown = d }
}

// WithClock overrides the wall clock.
func WithClock(c engine.Clock) Option {
	return func(p *Provider) { p.clock = c }
}

// Provider implements engine.SessionProvider.
type Provider struct {
	store     Store
	validator Validator
	static    Static
	cooldown  time.Duration
	clock     engine.Clock

	flights singleflight.Group

	mu          sync.Mutex
	cached      *model.Session
	lastAttempt time.Time
	lastErr     error
	deviceID    string
	sessionUUID string
}

// NewProvider creates a provider reading pushed sessions from store. store
// may be nil when only static credentials are used.
func NewProvider(store Store, opts ...Option) *Provider {
	p := &Provider{
		store:    store,
		cooldown: DefaultRetryCooldown,
		clock:    engine.SystemClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the cached session, acquiring one when none is cached.
func (p *Provider) Get(ctx context.Context) (model.Session, error) {
	p.mu.Lock()
	if p.cached != nil {
		sess := *p.cached
		p.mu.Unlock()
		return sess, nil
	}
	p.mu.Unlock()
	return p.acquire(ctx)
}

// Invalidate drops the cached session.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// Refresh re-acquires the session from its sources.
func (p *Provider) Refresh(ctx context.Context) (model.Session, error) {
	p.Invalidate()
	return p.acquire(ctx)
}

// Push stores a session handed over by an external producer and makes it
// current. A leading "OAuth " prefix on the token is stripped.
func (p *Provider) Push(ctx context.Context, sess model.Session) (model.Session, error) {
	sess.OAuthToken = cleanToken(sess.OAuthToken)
	if sess.OAuthToken == "" {
		return model.Session{}, ErrNoToken
	}
	if p.store == nil {
		return model.Session{}, errors.New("push session: no store configured")
	}

	sess = p.fill(sess)
	if err := p.store.SaveSession(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("push session: %w", err)
	}

	p.mu.Lock()
	p.cached = &sess
	p.lastErr = nil
	p.mu.Unlock()

	slog.Info("session pushed", "user_id", sess.UserID, "token", Mask(sess.OAuthToken))
	return sess, nil
}

func (p *Provider) acquire(ctx context.Context) (model.Session, error) {
	v, err, _ := p.flights.Do("session", func() (any, error) {
		p.mu.Lock()
		if p.cached != nil {
			sess := *p.cached
			p.mu.Unlock()
			return sess, nil
		}
		now := p.clock.Now()
		if p.lastErr != nil && now.Sub(p.lastAttempt) < p.cooldown {
			err := p.lastErr
			p.mu.Unlock()
			return model.Session{}, err
		}
		p.lastAttempt = now
		p.mu.Unlock()

		sess, err := p.load(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.lastErr = err
			slog.Warn("session acquisition failed", "error", err, "retry_after", p.cooldown)
			return model.Session{}, err
		}
		p.lastErr = nil
		p.cached = &sess
		slog.Info("session acquired", "user_id", sess.UserID, "token", Mask(sess.OAuthToken))
		return sess, nil
	})
	if err != nil {
		return model.Session{}, err
	}
	return v.(model.Session), nil
}

func (p *Provider) load(ctx context.Context) (model.Session, error) {
	sess, err := p.source(ctx)
	if err != nil {
		return model.Session{}, err
	}

	if p.validator != nil {
		userID, err := p.validator.ValidateToken(ctx, sess.OAuthToken)
		if err != nil {
			return model.Session{}, fmt.Errorf("validate token: %w", err)
		}
		if sess.UserID == "" {
			sess.UserID = userID
		}
	}
	return p.fill(sess), nil
}

func (p *Provider) source(ctx context.Context) (model.Session, error) {
	if tok := cleanToken(p.static.OAuthToken); tok != "" {
		return model.Session{
			OAuthToken: tok,
			UserID:     p.static.UserID,
			DeviceID:   p.static.DeviceID,
		}, nil
	}
	if p.store != nil {
		sess, ok, err := p.store.LoadSession(ctx)
		if err != nil {
			return model.Session{}, engine.NewRemoteError(engine.ErrCodeTransient, "load_session", err)
		}
		if ok && cleanToken(sess.OAuthToken) != "" {
			sess.OAuthToken = cleanToken(sess.OAuthToken)
			return sess, nil
		}
	}
	return model.Session{}, engine.NewRemoteError(engine.ErrCodeAuth, "load_session", ErrNoToken)
}

// fill assigns the process-stable device id and session uuid where the
// source left them empty.
func (p *Provider) fill(sess model.Session) model.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sess.DeviceID == "" {
		if p.deviceID == "" {
			p.deviceID = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		sess.DeviceID = p.deviceID
	}
	if sess.SessionUUID == "" {
		if p.sessionUUID == "" {
			p.sessionUUID = uuid.NewString()
		}
		sess.SessionUUID = p.sessionUUID
	}
	return sess
}

func cleanToken(tok string) string {
	tok = strings.TrimSpace(tok)
	if len(tok) > 6 && strings.EqualFold(tok[:6], "oauth ") {
		tok = strings.TrimSpace(tok[6:])
	}
	return tok
}

// Mask returns a token safe for logs.
func Mask(tok string) string {
	if len(tok) <= 8 {
		return strings.Repeat("*", len(tok))
	}
	return tok[:4] + strings.Repeat("*", len(tok)-8) + tok[len(tok)-4:]
}
