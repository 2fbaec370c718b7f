package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

// Farm is the engine surface served over HTTP.
type Farm interface {
	State() model.FarmingState
	SelectCampaign(ctx context.Context, target model.Campaign) (model.Campaign, error)
	QueueAdd(ctx context.Context, c model.Campaign) ([]model.Campaign, error)
	QueueRemove(ctx context.Context, key string) ([]model.Campaign, error)
	QueueClear(ctx context.Context) error
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	RefreshDrops(ctx context.Context) (model.FarmingState, error)
	ListCampaigns(ctx context.Context, force bool) ([]model.Campaign, error)
}

// SessionSink accepts pushed sessions.
type SessionSink interface {
	Push(ctx context.Context, sess model.Session) (model.Session, error)
}

// ClaimHistory lists recent claim attempts.
type ClaimHistory interface {
	RecentClaims(ctx context.Context, limit int) ([]engine.ClaimRecord, error)
}

// Events supplies notification subscriptions for the event stream.
type Events interface {
	Subscribe() (<-chan engine.Notification, func())
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the fiber app to the farm.
type Server struct {
	app      *fiber.App
	farm     Farm
	sessions SessionSink
	claims   ClaimHistory
	events   Events
	health   Pinger

	heartbeat time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithSessions enables POST /session.
func WithSessions(s SessionSink) Option { return func(srv *Server) { srv.sessions = s } }

// WithClaims enables GET /claims.
func WithClaims(c ClaimHistory) Option { return func(srv *Server) { srv.claims = c } }

// WithEvents enables GET /events.
func WithEvents(e Events) Option { return func(srv *Server) { srv.events = e } }

// WithHealth adds a storage check to GET /healthz.
func WithHealth(p Pinger) Option { return func(srv *Server) { srv.health = p } }

// WithHeartbeat sets the event stream keep-alive interval.
func WithHeartbeat(d time.Duration) Option { return func(srv *Server) { srv.heartbeat = d } }

// New builds the server and registers routes.
func New(farm Farm, opts ...Option) *Server {
	s := &Server{
		farm:      farm,
		heartbeat: 15 * time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "dropfarm",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		UnescapePath:          true,
	})
	s.app.Use(requestLogger)
	s.routes()
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("control api listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Close ends open event streams.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Shutdown ends event streams and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.healthz)
	s.app.Get("/state", s.state)

	s.app.Get("/campaigns", s.listCampaigns)
	s.app.Post("/campaigns/select", s.selectCampaign)

	s.app.Get("/queue", s.listQueue)
	s.app.Post("/queue", s.queueAdd)
	s.app.Delete("/queue", s.queueClear)
	s.app.Delete("/queue/:key", s.queueRemove)

	farming := s.app.Group("/farming")
	farming.Post("/start", s.command(s.farm.Start))
	farming.Post("/pause", s.command(s.farm.Pause))
	farming.Post("/resume", s.command(s.farm.Resume))
	farming.Post("/stop", s.command(s.farm.Stop))

	s.app.Post("/drops/refresh", s.refreshDrops)

	if s.sessions != nil {
		s.app.Post("/session", s.pushSession)
	}
	if s.claims != nil {
		s.app.Get("/claims", s.listClaims)
	}
	if s.events != nil {
		s.app.Get("/events", s.streamEvents)
	}
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	slog.Debug("api request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(Envelope{Error: fe.Message})
	}
	return fail(c, err)
}
