package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
	"github.com/roach88/dropfarm/internal/session"
	"github.com/roach88/dropfarm/internal/store"
)

// Envelope is the response body of every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SessionRequest is the body of POST /session.
type SessionRequest struct {
	OAuthToken string `json:"oauth_token"`
	UserID     string `json:"user_id,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
}

// SessionResponse describes the accepted session without the raw token.
type SessionResponse struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

func fail(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	return c.Status(status).JSON(Envelope{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	if code := engine.CommandCode(err); code != "" {
		switch code {
		case engine.ErrCodeInvalidArgument:
			return fiber.StatusBadRequest, string(code)
		case engine.ErrCodeNotQueued:
			return fiber.StatusNotFound, string(code)
		default:
			return fiber.StatusConflict, string(code)
		}
	}

	var re *engine.RemoteError
	if errors.As(err, &re) {
		return fiber.StatusBadGateway, string(re.Code)
	}
	if errors.Is(err, session.ErrNoToken) {
		return fiber.StatusBadRequest, string(engine.ErrCodeInvalidArgument)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout, ""
	}
	return fiber.StatusInternalServerError, ""
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(Envelope{
		Error: msg,
		Code:  string(engine.ErrCodeInvalidArgument),
	})
}

func (s *Server) healthz(c *fiber.Ctx) error {
	if s.health != nil {
		if err := s.health.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(Envelope{Error: err.Error()})
		}
	}
	return ok(c, fiber.Map{"status": "ok"})
}

func (s *Server) state(c *fiber.Ctx) error {
	return ok(c, s.farm.State())
}

func (s *Server) listCampaigns(c *fiber.Ctx) error {
	force := c.QueryBool("force", false)
	games, err := s.farm.ListCampaigns(c.UserContext(), force)
	if err != nil {
		return fail(c, err)
	}
	if games == nil {
		games = []model.Campaign{}
	}
	return ok(c, games)
}

func (s *Server) selectCampaign(c *fiber.Ctx) error {
	var target model.Campaign
	if err := c.BodyParser(&target); err != nil {
		return badRequest(c, "invalid campaign body: "+err.Error())
	}
	picked, err := s.farm.SelectCampaign(c.UserContext(), target)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, picked)
}

func (s *Server) listQueue(c *fiber.Ctx) error {
	queue := s.farm.State().Queue
	if queue == nil {
		queue = []model.Campaign{}
	}
	return ok(c, queue)
}

func (s *Server) queueAdd(c *fiber.Ctx) error {
	var target model.Campaign
	if err := c.BodyParser(&target); err != nil {
		return badRequest(c, "invalid campaign body: "+err.Error())
	}
	queue, err := s.farm.QueueAdd(c.UserContext(), target)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, queue)
}

func (s *Server) queueRemove(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return badRequest(c, "missing queue key")
	}
	queue, err := s.farm.QueueRemove(c.UserContext(), key)
	if err != nil {
		return fail(c, err)
	}
	if queue == nil {
		queue = []model.Campaign{}
	}
	return ok(c, queue)
}

func (s *Server) queueClear(c *fiber.Ctx) error {
	if err := s.farm.QueueClear(c.UserContext()); err != nil {
		return fail(c, err)
	}
	return ok(c, []model.Campaign{})
}

// command adapts a state-changing engine command; the response carries the
// state after the command applied.
func (s *Server) command(fn func(context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := fn(c.UserContext()); err != nil {
			return fail(c, err)
		}
		return ok(c, s.farm.State())
	}
}

func (s *Server) refreshDrops(c *fiber.Ctx) error {
	st, err := s.farm.RefreshDrops(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, st)
}

func (s *Server) pushSession(c *fiber.Ctx) error {
	var req SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid session body: "+err.Error())
	}
	sess, err := s.sessions.Push(c.UserContext(), model.Session{
		OAuthToken: req.OAuthToken,
		UserID:     req.UserID,
		DeviceID:   req.DeviceID,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, SessionResponse{
		UserID:   sess.UserID,
		DeviceID: sess.DeviceID,
		Token:    session.Mask(sess.OAuthToken),
	})
}

func (s *Server) listClaims(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", store.DefaultClaimLimit)
	if limit <= 0 {
		return badRequest(c, "limit must be positive")
	}
	recs, err := s.claims.RecentClaims(c.UserContext(), limit)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, recs)
}
