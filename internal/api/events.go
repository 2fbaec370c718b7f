package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/roach88/dropfarm/internal/engine"
)

func (s *Server) streamEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The stream writer runs after the handler returns, so everything it
	// needs is captured here.
	notes, cancel := s.events.Subscribe()
	first := engine.Notification{Kind: engine.NotifyState, State: s.farm.State(), At: time.Now()}
	done := s.done
	heartbeat := s.heartbeat

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		slog.Debug("event stream opened")

		if err := writeEvent(w, first); err != nil {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case n, open := <-notes:
				if !open {
					return
				}
				if err := writeEvent(w, n); err != nil {
					slog.Debug("event stream closed", "error", err)
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					slog.Debug("event stream closed", "error", err)
					return
				}
			}
		}
	}))
	return nil
}

// writeEvent writes one server-sent event named after the notification kind.
func writeEvent(w *bufio.Writer, n engine.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Kind, data); err != nil {
		return err
	}
	return w.Flush()
}
