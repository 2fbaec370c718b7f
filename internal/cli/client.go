package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// APIError is a failure reported by the daemon.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Client calls the daemon control API.
type Client struct {
	base    string
	timeout time.Duration
}

// NewClient creates a client for the daemon at addr.
func NewClient(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{base: strings.TrimRight(addr, "/"), timeout: timeout}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// Get calls GET path and decodes the payload into out.
func (c *Client) Get(path string, out any) error {
	return c.do(fiber.Get(c.base+path), out)
}

// Post calls POST path with body encoded as JSON when non-nil.
func (c *Client) Post(path string, body, out any) error {
	a := fiber.Post(c.base + path)
	if body != nil {
		a = a.JSON(body)
	}
	return c.do(a, out)
}

// Delete calls DELETE path.
func (c *Client) Delete(path string, out any) error {
	return c.do(fiber.Delete(c.base+path), out)
}

func (c *Client) do(a *fiber.Agent, out any) error {
	status, body, errs := a.Timeout(c.timeout).Bytes()
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "control api unreachable at "+c.base, errors.Join(errs...))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return WrapExitError(ExitCommandError,
			fmt.Sprintf("unexpected response (status %d)", status), err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Status: status, Code: env.Code, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return WrapExitError(ExitCommandError, "decode response", err)
	}
	return nil
}

// escape encodes a path segment.
func escape(s string) string {
	return url.PathEscape(s)
}
