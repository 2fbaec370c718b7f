package gql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Noooste/azuretls-client"
	"github.com/cenkalti/backoff/v5"

	"github.com/roach88/dropfarm/internal/engine"
)

// Defaults for Config fields left empty.
const (
	DefaultEndpoint    = "https://gql.twitch.tv/gql"
	DefaultValidateURL = "https://id.twitch.tv/oauth2/validate"
	DefaultClientID    = "kimne78kx3ncx6brgo4mv6wki5h1ko"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"

	defaultTimeout     = 20 * time.Second
	defaultDetailBatch = 20
	defaultAttempts    = 3
	defaultRetryBase   = 500 * time.Millisecond
)

// Config configures the client. Operations maps operation names to their
// persisted query hashes.
type Config struct {
	Endpoint    string
	ValidateURL string
	ClientID    string
	UserAgent   string
	Operations  map[string]string

	// DetailBatch bounds how many campaign detail queries share one request.
	DetailBatch int

	// Attempts bounds tries per request when the transport or server fails
	// transiently. RetryBase is the first backoff interval.
	Attempts  int
	RetryBase time.Duration
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ValidateURL == "" {
		c.ValidateURL = DefaultValidateURL
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.DetailBatch <= 0 {
		c.DetailBatch = defaultDetailBatch
	}
	if c.Attempts <= 0 {
		c.Attempts = defaultAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	ops := make(map[string]string, len(DefaultOperations))
	for name, hash := range DefaultOperations {
		ops[name] = hash
	}
	for name, hash := range c.Operations {
		if hash != "" {
			ops[name] = hash
		}
	}
	c.Operations = ops
	return c
}

// Doer performs one HTTP exchange. The default implementation wraps an
// azuretls session; tests substitute a canned responder.
type Doer interface {
	Do(ctx context.Context, method, url string, headers azuretls.OrderedHeaders, body []byte) (status int, respBody []byte, err error)
	Close()
}

type azureDoer struct {
	session *azuretls.Session
}

// NewAzureDoer returns a Doer backed by a browser-fingerprinted session.
func NewAzureDoer() Doer {
	return &azureDoer{session: azuretls.NewSession()}
}

func (d *azureDoer) Do(ctx context.Context, method, url string, headers azuretls.OrderedHeaders, body []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return 0, nil, context.DeadlineExceeded
		}
	}

	var (
		resp *azuretls.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = d.session.Get(url, headers, timeout)
	default:
		resp, err = d.session.Post(url, body, headers, timeout)
	}
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, resp.Body, nil
}

func (d *azureDoer) Close() {
	d.session.Close()
}

// Client implements engine.GraphQL.
type Client struct {
	cfg  Config
	doer Doer
	now  func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDoer overrides the transport.
func WithDoer(d Doer) ClientOption {
	return func(c *Client) { c.doer = d }
}

// WithNow overrides the wall clock used to stamp snapshots and derive
// expiry buckets.
func WithNow(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client. Close releases the transport.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{cfg: cfg.withDefaults(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = NewAzureDoer()
	}
	return c
}

// Close releases the underlying session.
func (c *Client) Close() error {
	c.doer.Close()
	return nil
}

type persistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

type extensions struct {
	PersistedQuery persistedQuery `json:"persistedQuery"`
}

type request struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Extensions    extensions     `json:"extensions"`
}

type wireError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []wireError     `json:"errors"`
}

func (c *Client) op(name string, vars map[string]any) (request, error) {
	hash, ok := c.cfg.Operations[name]
	if !ok || hash == "" {
		return request{}, engine.NewRemoteError(engine.ErrCodeNotFound, name,
			fmt.Errorf("no persisted query hash configured for %s", name))
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return request{
		OperationName: name,
		Variables:     vars,
		Extensions:    extensions{PersistedQuery: persistedQuery{Version: 1, SHA256Hash: hash}},
	}, nil
}

func (c *Client) headers(tok, deviceID, sessionUUID, integrity string) azuretls.OrderedHeaders {
	h := azuretls.OrderedHeaders{}
	add := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			h = append(h, []string{name, value})
		}
	}
	add("accept", "*/*")
	add("accept-language", "en-US")
	add("client-id", c.cfg.ClientID)
	if tok != "" {
		add("authorization", "OAuth "+tok)
	}
	add("client-session-id", sessionUUID)
	add("x-device-id", deviceID)
	add("client-integrity", integrity)
	add("content-type", "text/plain;charset=UTF-8")
	add("origin", "https://www.twitch.tv")
	add("referer", "https://www.twitch.tv/")
	add("user-agent", c.cfg.UserAgent)
	return h
}

// post sends the requests as one batch and returns the responses in order.
// A single request is sent bare, matching what the web client does.
func (c *Client) post(ctx context.Context, op string, h azuretls.OrderedHeaders, reqs ...request) ([]response, error) {
	var (
		body []byte
		err  error
	)
	if len(reqs) == 1 {
		body, err = json.Marshal(reqs[0])
	} else {
		body, err = json.Marshal(reqs)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	raw, err := c.send(ctx, op, h, body)
	if err != nil {
		return nil, err
	}

	var out []response
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(raw, &out)
	} else {
		var one response
		err = json.Unmarshal(raw, &one)
		out = []response{one}
	}
	if err != nil {
		return nil, engine.NewRemoteError(engine.ErrCodeTransient, op, fmt.Errorf("decode response: %w", err))
	}
	if len(out) != len(reqs) {
		return nil, engine.NewRemoteError(engine.ErrCodeTransient, op,
			fmt.Errorf("expected %d responses, got %d", len(reqs), len(out)))
	}
	return out, nil
}

// send posts body, retrying transport failures and transient statuses with
// exponential backoff for at most cfg.Attempts tries.
func (c *Client) send(ctx context.Context, op string, h azuretls.OrderedHeaders, body []byte) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBase
	b.MaxInterval = 8 * c.cfg.RetryBase

	raw, err := backoff.Retry(ctx, func() ([]byte, error) {
		status, raw, err := c.doer.Do(ctx, http.MethodPost, c.cfg.Endpoint, h, body)
		if err != nil {
			return nil, engine.NewRemoteError(engine.ErrCodeTransient, op, err)
		}
		if err := classifyStatus(op, status, raw); err != nil {
			if engine.IsTransientError(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return raw, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Debug("transient gql failure, retrying", "op", op, "retry_in", next, "error", err)
		}),
	)
	if err == nil {
		return raw, nil
	}
	var re *engine.RemoteError
	if !errors.As(err, &re) {
		return nil, engine.NewRemoteError(engine.ErrCodeTransient, op, err)
	}
	return nil, err
}

func classifyStatus(op string, status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &engine.RemoteError{Code: engine.ErrCodeAuth, Op: op, Message: fmt.Sprintf("status %d", status)}
	case status == http.StatusNotFound:
		return &engine.RemoteError{Code: engine.ErrCodeNotFound, Op: op, Message: fmt.Sprintf("status %d", status)}
	default:
		slog.Debug("unexpected status", "op", op, "status", status, "body", truncate(string(body), 200))
		return &engine.RemoteError{Code: engine.ErrCodeTransient, Op: op, Message: fmt.Sprintf("status %d", status)}
	}
}

// check classifies GraphQL-level errors and empty payloads.
func (r response) check(op string) error {
	if len(r.Errors) > 0 {
		msgs := make([]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			msgs = append(msgs, e.Message)
		}
		msg := strings.Join(msgs, "; ")
		return &engine.RemoteError{Code: classifyMessage(msg), Op: op, Message: msg}
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return &engine.RemoteError{Code: engine.ErrCodeEmptyResult, Op: op, Message: "response carried no data"}
	}
	return nil
}

func classifyMessage(msg string) engine.RemoteErrorCode {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "integrity"),
		strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "invalid token"),
		strings.Contains(lower, "forbidden"):
		return engine.ErrCodeAuth
	case strings.Contains(lower, "persistedquerynotfound"):
		return engine.ErrCodeNotFound
	default:
		return engine.ErrCodeTransient
	}
}

func decode[T any](op string, r response) (T, error) {
	var v T
	if err := r.check(op); err != nil {
		return v, err
	}
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return v, engine.NewRemoteError(engine.ErrCodeTransient, op, fmt.Errorf("decode data: %w", err))
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var errNoUser = errors.New("current user missing from response")
