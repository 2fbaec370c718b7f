package gql

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Noooste/azuretls-client"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type exchange struct {
	Method  string
	URL     string
	Headers azuretls.OrderedHeaders
	Reqs    []request
}

func (x exchange) header(name string) string {
	for _, h := range x.Headers {
		if len(h) == 2 && strings.EqualFold(h[0], name) {
			return h[1]
		}
	}
	return ""
}

type reply struct {
	Status int
	Body   string
	Err    error
}

// fakeDoer routes by operation name. A batched request is routed to
// name+"[]". GET requests are routed by URL. Replies queued for a route are
// served first, one per exchange.
type fakeDoer struct {
	mu        sync.Mutex
	routes    map[string]reply
	queued    map[string][]reply
	exchanges []exchange
	closed    bool
}

func newFakeDoer(routes map[string]reply) *fakeDoer {
	return &fakeDoer{routes: routes}
}

func (f *fakeDoer) Do(_ context.Context, method, url string, headers azuretls.OrderedHeaders, body []byte) (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	x := exchange{Method: method, URL: url, Headers: headers}
	key := url
	if len(body) > 0 {
		if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
			_ = json.Unmarshal(body, &x.Reqs)
			if len(x.Reqs) > 0 {
				key = x.Reqs[0].OperationName + "[]"
			}
		} else {
			var one request
			_ = json.Unmarshal(body, &one)
			x.Reqs = []request{one}
			key = one.OperationName
		}
	}
	f.exchanges = append(f.exchanges, x)

	r, ok := f.routes[key]
	if q := f.queued[key]; len(q) > 0 {
		r, ok = q[0], true
		f.queued[key] = q[1:]
	}
	if !ok {
		return 404, []byte(`{"error":"no route"}`), nil
	}
	if r.Err != nil {
		return 0, nil, r.Err
	}
	status := r.Status
	if status == 0 {
		status = 200
	}
	return status, []byte(r.Body), nil
}

func (f *fakeDoer) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeDoer) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, x := range f.exchanges {
		for _, r := range x.Reqs {
			out = append(out, r.OperationName)
		}
	}
	return out
}

func (f *fakeDoer) last() exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges[len(f.exchanges)-1]
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}

func newTestClient(d *fakeDoer) *Client {
	return NewClient(Config{RetryBase: time.Millisecond}, WithDoer(d), WithNow(func() time.Time { return t0 }))
}
