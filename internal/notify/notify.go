// Package notify fans engine notifications out to subscribers.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/dropfarm/internal/engine"
)

// DefaultBuffer is the per-subscriber queue depth.
const DefaultBuffer = 16

// Broadcaster delivers every notification to all current subscribers.
// A subscriber whose queue is full misses the notification rather than
// stalling the engine.
type Broadcaster struct {
	buffer int

	mu      sync.Mutex
	nextID  int
	subs    map[int]chan engine.Notification
	dropped atomic.Int64
}

// NewBroadcaster creates a broadcaster with the given per-subscriber
// buffer; non-positive values use DefaultBuffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{buffer: buffer, subs: map[int]chan engine.Notification{}}
}

// Subscribe registers a subscriber. The returned cancel func closes the
// channel and is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan engine.Notification, func()) {
	ch := make(chan engine.Notification, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Notify implements engine.Notifier.
func (b *Broadcaster) Notify(_ context.Context, n engine.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- n:
		default:
			b.dropped.Add(1)
			slog.Debug("subscriber queue full, notification dropped", "subscriber", id, "kind", n.Kind)
		}
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped on full queues.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Log writes notifications to the structured log.
type Log struct{}

// Notify implements engine.Notifier.
func (Log) Notify(_ context.Context, n engine.Notification) {
	attrs := []any{"kind", n.Kind, "running", n.State.Running}
	if n.State.Selected != nil {
		attrs = append(attrs, "campaign", n.State.Selected.Name)
	}
	if n.State.ActiveStreamer != nil {
		attrs = append(attrs, "streamer", n.State.ActiveStreamer.Login)
	}
	if n.Message != "" {
		attrs = append(attrs, "message", n.Message)
	}
	switch n.Kind {
	case engine.NotifyState:
		slog.Debug("state changed", attrs...)
	default:
		slog.Info("farming event", attrs...)
	}
}

// Multi forwards to each notifier in order.
type Multi []engine.Notifier

// Notify implements engine.Notifier.
func (m Multi) Notify(ctx context.Context, n engine.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
