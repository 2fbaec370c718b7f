package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dropfarm/internal/engine"
)

func newTicker(t *testing.T) *Ticker {
	t.Helper()
	tk, err := New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tk.Shutdown() })
	return tk
}

func TestTicker_RunsUntilStopped(t *testing.T) {
	tk := newTicker(t)
	var runs atomic.Int32

	require.NoError(t, tk.Start(10*time.Millisecond, func(context.Context) { runs.Add(1) }))
	interval, active := tk.Active()
	assert.True(t, active)
	assert.Equal(t, 10*time.Millisecond, interval)
	_, ok := tk.NextRun()
	assert.True(t, ok)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, tk.Stop())
	_, active = tk.Active()
	assert.False(t, active)
	_, ok = tk.NextRun()
	assert.False(t, ok)

	time.Sleep(30 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, runs.Load(), "no runs after stop")
}

func TestTicker_StartReplacesJob(t *testing.T) {
	tk := newTicker(t)
	var first, second atomic.Int32

	require.NoError(t, tk.Start(10*time.Millisecond, func(context.Context) { first.Add(1) }))
	require.NoError(t, tk.Start(10*time.Millisecond, func(context.Context) { second.Add(1) }))

	require.Eventually(t, func() bool { return second.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Len(t, tk.sched.Jobs(), 1)
}

func TestTicker_StopCancelsRunContext(t *testing.T) {
	tk := newTicker(t)
	started := make(chan struct{}, 1)
	cancelled := make(chan struct{})

	require.NoError(t, tk.Start(10*time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		<-ctx.Done()
		close(cancelled)
	}))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	require.NoError(t, tk.Stop())

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("run context was not cancelled")
	}
}

func TestTicker_RejectsNonPositiveInterval(t *testing.T) {
	tk := newTicker(t)
	assert.Error(t, tk.Start(0, func(context.Context) {}))
}

func TestTicker_StopIdle(t *testing.T) {
	tk := newTicker(t)
	assert.NoError(t, tk.Stop())
	assert.NoError(t, tk.Stop())
}

func TestTicker_SatisfiesEnginePort(t *testing.T) {
	var _ engine.Scheduler = (*Ticker)(nil)
}
