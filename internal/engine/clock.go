package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall time. Tests inject a fake to step time explicitly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the process wall clock.
func SystemClock() Clock { return systemClock{} }

// Sequence is a monotonic tick counter.
//
// Every tick that gets past the in-flight guard is stamped with the next
// value, so log lines from one tick can be grouped and ordered even when
// wall-clock timestamps collide.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
type Sequence struct {
	seq atomic.Int64
}

// Next returns the next sequence number and increments the counter.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
