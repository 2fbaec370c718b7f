package engine

import "time"

// Default cadences and thresholds.
const (
	DefaultTickInterval        = 15 * time.Second
	DefaultFullRefreshInterval = 2 * time.Minute
	DefaultGraceWindow         = 75 * time.Second
	DefaultStallWindow         = 10 * time.Minute
	DefaultRotationCooldown    = 5 * time.Minute
	DefaultClaimRetryCooldown  = 45 * time.Second
	DefaultRequestTimeout      = 20 * time.Second
	DefaultCampaignCacheTTL    = 5 * time.Minute
	DefaultRotationThreshold   = 3
)

// Weights are the severity increments applied to the invalid-stream counter.
type Weights struct {
	Ambiguous    int
	NotLive      int
	WrongChannel int
}

// Options holds the engine's cadences and thresholds.
type Options struct {
	TickInterval        time.Duration
	FullRefreshInterval time.Duration
	GraceWindow         time.Duration
	StallWindow         time.Duration
	RotationCooldown    time.Duration
	ClaimRetryCooldown  time.Duration
	RequestTimeout      time.Duration
	CampaignCacheTTL    time.Duration
	RotationThreshold   int
	Weights             Weights
}

// DefaultOptions returns the stock cadences.
func DefaultOptions() Options {
	return Options{
		TickInterval:        DefaultTickInterval,
		FullRefreshInterval: DefaultFullRefreshInterval,
		GraceWindow:         DefaultGraceWindow,
		StallWindow:         DefaultStallWindow,
		RotationCooldown:    DefaultRotationCooldown,
		ClaimRetryCooldown:  DefaultClaimRetryCooldown,
		RequestTimeout:      DefaultRequestTimeout,
		CampaignCacheTTL:    DefaultCampaignCacheTTL,
		RotationThreshold:   DefaultRotationThreshold,
		Weights:             Weights{Ambiguous: 1, NotLive: 2, WrongChannel: 3},
	}
}

// EngineOption allows configuration of engine collaborators and parameters.
type EngineOption func(*Engine)

// WithOptions replaces the cadences and thresholds.
func WithOptions(o Options) EngineOption {
	return func(e *Engine) {
		e.opts = o
	}
}

// WithClock sets the wall clock. Tests use a fake clock.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithScheduler sets the recurring tick driver. Without one, ticks only
// run when Tick is called directly.
func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithClaimLog records every claim attempt.
func WithClaimLog(l ClaimLog) EngineOption {
	return func(e *Engine) {
		e.claimLog = l
	}
}

// WithIDGenerator sets the tick id generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}
