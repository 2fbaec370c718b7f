// Package engine implements the farming orchestrator.
//
// The engine owns one explicit state object (model.FarmingState plus
// model.TimingState) and reaches the outside world only through the narrow
// ports in ports.go, so every step can be driven from tests with fakes and a
// fake clock.
//
// TICK LOOP:
//
// A Scheduler calls Tick on a fixed interval. Each tick:
//  1. verifies the viewing tab still exists
//  2. enforces playback while the grace window is open
//  3. runs the streamer rotation state machine (rotation.go)
//  4. refreshes the snapshot, full on the slower cadence (refresh.go)
//  5. claims claimable drops, forcing a full refresh after a claim (claim.go)
//  6. advances the campaign queue past exhausted campaigns (queue.go)
//  7. persists state once and notifies
//
// CONCURRENCY:
//
// Ticks and commands run on different goroutines. A mutex guards the state
// during in-memory phases only; remote calls run without it. At most one
// tick is in flight: a second tick is dropped, never queued. Stop and
// SelectCampaign bump a run generation, and results from an older
// generation are discarded when they land.
//
// FAILURE POLICY:
//
// Remote failures degrade to "no-op this step, retry next tick". Auth
// failures refresh the session once. A partial snapshot never replaces the
// cached full snapshot; it is supplemented from it instead.
package engine
