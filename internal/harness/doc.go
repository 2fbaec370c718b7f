// Package harness runs scripted farming scenarios against the engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	snapshots:            # served in order, the last one repeats
//	  - campaigns:
//	      - { id: rust, name: Rust, ends_in: 96h }
//	    drops:
//	      - { id: r1, name: Hoodie, game_id: rust, progress: 20, remaining_minutes: 40 }
//	streamers:
//	  rust:
//	    - { login: alpha, live: true, viewers: 500 }
//	steps:
//	  - do: select
//	    name: Rust
//	  - do: start
//	  - do: tick
//	  - do: advance
//	    duration: 2m
//	  - do: pause
//	    expect_error: NOT_RUNNING
//	assertions:
//	  - type: state
//	    running: true
//	    selected: rust
//	  - type: notify_order
//	    kinds: [state, farming_stopped]
//
// # Steps
//
// select, queue_add, queue_remove, queue_clear, start, pause, resume, stop,
// refresh, tick, advance (moves the fake clock), observe (scripts viewer
// observations) and serve (replaces the scripted snapshots).
//
// # Assertion Types
//
//   - state: checks fields of the final farming state
//   - notified: a notification of kind (and message, when given) was sent
//   - notify_order: kinds appear in this order, gaps allowed
//   - notify_count: kind was sent exactly count times
//
// Every run uses a fake clock, fixed tick ids and in-memory ports, so the
// notification trace is reproducible and can be compared to a golden file.
package harness
