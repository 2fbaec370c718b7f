// Package store provides SQLite-backed durable state for the farming daemon.
//
// Two tables back the store:
//   - kv_state: one JSON document per record (farming state, snapshot cache,
//     timing state, pushed session)
//   - claim_history: an append-only log of claim attempts
//
// Saves are write-through: the engine calls them after every mutation, and
// each call replaces the stored document atomically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON
//   - A single open connection; SQLite serializes writers anyway.
package store
