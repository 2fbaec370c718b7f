// Package model defines the strict domain entities shared by the farming
// engine and its collaborators.
//
// Upstream payloads are loosely typed and frequently partial. They are parsed
// once at the boundary (see internal/gql) into the types below, and every
// entity that crosses into the engine is normalized so the invariants hold:
//
//   - Claimed drops always report Progress == 100 and Claimable == false
//   - Claimable drops always report RemainingMinutes == 0
//   - Identity keys are stable across snapshots
//
// Nothing in this package performs I/O.
package model
