// Package gql is the remote campaign API client.
//
// Every call posts persisted-query envelopes to the GraphQL endpoint over an
// azuretls session. Wire payloads are loosely typed and often partial; they
// are decoded into the private wire types in wire.go and converted once into
// model entities, normalized, before leaving the package.
//
// Failures are classified as *engine.RemoteError:
//   - AUTH: HTTP 401/403, integrity or token errors in the response
//   - TRANSIENT: transport errors, 429, 5xx, service errors
//   - NOT_FOUND: HTTP 404 or an unknown persisted query
//   - EMPTY_RESULT: a response carrying neither data nor errors
package gql
