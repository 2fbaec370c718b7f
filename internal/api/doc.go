// Package api is the local control API.
//
// Every endpoint answers with the envelope
//
//	{"success": bool, "error": "...", "code": "...", "data": ...}
//
// and command failures map onto HTTP statuses: invalid input is 400, a
// campaign missing from the queue is 404, commands that do not apply to the
// current farming state are 409, and upstream failures are 502.
//
// GET /events streams engine notifications as server-sent events.
package api
