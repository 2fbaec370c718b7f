// Package session supplies credentials to the engine.
//
// A session comes from the first source that has a token: the static
// configuration (config file or DROPFARM_* environment), then the bundle
// last pushed over the control API and saved in the store. Device id and
// session uuid are generated once when the source carries none.
//
// Concurrent Get and Refresh calls share one in-flight acquisition, and a
// failed acquisition is not retried until the retry cooldown has elapsed.
package session
