// Package repositories implements SQLite persistence for local client state.
//
// Only the caller's own data is stored here. Jobs and conversations live on the server and are mirrored in memory by
// the cache package.
//
// Key Implementations:
//   - [SessionRepository] : the bearer token, exposed as an oauth2.TokenSource
//   - [PreferenceRepository] : small key/value settings such as the last submitted job
package repositories
