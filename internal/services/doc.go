// Package services implements the HTTP client for the playlist summarization API.
//
// [APIService] is the single gateway to the server. It covers background jobs, the dual-mode summarize
// endpoint, conversations, chat, and account endpoints.
//
// # Authentication
//
// A bearer token is attached to every request when the configured [oauth2.TokenSource] yields one. A source
// reporting [shared.ErrNotAuthenticated] means the caller is anonymous. For POST /summarize that selects sync
// mode on the server.
//
// # Error Handling
//
// Non-2xx responses are classified once, in [APIService], into the taxonomy callers match with errors.Is / errors.As:
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrInvalidState] : 409, or 400 on a job mutation
//   - [shared.ErrRateLimited] : 429 outside /summarize, with a fixed human message
//   - [PublicTimeoutError] : 408 from /summarize (anonymous request exceeded the server budget)
//   - [JobLimitError] : 429 from /summarize (too many active jobs), carrying the limit
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrAPIRequest] : anything else, with the server-provided detail
//
// Error bodies are read as RFC 7807 problem details, or as the legacy {"detail": ...} shape whose validation
// lists are joined into one message.
package services
