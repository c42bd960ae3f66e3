// Package cache is the process-wide client-side mirror of server state.
//
// A [Store] maps a logical query [Key] to an [Entry] holding the last fetched value, when it was fetched,
// and whether it has been invalidated. Every writer (pollers, job mutations, background refresh) goes through
// the Store's update and invalidate operations; values are replaced wholesale and never mutated in place.
//
// # Keys
//
//   - [JobsKey] : the caller's job collection ([]models.Job, newest first)
//   - [JobKey] : one job as last observed by its poller
//   - [ConversationsKey] : the conversation list
//   - [ConversationKey] : one conversation with its messages
//   - [CurrentUserKey] : the authenticated account
//
// # Fetching
//
// [Store.Fetch] returns the cached value while it is fresh and calls the fetcher otherwise. Concurrent fetches of
// the same key share one request (singleflight).
//
// # Optimistic updates
//
// [Store.Begin] opens a [Txn] that snapshots an entry, applies a local change, and then either commits or restores
// the exact snapshot. [Optimistic] wraps the whole sequence around a remote mutation.
package cache
