// Package tasks implements the job lifecycle of the playlist summarization client.
//
// # Components
//
//  1. [Submitter] : validates and throttles playlist URLs and posts them to the dual-mode summarize endpoint.
//     Anonymous callers receive an inline summary; authenticated callers receive a background job.
//     [Submitter.BulkSubmit] fans a list of URLs out to a small worker pool and stops at the job limit.
//
//  2. [Poller] : follows one job id until it reaches a terminal status. Requests never overlap, callbacks
//     fire once per distinct status, and responses for a cleared or replaced session are discarded.
//
//  3. [Orchestrator] : owns the cached job collection. Claim and retry update the cache after the server
//     confirms; delete is optimistic and rolls back to the exact prior collection on failure.
//
//  4. [Tracker] : routes a submission by mode and keeps the current selection.
//
//  5. [Conversations] and [Auth] : paging, chat and account operations over the same [cache.Store].
//
// # Progress Reporting
//
// Long-running operations accept an optional channel of [ProgressUpdate]. Sends never block; updates are
// dropped when the receiver is slow.
//
// # Timers
//
// Polling and background refresh are driven by a [Scheduler] so tests can advance time by hand.
package tasks
