// Package ui implements an interactive job dashboard using bubbletea's Elm architecture.
//
// The dashboard has four views:
//  1. [JobsView] : Browse the cached job collection with per-status badges
//  2. [DetailView] : Inspect one job and act on it
//  3. [ConfirmDeleteView] : Confirm deleting a job
//  4. [SubmitView] : Enter a playlist URL to summarize
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// It subscribes to the job collection in the cache store, so changes made by the poller or the background refresh are
// rendered as they land.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, c, r, d, w, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
