// Package models defines the records exchanged with the playlist summarization service.
//
// The package contains three groups of types:
//
// 1. Jobs: background summarization tasks and their status vocabulary
//   - [Job] : one server-side job with nullable lifecycle timestamps
//   - [Status] : pending, running, completed, failed with [IsTerminal] and [IsActive]
//
// 2. Conversations: the durable artifacts produced by a summary
//   - [Conversation] : list row with a summary snippet
//   - [ConversationDetail] : full summary plus chat [Message] history
//   - [JobClaim] : response of claiming a completed job
//
// 3. Submission: the dual-mode response of POST /summarize
//   - [SubmitResponse] : tagged sync | async variant with exhaustive [SubmitResponse.Match]
//   - [SummaryResult] : immediate summary returned to anonymous callers
//
// Nullable wire fields are modelled with [mo.Option] so absence is explicit in the type.
package models
