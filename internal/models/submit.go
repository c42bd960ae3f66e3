package models

import (
	"encoding/json"
	"fmt"

	"github.com/samber/mo"
)

// SubmitMode discriminates the two shapes of a summarize response.
type SubmitMode string

const (
	// ModeSync is returned to anonymous callers: the summary was computed inline.
	ModeSync SubmitMode = "sync"
	// ModeAsync is returned to authenticated callers: a job was created.
	ModeAsync SubmitMode = "async"
)

// SummaryResult is the inline summary of a sync submission.
type SummaryResult struct {
	PlaylistTitle   *string `json:"playlist_title"`
	VideoCount      int     `json:"video_count"`
	SummaryMarkdown string  `json:"summary_markdown"`
	ConversationID  string  `json:"conversation_id"`
}

// SubmitResponse is either a sync [SummaryResult] or an async [Job].
//
// The zero value is invalid; build one with [NewSyncResponse] or [NewAsyncResponse], or decode it.
type SubmitResponse struct {
	mode    SubmitMode
	summary mo.Option[SummaryResult]
	job     mo.Option[Job]
}

// NewSyncResponse wraps an inline summary.
func NewSyncResponse(s SummaryResult) SubmitResponse {
	return SubmitResponse{mode: ModeSync, summary: mo.Some(s), job: mo.None[Job]()}
}

// NewAsyncResponse wraps a newly created job.
func NewAsyncResponse(j Job) SubmitResponse {
	return SubmitResponse{mode: ModeAsync, summary: mo.None[SummaryResult](), job: mo.Some(j)}
}

// Mode returns the variant tag.
func (r SubmitResponse) Mode() SubmitMode { return r.mode }

// Sync returns the summary when the response is sync.
func (r SubmitResponse) Sync() (SummaryResult, bool) { return r.summary.Get() }

// Async returns the job when the response is async.
func (r SubmitResponse) Async() (Job, bool) { return r.job.Get() }

// Match calls exactly one of the handlers according to the variant.
func (r SubmitResponse) Match(onSync func(SummaryResult) error, onAsync func(Job) error) error {
	switch r.mode {
	case ModeSync:
		return onSync(r.summary.MustGet())
	case ModeAsync:
		return onAsync(r.job.MustGet())
	}
	return fmt.Errorf("submit response has no mode")
}

type submitWire struct {
	Mode    SubmitMode     `json:"mode"`
	Summary *SummaryResult `json:"summary,omitempty"`
	Job     *Job           `json:"job,omitempty"`
}

func (r SubmitResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(submitWire{Mode: r.mode, Summary: r.summary.ToPointer(), Job: r.job.ToPointer()})
}

// UnmarshalJSON decodes the tagged union, rejecting unknown modes and missing payloads.
func (r *SubmitResponse) UnmarshalJSON(data []byte) error {
	var w submitWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Mode {
	case ModeSync:
		if w.Summary == nil {
			return fmt.Errorf("sync submit response without summary")
		}
		*r = NewSyncResponse(*w.Summary)
	case ModeAsync:
		if w.Job == nil {
			return fmt.Errorf("async submit response without job")
		}
		*r = NewAsyncResponse(*w.Job)
	default:
		return fmt.Errorf("unknown submit mode %q", w.Mode)
	}
	return nil
}
