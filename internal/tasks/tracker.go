package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/models"
)

// Selection is what the client is currently showing.
type Selection struct {
	ConversationID string
	JobID          string
	State          PollState
}

// Tracker composes submission, the job collection, and polling for the "current" view.
//
// A sync submission selects its conversation; an async one registers the job and tracks it. Navigating to a
// conversation or to a new chat stops tracking.
type Tracker struct {
	submitter *Submitter
	jobs      *Orchestrator
	poller    *Poller
	store     *cache.Store

	mu             sync.Mutex
	conversationID string
}

// NewTracker wires the components together.
func NewTracker(submitter *Submitter, jobs *Orchestrator, poller *Poller, store *cache.Store) *Tracker {
	return &Tracker{submitter: submitter, jobs: jobs, poller: poller, store: store}
}

// Submit sends url and routes the response by mode.
func (t *Tracker) Submit(ctx context.Context, url string) (models.SubmitResponse, error) {
	resp, err := t.submitter.Submit(ctx, url)
	if err != nil {
		return models.SubmitResponse{}, err
	}

	err = resp.Match(
		func(summary models.SummaryResult) error {
			t.Select(summary.ConversationID)
			t.store.InvalidatePrefix(cache.ConversationsKey)
			return nil
		},
		func(job models.Job) error {
			t.setConversation("")
			t.jobs.AddJob(job)
			t.poller.Track(ctx, job.ID)
			return nil
		},
	)
	return resp, err
}

// Retry resets a failed job and tracks it again.
func (t *Tracker) Retry(ctx context.Context, id string) (models.Job, error) {
	job, err := t.jobs.Retry(ctx, id)
	if err != nil {
		return models.Job{}, err
	}
	t.setConversation("")
	t.poller.Track(ctx, job.ID)
	return job, nil
}

// Watch tracks an existing job.
func (t *Tracker) Watch(ctx context.Context, id string) {
	t.setConversation("")
	t.poller.Track(ctx, id)
}

// Select shows a conversation and stops tracking.
func (t *Tracker) Select(conversationID string) {
	t.poller.Clear()
	t.setConversation(conversationID)
}

// NewChat clears the current view.
func (t *Tracker) NewChat() {
	t.Select("")
}

// Current returns the current selection.
func (t *Tracker) Current() Selection {
	t.mu.Lock()
	conv := t.conversationID
	t.mu.Unlock()
	return Selection{ConversationID: conv, JobID: t.poller.TrackedID(), State: t.poller.State()}
}

func (t *Tracker) setConversation(id string) {
	t.mu.Lock()
	t.conversationID = id
	t.mu.Unlock()
}
