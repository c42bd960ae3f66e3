// package tasks implements the background job lifecycle of the summarization client.
//
// The components share one [cache.Store] and talk to the server through the narrow gateway interfaces below.
package tasks

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/models"
)

// JobReader fetches a single job. Implemented by services.APIService.
type JobReader interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
}

// JobGateway is the subset of the API used by the [Orchestrator].
type JobGateway interface {
	JobReader
	ListJobs(ctx context.Context) ([]models.Job, error)
	ClaimJob(ctx context.Context, id string) (models.JobClaim, error)
	RetryJob(ctx context.Context, id string) (models.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// SubmitGateway posts playlist URLs to the dual-mode summarize endpoint.
type SubmitGateway interface {
	Summarize(ctx context.Context, url string) (models.SubmitResponse, error)
}

// ConversationGateway is the subset of the API used by [Conversations].
type ConversationGateway interface {
	ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id string) (models.ConversationDetail, error)
	DeleteConversation(ctx context.Context, id string) error
	ClaimConversation(ctx context.Context, id string) error
	Chat(ctx context.Context, conversationID, message string, useRAG bool) (models.ChatReply, error)
}

// AuthGateway is the subset of the API used by [Auth].
type AuthGateway interface {
	Login(ctx context.Context, email, password string) (*oauth2.Token, error)
	Register(ctx context.Context, email, password string) (models.User, error)
	CurrentUser(ctx context.Context) (models.User, error)
}

// SessionStore persists the bearer token. Implemented by repositories.SessionRepository.
type SessionStore interface {
	oauth2.TokenSource
	Save(tok *oauth2.Token, email string) error
	Clear() error
}

// Scheduler runs fn once after d. The returned func cancels the timer and reports whether it was still pending.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func() bool)
}

// TimerScheduler is a [Scheduler] backed by time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// sendProgress sends an update without blocking when the channel is full or nil.
func sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
