package testing

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
)

// MockGateway is a test double for the summarization API. Unset funcs return [shared.ErrNotImplemented].
type MockGateway struct {
	ListJobsFn  func(ctx context.Context) ([]models.Job, error)
	GetJobFn    func(ctx context.Context, id string) (models.Job, error)
	ClaimJobFn  func(ctx context.Context, id string) (models.JobClaim, error)
	RetryJobFn  func(ctx context.Context, id string) (models.Job, error)
	DeleteJobFn func(ctx context.Context, id string) error
	SummarizeFn func(ctx context.Context, url string) (models.SubmitResponse, error)

	ListConversationsFn  func(ctx context.Context, limit, offset int) ([]models.Conversation, error)
	GetConversationFn    func(ctx context.Context, id string) (models.ConversationDetail, error)
	DeleteConversationFn func(ctx context.Context, id string) error
	ClaimConversationFn  func(ctx context.Context, id string) error
	ChatFn               func(ctx context.Context, conversationID, message string, useRAG bool) (models.ChatReply, error)

	LoginFn       func(ctx context.Context, email, password string) (*oauth2.Token, error)
	RegisterFn    func(ctx context.Context, email, password string) (models.User, error)
	CurrentUserFn func(ctx context.Context) (models.User, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockGateway) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times method name was invoked.
func (m *MockGateway) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockGateway) ListJobs(ctx context.Context) ([]models.Job, error) {
	m.record("ListJobs")
	if m.ListJobsFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return m.ListJobsFn(ctx)
}

func (m *MockGateway) GetJob(ctx context.Context, id string) (models.Job, error) {
	m.record("GetJob")
	if m.GetJobFn == nil {
		return models.Job{}, shared.ErrNotImplemented
	}
	return m.GetJobFn(ctx, id)
}

func (m *MockGateway) ClaimJob(ctx context.Context, id string) (models.JobClaim, error) {
	m.record("ClaimJob")
	if m.ClaimJobFn == nil {
		return models.JobClaim{}, shared.ErrNotImplemented
	}
	return m.ClaimJobFn(ctx, id)
}

func (m *MockGateway) RetryJob(ctx context.Context, id string) (models.Job, error) {
	m.record("RetryJob")
	if m.RetryJobFn == nil {
		return models.Job{}, shared.ErrNotImplemented
	}
	return m.RetryJobFn(ctx, id)
}

func (m *MockGateway) DeleteJob(ctx context.Context, id string) error {
	m.record("DeleteJob")
	if m.DeleteJobFn == nil {
		return shared.ErrNotImplemented
	}
	return m.DeleteJobFn(ctx, id)
}

func (m *MockGateway) Summarize(ctx context.Context, url string) (models.SubmitResponse, error) {
	m.record("Summarize")
	if m.SummarizeFn == nil {
		return models.SubmitResponse{}, shared.ErrNotImplemented
	}
	return m.SummarizeFn(ctx, url)
}

func (m *MockGateway) ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error) {
	m.record("ListConversations")
	if m.ListConversationsFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return m.ListConversationsFn(ctx, limit, offset)
}

func (m *MockGateway) GetConversation(ctx context.Context, id string) (models.ConversationDetail, error) {
	m.record("GetConversation")
	if m.GetConversationFn == nil {
		return models.ConversationDetail{}, shared.ErrNotImplemented
	}
	return m.GetConversationFn(ctx, id)
}

func (m *MockGateway) DeleteConversation(ctx context.Context, id string) error {
	m.record("DeleteConversation")
	if m.DeleteConversationFn == nil {
		return shared.ErrNotImplemented
	}
	return m.DeleteConversationFn(ctx, id)
}

func (m *MockGateway) ClaimConversation(ctx context.Context, id string) error {
	m.record("ClaimConversation")
	if m.ClaimConversationFn == nil {
		return shared.ErrNotImplemented
	}
	return m.ClaimConversationFn(ctx, id)
}

func (m *MockGateway) Chat(ctx context.Context, conversationID, message string, useRAG bool) (models.ChatReply, error) {
	m.record("Chat")
	if m.ChatFn == nil {
		return models.ChatReply{}, shared.ErrNotImplemented
	}
	return m.ChatFn(ctx, conversationID, message, useRAG)
}

func (m *MockGateway) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	m.record("Login")
	if m.LoginFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return m.LoginFn(ctx, email, password)
}

func (m *MockGateway) Register(ctx context.Context, email, password string) (models.User, error) {
	m.record("Register")
	if m.RegisterFn == nil {
		return models.User{}, shared.ErrNotImplemented
	}
	return m.RegisterFn(ctx, email, password)
}

func (m *MockGateway) CurrentUser(ctx context.Context) (models.User, error) {
	m.record("CurrentUser")
	if m.CurrentUserFn == nil {
		return models.User{}, shared.ErrNotImplemented
	}
	return m.CurrentUserFn(ctx)
}

// JobSequence returns a GetJob func that yields jobs in order and then repeats the last one.
func JobSequence(jobs ...models.Job) func(ctx context.Context, id string) (models.Job, error) {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, id string) (models.Job, error) {
		mu.Lock()
		defer mu.Unlock()
		j := jobs[i]
		if i < len(jobs)-1 {
			i++
		}
		return j, nil
	}
}
