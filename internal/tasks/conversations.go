package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/services"
	"github.com/desertthunder/playsum/internal/shared"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxMessageLength = 10000
)

// Page selects a slice of the conversation list.
type Page struct {
	Limit  int
	Offset int
}

// Validate checks the paging bounds. A zero Limit means [DefaultPageLimit].
func (p Page) Validate() (Page, error) {
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return p, fmt.Errorf("%w: limit must be between 1 and %d", shared.ErrInvalidArgument, MaxPageLimit)
	}
	if p.Offset < 0 {
		return p, fmt.Errorf("%w: offset must not be negative", shared.ErrInvalidArgument)
	}
	return p, nil
}

// ConversationsOpts configures [Conversations].
type ConversationsOpts struct {
	Gateway       ConversationGateway
	Store         *cache.Store
	StaleTime     time.Duration
	ChatPerMinute int
	Logger        *log.Logger
}

// Conversations reads and mutates the caller's conversations through the cache.
type Conversations struct {
	gateway   ConversationGateway
	store     *cache.Store
	staleTime time.Duration
	limiter   *rate.Limiter
	logger    *log.Logger
}

func NewConversations(opts ConversationsOpts) *Conversations {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Conversations{
		gateway:   opts.Gateway,
		store:     opts.Store,
		staleTime: opts.StaleTime,
		limiter:   NewPerMinuteLimiter(opts.ChatPerMinute),
		logger:    shared.WithLogger(opts.Logger, "component", "conversations"),
	}
}

// List returns a page of conversations, served from the cache while fresh.
func (c *Conversations) List(ctx context.Context, page Page) ([]models.Conversation, error) {
	page, err := page.Validate()
	if err != nil {
		return nil, err
	}
	return cache.FetchAs(ctx, c.store, cache.ConversationsPageKey(page.Limit, page.Offset), c.staleTime,
		func(ctx context.Context) ([]models.Conversation, error) {
			return c.gateway.ListConversations(ctx, page.Limit, page.Offset)
		})
}

// Get returns a conversation with its messages.
func (c *Conversations) Get(ctx context.Context, id string) (models.ConversationDetail, error) {
	if id == "" {
		return models.ConversationDetail{}, fmt.Errorf("%w: conversation id", shared.ErrMissingArgument)
	}
	return cache.FetchAs(ctx, c.store, cache.ConversationKey(id), c.staleTime,
		func(ctx context.Context) (models.ConversationDetail, error) {
			return c.gateway.GetConversation(ctx, id)
		})
}

// Delete removes the conversation from every cached page before asking the server and restores the pages
// when the server refuses. The list is refetched on next read either way.
func (c *Conversations) Delete(ctx context.Context, id string) error {
	keys := c.store.KeysWithPrefix(cache.ConversationsKey)
	txns := make([]*cache.Txn, 0, len(keys))
	for _, k := range keys {
		txn := c.store.Begin(k)
		txn.Apply(func(old any, ok bool) (any, bool) {
			convs, isList := old.([]models.Conversation)
			if !ok || !isList {
				return nil, false
			}
			next, changed := withoutConversation(convs, id)
			return next, changed
		})
		txns = append(txns, txn)
	}

	err := c.gateway.DeleteConversation(ctx, id)
	for _, txn := range txns {
		if err != nil {
			txn.Rollback()
		} else {
			txn.Commit()
		}
	}
	c.store.InvalidatePrefix(cache.ConversationsKey)

	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	c.store.Remove(cache.ConversationKey(id))
	c.logger.Info("deleted conversation", "id", id)
	return nil
}

// Claim assigns an anonymous conversation to the signed-in caller.
func (c *Conversations) Claim(ctx context.Context, id string) error {
	if err := c.gateway.ClaimConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to claim conversation %s: %w", id, err)
	}
	c.store.InvalidatePrefix(cache.ConversationsKey)
	c.store.Invalidate(cache.ConversationKey(id))
	c.logger.Info("claimed conversation", "id", id)
	return nil
}

// Chat sends a follow-up message and marks the conversation for refetch.
func (c *Conversations) Chat(ctx context.Context, id, message string, useRAG bool) (models.ChatReply, error) {
	message = strings.TrimSpace(message)
	if n := utf8.RuneCountInString(message); n == 0 || n > MaxMessageLength {
		return models.ChatReply{}, fmt.Errorf("%w: message must be between 1 and %d characters", shared.ErrInvalidInput, MaxMessageLength)
	}
	if !c.limiter.Allow() {
		return models.ChatReply{}, fmt.Errorf("%w: %s", shared.ErrRateLimited, services.RateLimitedMessage)
	}

	reply, err := c.gateway.Chat(ctx, id, message, useRAG)
	if err != nil {
		return models.ChatReply{}, err
	}
	c.store.Invalidate(cache.ConversationKey(id))
	c.store.InvalidatePrefix(cache.ConversationsKey)
	return reply, nil
}

func withoutConversation(convs []models.Conversation, id string) ([]models.Conversation, bool) {
	out := make([]models.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out, len(out) != len(convs)
}
