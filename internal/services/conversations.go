package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/playsum/internal/models"
)

// ListConversations returns one page of the caller's conversations.
func (a *APIService) ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var conversations []models.Conversation
	err := a.do(ctx, request{method: http.MethodGet, path: "/conversations", query: query, resource: true}, &conversations)
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// GetConversation returns a conversation with its messages.
func (a *APIService) GetConversation(ctx context.Context, id string) (models.ConversationDetail, error) {
	var detail models.ConversationDetail
	err := a.do(ctx, request{method: http.MethodGet, path: "/conversations/" + url.PathEscape(id), resource: true}, &detail)
	return detail, err
}

// DeleteConversation removes a conversation.
func (a *APIService) DeleteConversation(ctx context.Context, id string) error {
	return a.do(ctx, request{method: http.MethodDelete, path: "/conversations/" + url.PathEscape(id), resource: true}, nil)
}

// ClaimConversation assigns an anonymous conversation to the signed-in caller.
func (a *APIService) ClaimConversation(ctx context.Context, id string) error {
	return a.do(ctx, request{method: http.MethodPost, path: "/conversations/" + url.PathEscape(id) + "/claim", resource: true}, nil)
}

// Chat sends a follow-up message. useRAG asks the server to ground the answer in retrieved transcripts.
func (a *APIService) Chat(ctx context.Context, conversationID, message string, useRAG bool) (models.ChatReply, error) {
	var reply models.ChatReply
	err := a.do(ctx, request{
		method: http.MethodPost, path: "/chat", resource: true,
		body: map[string]any{"conversation_id": conversationID, "message": message, "use_rag": useRAG},
	}, &reply)
	return reply, err
}
