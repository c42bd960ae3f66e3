package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/playsum/internal/shared"
)

// Role identifies the author of a chat [Message].
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ParseRole validates a role received from the server.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleUser, RoleModel:
		return Role(value), nil
	}
	return "", fmt.Errorf("%w: unknown message role %q", shared.ErrInvalidInput, value)
}

// Conversation is a row of the conversation list.
type Conversation struct {
	ID             string    `json:"id"`
	Title          *string   `json:"title"`
	SummarySnippet *string   `json:"summary_snippet"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayTitle returns the title or a placeholder for untitled conversations.
func (c Conversation) DisplayTitle() string {
	return displayTitle(c.Title)
}

// Message is one chat turn of a conversation.
type Message struct {
	ID        int       `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationDetail is a conversation with its summary and chat history.
type ConversationDetail struct {
	ID          string    `json:"id"`
	Title       *string   `json:"title"`
	PlaylistURL *string   `json:"playlist_url"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Messages    []Message `json:"messages"`
}

// DisplayTitle returns the title or a placeholder for untitled conversations.
func (c ConversationDetail) DisplayTitle() string {
	return displayTitle(c.Title)
}

// Row converts the detail into its list representation.
func (c ConversationDetail) Row() Conversation {
	snippet := c.Summary
	if r := []rune(snippet); len(r) > 120 {
		snippet = string(r[:120])
	}
	return Conversation{ID: c.ID, Title: c.Title, SummarySnippet: &snippet, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// JobClaim is returned when a completed job is converted into a conversation.
type JobClaim struct {
	Conversation ConversationDetail `json:"conversation"`
}

// ConversationID returns the id of the conversation created by the claim.
func (c JobClaim) ConversationID() string {
	return c.Conversation.ID
}

// ChatReply is the model's answer to a chat message.
type ChatReply struct {
	Response string `json:"response"`
}

// User is the authenticated account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	IsVerified  bool   `json:"is_verified"`
}

func displayTitle(title *string) string {
	if title == nil || *title == "" {
		return "Untitled playlist"
	}
	return *title
}
