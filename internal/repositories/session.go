package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/shared"
)

// SessionRepository stores the caller's bearer token. There is at most one session row.
//
// It implements [oauth2.TokenSource] so the API client can read the token on every request.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Token returns the stored token, or [shared.ErrNotAuthenticated] when nobody is signed in.
func (r *SessionRepository) Token() (*oauth2.Token, error) {
	var accessToken, tokenType string
	err := r.db.QueryRow("SELECT access_token, token_type FROM sessions WHERE id = 1").Scan(&accessToken, &tokenType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: tokenType}, nil
}

// Save replaces the stored session.
func (r *SessionRepository) Save(tok *oauth2.Token, email string) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrInvalidInput)
	}
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	query := `
		INSERT INTO sessions (id, access_token, token_type, email, created_at, updated_at) VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			email = excluded.email,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	if _, err := r.db.Exec(query, tok.AccessToken, tokenType, nullString(email), now, now); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Email returns the address the session was created with, if known.
func (r *SessionRepository) Email() (string, error) {
	var email sql.NullString
	err := r.db.QueryRow("SELECT email FROM sessions WHERE id = 1").Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", shared.ErrNotAuthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session: %w", err)
	}
	return email.String, nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
