package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
)

const currentUserStaleTime = 5 * time.Minute

// Auth signs the caller in and out and keeps account-scoped cache entries consistent.
type Auth struct {
	gateway  AuthGateway
	sessions SessionStore
	store    *cache.Store
	poller   *Poller
	logger   *log.Logger
}

// NewAuth creates an [Auth]. poller may be nil.
func NewAuth(gateway AuthGateway, sessions SessionStore, store *cache.Store, poller *Poller, logger *log.Logger) *Auth {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Auth{
		gateway:  gateway,
		sessions: sessions,
		store:    store,
		poller:   poller,
		logger:   shared.WithLogger(logger, "component", "auth"),
	}
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address %q", shared.ErrInvalidInput, email)
	}
	if password == "" {
		return fmt.Errorf("%w: password is empty", shared.ErrInvalidInput)
	}
	return nil
}

// Login stores a new bearer token and drops cached data belonging to the previous identity.
func (a *Auth) Login(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	tok, err := a.gateway.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.sessions.Save(tok, email); err != nil {
		return err
	}

	a.resetAccountCache()
	a.logger.Info("signed in", "email", email)
	return nil
}

// Register creates an account. It does not sign in.
func (a *Auth) Register(ctx context.Context, email, password string) (models.User, error) {
	if err := validateCredentials(email, password); err != nil {
		return models.User{}, err
	}
	return a.gateway.Register(ctx, email, password)
}

// CurrentUser returns the signed-in account. Without a stored token it fails with
// [shared.ErrNotAuthenticated] and sends no request.
func (a *Auth) CurrentUser(ctx context.Context) (models.User, error) {
	if _, err := a.sessions.Token(); err != nil {
		return models.User{}, err
	}
	return cache.FetchAs(ctx, a.store, cache.CurrentUserKey, currentUserStaleTime, a.gateway.CurrentUser)
}

// Authenticated reports whether a token is stored.
func (a *Auth) Authenticated() bool {
	tok, err := a.sessions.Token()
	return err == nil && tok != nil
}

// Logout forgets the token, stops tracking, and drops account-scoped cache entries.
func (a *Auth) Logout() error {
	if err := a.sessions.Clear(); err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	if a.poller != nil {
		a.poller.Clear()
	}
	a.resetAccountCache()
	a.logger.Info("signed out")
	return nil
}

func (a *Auth) resetAccountCache() {
	a.store.Remove(cache.CurrentUserKey)
	a.store.Remove(cache.JobsKey)
	for _, k := range a.store.KeysWithPrefix(cache.JobsKey + "/") {
		a.store.Remove(k)
	}
	for _, prefix := range []cache.Key{cache.ConversationsKey, cache.ConversationKey("")} {
		for _, k := range a.store.KeysWithPrefix(prefix) {
			a.store.Remove(k)
		}
	}
}
