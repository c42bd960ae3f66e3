package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
)

type bearerResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token using the password form flow.
func (a *APIService) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var resp bearerResponse
	if err := a.do(ctx, request{method: http.MethodPost, path: "/auth/jwt/login", form: form}, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, apiErr.Message)
		}
		return nil, err
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: server returned no access token", shared.ErrAuthFailed)
	}
	if resp.TokenType == "" {
		resp.TokenType = "bearer"
	}
	return &oauth2.Token{AccessToken: resp.AccessToken, TokenType: resp.TokenType}, nil
}

// Register creates an account.
func (a *APIService) Register(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	err := a.do(ctx, request{
		method: http.MethodPost, path: "/auth/register",
		body: map[string]string{"email": email, "password": password},
	}, &user)
	return user, err
}

// CurrentUser returns the account owning the bearer token.
func (a *APIService) CurrentUser(ctx context.Context) (models.User, error) {
	var user models.User
	err := a.do(ctx, request{method: http.MethodGet, path: "/users/me"}, &user)
	return user, err
}
