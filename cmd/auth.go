package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/shared"
)

// AuthLogin signs in and stores the bearer token in the session database.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if err := r.auth.Login(ctx, email, cmd.String("password")); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.writePlain("✓ Signed in as %s\n", email)
	r.writePlain("Summaries now run as background jobs; see 'playsum jobs list'.\n")
	return nil
}

// AuthRegister creates an account. It does not sign in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	user, err := r.auth.Register(ctx, cmd.String("email"), cmd.String("password"))
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	r.writePlain("✓ Registered %s\n", user.Email)
	r.writePlain("Run 'playsum auth login --email %s' to sign in.\n", user.Email)
	return nil
}

// AuthLogout forgets the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.auth.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	r.writePlain("✓ Signed out\n")
	return nil
}

// AuthStatus shows the signed-in account, or that the CLI runs anonymously.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	user, err := r.auth.CurrentUser(ctx)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"authenticated": false}, true)
		}
		r.writePlain("Not signed in. Summaries run synchronously and may time out on long playlists.\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch account: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"authenticated": true, "user": user}, true)
	}

	r.writePlainHeader("Account")
	r.writePlain("Email:    %s\n", user.Email)
	r.writePlain("ID:       %s\n", user.ID)
	r.writePlain("Active:   %v\n", user.IsActive)
	r.writePlain("Verified: %v\n", user.IsVerified)
	return nil
}
