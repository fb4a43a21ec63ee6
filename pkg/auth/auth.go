// Package auth implements the session lifecycle: login against the external
// credential-validation endpoint, the logged-in gate for API steps, logout,
// and forced expiry on the CSRF signal.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Authenticator validates credentials and manages session records.
// Raw passwords pass through login and are never persisted; only the
// username survives as a non-secret credential reference.
type Authenticator struct {
	sessions ports.SessionStore
	gateway  ports.Gateway
	loginURL string
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Authenticator.
type Option func(*Authenticator)

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// New creates an Authenticator posting logins to loginURL.
func New(sessions ports.SessionStore, gw ports.Gateway, loginURL string, opts ...Option) *Authenticator {
	a := &Authenticator{
		sessions: sessions,
		gateway:  gw,
		loginURL: loginURL,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login validates the credentials against the external endpoint and stores
// the issued bearer token. An already-live session is returned as-is.
func (a *Authenticator) Login(ctx context.Context, identity, username, password string) (*domain.SessionRecord, error) {
	if record, err := a.sessions.LoadSession(ctx, identity); err == nil && record.LoggedIn() {
		return record, nil
	}

	result, err := a.gateway.Invoke(ctx, http.MethodPost, a.loginURL, map[string]any{
		"email":    username,
		"password": password,
	}, nil, "")
	if err != nil {
		a.logger.Warn("login call failed", "identity", identity, "error", err)
		return nil, fmt.Errorf("login failed: %w", err)
	}

	token, ok := tokenFrom(result.Data)
	if !ok {
		a.logger.Info("login rejected", "identity", identity)
		return nil, domain.ErrInvalidCredentials
	}

	record := &domain.SessionRecord{
		Identity:  identity,
		Username:  username,
		Token:     token,
		LastLogin: a.now(),
	}
	if err := a.sessions.SaveSession(ctx, identity, record); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	a.logger.Info("login successful", "identity", identity)
	return record, nil
}

// RequireSession returns the bearer token for an identity, or
// domain.ErrNotLoggedIn. It is the gate checked before any api step runs.
func (a *Authenticator) RequireSession(ctx context.Context, identity string) (string, error) {
	record, err := a.sessions.LoadSession(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", domain.ErrNotLoggedIn
		}
		return "", err
	}
	if !record.LoggedIn() {
		return "", domain.ErrNotLoggedIn
	}
	return record.Token, nil
}

// LoggedIn reports whether the identity holds a live session.
func (a *Authenticator) LoggedIn(ctx context.Context, identity string) bool {
	_, err := a.RequireSession(ctx, identity)
	return err == nil
}

// Logout removes the session record entirely. Returns
// domain.ErrSessionNotFound when there is nothing to log out.
func (a *Authenticator) Logout(ctx context.Context, identity string) error {
	if _, err := a.sessions.LoadSession(ctx, identity); err != nil {
		return err
	}
	return a.sessions.DeleteSession(ctx, identity)
}

// Expire clears the bearer token after a CSRF/expiry signal. The record
// itself survives so the username remains as a reference, but the user must
// re-enter credentials: nothing secret is retained to re-auth silently.
func (a *Authenticator) Expire(ctx context.Context, identity string) error {
	record, err := a.sessions.LoadSession(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	record.Expire()
	return a.sessions.SaveSession(ctx, identity, record)
}

// tokenFrom extracts the bearer token from the login response document:
// {"success": true, "_token": "..."}.
func tokenFrom(data any) (string, bool) {
	doc, ok := data.(map[string]any)
	if !ok {
		return "", false
	}
	success, _ := doc["success"].(bool)
	token, _ := doc["_token"].(string)
	if !success || token == "" {
		return "", false
	}
	return token, true
}
