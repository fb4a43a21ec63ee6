package domain

import "errors"

// ErrConversationNotFound is returned when an identity has no active conversation.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrSessionNotFound is returned when an identity has no session record.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotLoggedIn is returned when an API-calling step is reached without a
// live bearer token.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrInvalidCredentials is returned when the credential-validation endpoint
// rejects a login attempt.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrCsrfExpired is the session-expiry signal (HTTP 419). Callers must not
// collapse it into a generic HTTP error: the interpreter branches on it to
// force re-authentication.
var ErrCsrfExpired = errors.New("csrf token expired")
