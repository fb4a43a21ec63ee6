package domain

import "time"

// SessionRecord is the per-identity authentication record. Its lifecycle is
// independent from ConversationState: expiry clears the token but keeps the
// record, so the username survives as a non-secret reference. Raw
// credentials are never stored.
type SessionRecord struct {
	Identity string `json:"identity"`

	// Username is an opaque credential reference. It is never logged.
	Username string `json:"username"`

	// Token is the bearer credential. Empty means logged out.
	Token string `json:"token,omitempty"`

	LastLogin time.Time `json:"last_login"`
}

// LoggedIn reports whether the record carries a live bearer token.
func (r *SessionRecord) LoggedIn() bool {
	return r != nil && r.Token != ""
}

// Expire clears the bearer token, keeping the credential reference.
func (r *SessionRecord) Expire() {
	r.Token = ""
}
