package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// ConversationStore persists the active conversation per identity.
type ConversationStore interface {
	// SaveConversation persists the state for an identity, replacing any
	// previous one.
	SaveConversation(ctx context.Context, identity string, state *domain.ConversationState) error

	// LoadConversation retrieves the active conversation. Returns
	// domain.ErrConversationNotFound when the identity has none.
	LoadConversation(ctx context.Context, identity string) (*domain.ConversationState, error)

	// DeleteConversation removes the conversation. Deleting a missing
	// conversation is not an error.
	DeleteConversation(ctx context.Context, identity string) error
}

// SessionStore persists authentication records per identity.
type SessionStore interface {
	// SaveSession persists the session record for an identity.
	SaveSession(ctx context.Context, identity string, record *domain.SessionRecord) error

	// LoadSession retrieves the session record. Returns
	// domain.ErrSessionNotFound when the identity has none.
	LoadSession(ctx context.Context, identity string) (*domain.SessionRecord, error)

	// DeleteSession removes the session record. Deleting a missing record
	// is not an error.
	DeleteSession(ctx context.Context, identity string) error
}

// Store is the combined persistence surface the engine wires in. Adapters
// implement both halves over the same backend.
type Store interface {
	ConversationStore
	SessionStore
}
