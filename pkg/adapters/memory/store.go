// Package memory implements the store in process memory. It is the default
// backend for the CLI and for tests.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Store implements ports.Store in memory. Safe for concurrent use.
type Store struct {
	conversations map[string]*domain.ConversationState
	sessions      map[string]*domain.SessionRecord
	mu            sync.RWMutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*domain.ConversationState),
		sessions:      make(map[string]*domain.SessionRecord),
	}
}

// SaveConversation stores a copy of the state so callers cannot mutate the
// stored value through the pointer afterwards.
func (s *Store) SaveConversation(ctx context.Context, identity string, state *domain.ConversationState) error {
	copied := *state
	copied.Collected = make(map[string]string, len(state.Collected))
	for k, v := range state.Collected {
		copied.Collected[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[identity] = &copied
	return nil
}

// LoadConversation returns a copy of the stored state.
func (s *Store) LoadConversation(ctx context.Context, identity string) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.conversations[identity]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}

	ret := *state
	ret.Collected = make(map[string]string, len(state.Collected))
	for k, v := range state.Collected {
		ret.Collected[k] = v
	}
	return &ret, nil
}

// DeleteConversation removes the conversation, if any.
func (s *Store) DeleteConversation(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, identity)
	return nil
}

// SaveSession stores a copy of the session record.
func (s *Store) SaveSession(ctx context.Context, identity string, record *domain.SessionRecord) error {
	copied := *record

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[identity] = &copied
	return nil
}

// LoadSession returns a copy of the stored session record.
func (s *Store) LoadSession(ctx context.Context, identity string) (*domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.sessions[identity]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	ret := *record
	return &ret, nil
}

// DeleteSession removes the session record, if any.
func (s *Store) DeleteSession(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, identity)
	return nil
}
