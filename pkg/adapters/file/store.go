// Package file implements the store on the local filesystem. State lives in
// a single JSON document written atomically, so a crash mid-save never
// leaves a torn file behind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// document is the on-disk shape: both halves of the store keyed by identity.
type document struct {
	Conversations map[string]*domain.ConversationState `json:"conversations"`
	Sessions      map[string]*domain.SessionRecord     `json:"sessions"`
}

// Store implements ports.Store over one JSON file. Safe for concurrent use
// within a single process; cross-process exclusion needs a distributed
// locker in front.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store backed by the given file. An empty path defaults to
// ".parley/state.json".
func New(path string) *Store {
	if path == "" {
		path = filepath.Join(".parley", "state.json")
	}
	return &Store{path: path}
}

// SaveConversation persists the state for an identity.
func (s *Store) SaveConversation(ctx context.Context, identity string, state *domain.ConversationState) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(func(doc *document) {
		doc.Conversations[identity] = state
	})
}

// LoadConversation retrieves the state for an identity.
func (s *Store) LoadConversation(ctx context.Context, identity string) (*domain.ConversationState, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	state, ok := doc.Conversations[identity]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return state, nil
}

// DeleteConversation removes the state for an identity.
func (s *Store) DeleteConversation(ctx context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(func(doc *document) {
		delete(doc.Conversations, identity)
	})
}

// SaveSession persists the session record for an identity.
func (s *Store) SaveSession(ctx context.Context, identity string, record *domain.SessionRecord) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(func(doc *document) {
		doc.Sessions[identity] = record
	})
}

// LoadSession retrieves the session record for an identity.
func (s *Store) LoadSession(ctx context.Context, identity string) (*domain.SessionRecord, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	record, ok := doc.Sessions[identity]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return record, nil
}

// DeleteSession removes the session record for an identity.
func (s *Store) DeleteSession(ctx context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(func(doc *document) {
		delete(doc.Sessions, identity)
	})
}

func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{
				Conversations: make(map[string]*domain.ConversationState),
				Sessions:      make(map[string]*domain.SessionRecord),
			}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	if doc.Conversations == nil {
		doc.Conversations = make(map[string]*domain.ConversationState)
	}
	if doc.Sessions == nil {
		doc.Sessions = make(map[string]*domain.SessionRecord)
	}
	return &doc, nil
}

// update applies a mutation to the document and writes it back atomically:
// temp file in the same directory, fsync, close, rename.
func (s *Store) update(mutate func(*document)) error {
	doc, err := s.read()
	if err != nil {
		return err
	}
	mutate(doc)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows the destination must not exist before the rename. The
	// remove window is acceptable against the torn-write alternative.
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("failed to replace existing state file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}
