package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// lockEntry holds the mutex and the reference count for one identity.
type lockEntry struct {
	mu     sync.Mutex
	refs   int
	unlock ports.UnlockFunc
}

// Manager serializes store access per identity so two concurrent messages
// from the same identity can never race a goto resolution or corrupt the
// conversation state. Distinct identities proceed independently. Lock
// entries are reference counted and garbage collected when idle.
type Manager struct {
	store ports.Store

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for internal events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager over the given store.
func NewManager(store ports.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
func (m *Manager) acquire(identity string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[identity]
	if !exists {
		entry = &lockEntry{}
		m.locks[identity] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[identity]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, identity)
	}
}

// WithLock executes fn while holding the identity's lock (and the
// distributed lock if one is configured).
func (m *Manager) WithLock(ctx context.Context, identity string, fn func(context.Context) error) error {
	entry := m.acquire(identity)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(identity)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, identity, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"identity", identity,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Conversation loads the active conversation for an identity.
func (m *Manager) Conversation(ctx context.Context, identity string) (*domain.ConversationState, error) {
	var state *domain.ConversationState
	err := m.WithLock(ctx, identity, func(ctx context.Context) error {
		var err error
		state, err = m.store.LoadConversation(ctx, identity)
		return err
	})
	return state, err
}

// EndConversation removes the active conversation, if any.
func (m *Manager) EndConversation(ctx context.Context, identity string) error {
	return m.WithLock(ctx, identity, func(ctx context.Context) error {
		return m.store.DeleteConversation(ctx, identity)
	})
}

// Session loads the authentication record for an identity.
func (m *Manager) Session(ctx context.Context, identity string) (*domain.SessionRecord, error) {
	var record *domain.SessionRecord
	err := m.WithLock(ctx, identity, func(ctx context.Context) error {
		var err error
		record, err = m.store.LoadSession(ctx, identity)
		return err
	})
	return record, err
}

// Store returns the underlying store. Callers holding the identity lock via
// WithLock should use this directly to avoid re-entrant locking.
func (m *Manager) Store() ports.Store {
	return m.store
}
