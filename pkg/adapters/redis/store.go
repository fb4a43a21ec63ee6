// Package redis implements the store and the distributed locker on Redis,
// for deployments where several bot instances share state.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.Store using Redis. Conversations and sessions live
// under separate key prefixes; each half keeps a ZSET index of identities
// scored by expiry for lazy pruning.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for stored entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "parley:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) conversationKey(identity string) string {
	return s.prefix + "conversation:" + identity
}

func (s *Store) sessionKey(identity string) string {
	return s.prefix + "session:" + identity
}

func (s *Store) indexKey(kind string) string {
	return s.prefix + kind + ":index"
}

// SaveConversation persists the conversation state.
func (s *Store) SaveConversation(ctx context.Context, identity string, state *domain.ConversationState) error {
	return s.save(ctx, s.conversationKey(identity), s.indexKey("conversation"), identity, state)
}

// LoadConversation retrieves the conversation state.
func (s *Store) LoadConversation(ctx context.Context, identity string) (*domain.ConversationState, error) {
	var state domain.ConversationState
	if err := s.load(ctx, s.conversationKey(identity), &state, domain.ErrConversationNotFound); err != nil {
		return nil, err
	}
	return &state, nil
}

// DeleteConversation removes the conversation state.
func (s *Store) DeleteConversation(ctx context.Context, identity string) error {
	return s.delete(ctx, s.conversationKey(identity), s.indexKey("conversation"), identity)
}

// SaveSession persists the session record.
func (s *Store) SaveSession(ctx context.Context, identity string, record *domain.SessionRecord) error {
	return s.save(ctx, s.sessionKey(identity), s.indexKey("session"), identity, record)
}

// LoadSession retrieves the session record.
func (s *Store) LoadSession(ctx context.Context, identity string) (*domain.SessionRecord, error) {
	var record domain.SessionRecord
	if err := s.load(ctx, s.sessionKey(identity), &record, domain.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteSession removes the session record.
func (s *Store) DeleteSession(ctx context.Context, identity string) error {
	return s.delete(ctx, s.sessionKey(identity), s.indexKey("session"), identity)
}

// Identities returns the identities with live entries of the given half
// ("conversation" or "session"), pruning expired index members first.
func (s *Store) Identities(ctx context.Context, kind string) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(kind), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired entries: %w", err)
	}
	identities, err := s.client.ZRange(ctx, s.indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

// Locker returns a distributed locker sharing this store's client and
// prefix.
func (s *Store) Locker() *Locker {
	return NewLocker(s.client, s.prefix)
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) save(ctx context.Context, key, index, identity string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.ttl)

	// Score = expiry unix time; far-future sentinel when entries never expire.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, index, backend.Z{Score: score, Member: identity})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, key string, out any, missing error) error {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == backend.Nil {
			return missing
		}
		return fmt.Errorf("failed to get from redis: %w", err)
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, key, index, identity string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.ZRem(ctx, index, identity)
	_, err := pipe.Exec(ctx)
	return err
}
