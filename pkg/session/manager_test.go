package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WithLock_Serializes(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(ctx, "42", func(ctx context.Context) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "critical sections for one identity must never overlap")
}

func TestManager_WithLock_DistinctIdentitiesProceed(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = mgr.WithLock(ctx, "a", func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	done := make(chan struct{})
	go func() {
		_ = mgr.WithLock(ctx, "b", func(ctx context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("identity b blocked behind identity a's lock")
	}
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		identity := fmt.Sprintf("identity-%d", i)
		_ = mgr.WithLock(ctx, identity, func(ctx context.Context) error { return nil })
	}

	mgr.mu.Lock()
	lockCount := len(mgr.locks)
	mgr.mu.Unlock()

	if lockCount != 0 {
		t.Errorf("memory leak: %d lock entries remaining after all locks released", lockCount)
	}
}

func TestManager_Accessors(t *testing.T) {
	store := memory.NewStore()
	mgr := NewManager(store)
	ctx := context.Background()

	_, err := mgr.Conversation(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	require.NoError(t, store.SaveConversation(ctx, "42", domain.NewConversationState("greet", "first")))

	state, err := mgr.Conversation(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "greet", state.Intent)

	require.NoError(t, mgr.EndConversation(ctx, "42"))
	_, err = mgr.Conversation(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	require.NoError(t, store.SaveSession(ctx, "42", &domain.SessionRecord{Identity: "42", Token: "tok"}))
	record, err := mgr.Session(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "tok", record.Token)

	assert.Same(t, ports.Store(store), mgr.Store())
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("backend down")
}

func TestManager_DistributedLockerFailure(t *testing.T) {
	mgr := NewManager(memory.NewStore(), WithLocker(failingLocker{}))

	err := mgr.WithLock(context.Background(), "42", func(ctx context.Context) error {
		t.Fatal("fn must not run when the distributed lock cannot be acquired")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire distributed lock")
}
