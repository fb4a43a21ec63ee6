package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a Store implementation
// adheres to the defined interface contract, covering both the conversation
// and the session half.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	identity := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load Conversation", func(t *testing.T) {
		state := domain.NewConversationState("insert_client", "client_designation")
		state.Store("client_designation", "Acme Corp")
		state.Retries = 1

		err := store.SaveConversation(ctx, identity, state)
		require.NoError(t, err, "SaveConversation should not return error")

		loaded, err := store.LoadConversation(ctx, identity)
		require.NoError(t, err, "LoadConversation should not return error")
		assert.Equal(t, state.Intent, loaded.Intent)
		assert.Equal(t, state.CurrentStep, loaded.CurrentStep)
		assert.Equal(t, "Acme Corp", loaded.Collected["client_designation"])
		assert.Equal(t, 1, loaded.Retries)
	})

	t.Run("Load Non-Existent Conversation", func(t *testing.T) {
		_, err := store.LoadConversation(ctx, "non-existent-"+identity)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Delete Conversation", func(t *testing.T) {
		err := store.SaveConversation(ctx, identity, domain.NewConversationState("insert_client", "client_designation"))
		require.NoError(t, err)

		err = store.DeleteConversation(ctx, identity)
		require.NoError(t, err, "DeleteConversation should not return error")

		_, err = store.LoadConversation(ctx, identity)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Delete Missing Conversation", func(t *testing.T) {
		err := store.DeleteConversation(ctx, "never-saved-"+identity)
		assert.NoError(t, err, "deleting a missing conversation is not an error")
	})

	t.Run("Save and Load Session", func(t *testing.T) {
		record := &domain.SessionRecord{
			Identity:  identity,
			Username:  "user@example.com",
			Token:     "tok-123",
			LastLogin: time.Now().UTC().Truncate(time.Second),
		}

		err := store.SaveSession(ctx, identity, record)
		require.NoError(t, err, "SaveSession should not return error")

		loaded, err := store.LoadSession(ctx, identity)
		require.NoError(t, err, "LoadSession should not return error")
		assert.Equal(t, record.Username, loaded.Username)
		assert.Equal(t, record.Token, loaded.Token)
		assert.True(t, loaded.LoggedIn())
	})

	t.Run("Load Non-Existent Session", func(t *testing.T) {
		_, err := store.LoadSession(ctx, "non-existent-"+identity)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete Session", func(t *testing.T) {
		err := store.SaveSession(ctx, identity, &domain.SessionRecord{Identity: identity, Token: "tok"})
		require.NoError(t, err)

		err = store.DeleteSession(ctx, identity)
		require.NoError(t, err, "DeleteSession should not return error")

		_, err = store.LoadSession(ctx, identity)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete Missing Session", func(t *testing.T) {
		err := store.DeleteSession(ctx, "never-saved-"+identity)
		assert.NoError(t, err, "deleting a missing session is not an error")
	})

	t.Run("Halves are Independent", func(t *testing.T) {
		err := store.SaveConversation(ctx, identity, domain.NewConversationState("list_clients", "confirm_list"))
		require.NoError(t, err)
		err = store.SaveSession(ctx, identity, &domain.SessionRecord{Identity: identity, Token: "tok"})
		require.NoError(t, err)

		require.NoError(t, store.DeleteSession(ctx, identity))

		_, err = store.LoadConversation(ctx, identity)
		assert.NoError(t, err, "deleting the session must not touch the conversation")

		require.NoError(t, store.DeleteConversation(ctx, identity))
	})
}
