package domain_test

import (
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestConversationState_MoveTo(t *testing.T) {
	state := domain.NewConversationState("insert_client", "client_designation")
	state.Retries = 2

	state.MoveTo("contact_nom")

	assert.Equal(t, "contact_nom", state.CurrentStep)
	assert.Equal(t, 0, state.Retries, "advancing resets the retry counter")
}

func TestConversationState_Store(t *testing.T) {
	state := &domain.ConversationState{Intent: "insert_client", CurrentStep: "client_designation"}

	state.Store("client_designation", "Acme")
	state.Store("client_designation", "Acme Corp")

	assert.Equal(t, "Acme Corp", state.Collected["client_designation"])
}

func TestSessionRecord_Lifecycle(t *testing.T) {
	var nilRecord *domain.SessionRecord
	assert.False(t, nilRecord.LoggedIn())

	record := &domain.SessionRecord{Identity: "42", Username: "user@example.com", Token: "tok"}
	assert.True(t, record.LoggedIn())

	record.Expire()
	assert.False(t, record.LoggedIn())
	assert.Equal(t, "user@example.com", record.Username, "expiry keeps the credential reference")
}
