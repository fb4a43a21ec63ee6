package loam_test

import (
	"context"
	"testing"

	upstream "github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	source "github.com/aretw0/parley/pkg/adapters/loam"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) core.Repository {
	t.Helper()
	repo, err := upstream.Init(t.TempDir(), upstream.WithStrict(true))
	require.NoError(t, err, "failed to init loam repo")
	return repo
}

func TestSource_Commands(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, core.Document{
		ID: "greet.md",
		Content: `---
kind: simple
samples:
  - hello
  - hi there
---
Hello! How can I help you today?`,
	}))

	require.NoError(t, repo.Save(ctx, core.Document{
		ID: "add_client.md",
		Content: `---
kind: api_request
samples:
  - insert client
steps:
  - id: client_designation
    prompt: "What is the client's designation?"
    store_response: true
  - id: api_call
    api:
      method: POST
      url: http://backend.test/api/clients
      payload:
        designation: "{client_designation}"
    response_format:
      success_message: "Client added!"
      error_message: "Could not add the client."
    is_final: true
---
`,
	}))

	defs, err := source.New(upstream.NewTypedRepository[source.CommandMetadata](repo)).Commands(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	// Sorted by name; the name falls back to the document id.
	add, greet := defs[0], defs[1]
	assert.Equal(t, "add_client", add.Name)
	assert.Equal(t, "greet", greet.Name)

	assert.Equal(t, domain.KindSimple, greet.Kind)
	assert.Equal(t, []string{"hello", "hi there"}, greet.Samples)
	assert.Equal(t, "Hello! How can I help you today?", greet.Response,
		"the markdown body is the simple reply")

	assert.Equal(t, domain.KindAPIRequest, add.Kind)
	require.Len(t, add.Steps, 2)
	assert.True(t, add.Steps[0].StoreResponse)
	require.NotNil(t, add.Steps[1].API)
	assert.Equal(t, "POST", add.Steps[1].API.Method)
	assert.Equal(t, map[string]any{"designation": "{client_designation}"}, add.Steps[1].API.Payload)
	require.NotNil(t, add.Steps[1].ResponseFormat)
	assert.Equal(t, "Client added!", add.Steps[1].ResponseFormat.SuccessMessage)
	assert.True(t, add.Steps[1].IsFinal)
}

func TestSource_ExplicitNameWins(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, core.Document{
		ID: "some-file.md",
		Content: `---
name: farewell
kind: simple
response: Goodbye!
---
`,
	}))

	defs, err := source.New(upstream.NewTypedRepository[source.CommandMetadata](repo)).Commands(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "farewell", defs[0].Name)
	assert.Equal(t, "Goodbye!", defs[0].Response)
}

func TestDecode(t *testing.T) {
	meta, err := source.Decode(map[string]any{
		"kind":    "conversation",
		"samples": []any{"run survey"},
		"steps": []any{
			map[string]any{
				"id":             "name",
				"prompt":         "Your name?",
				"store_response": true,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "conversation", meta.Kind)
	assert.Equal(t, []string{"run survey"}, meta.Samples)
	require.Len(t, meta.Steps, 1)
	assert.True(t, meta.Steps[0].StoreResponse)
}
