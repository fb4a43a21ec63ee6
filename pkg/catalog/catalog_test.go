package catalog_test

import (
	"context"
	"testing"

	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(defs ...domain.CommandDefinition) (*catalog.Catalog, error) {
	return catalog.Load(context.Background(), catalog.NewStaticSource(defs...))
}

func requireCatalogError(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	var cerr *catalog.Error
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, reason)
}

func apiStep(id string, final bool) domain.StepDefinition {
	return domain.StepDefinition{
		ID:  id,
		API: &domain.APICall{Method: "POST", URL: "http://backend.test/api"},
		ResponseFormat: &domain.ResponseFormat{
			SuccessMessage: "done",
			ErrorMessage:   "failed",
		},
		IsFinal: final,
	}
}

func TestLoad_Valid(t *testing.T) {
	cat, err := load(
		domain.CommandDefinition{Name: "greet", Kind: domain.KindSimple, Response: "Hello!"},
		domain.CommandDefinition{
			Name: "survey",
			Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{
				{ID: "name", Prompt: "Your name?", StoreResponse: true},
				{ID: "done", Prompt: "Thanks, {name}!", IsFinal: true},
			},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	def, ok := cat.Lookup("SURVEY")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, "survey", def.Name)

	_, ok = cat.Lookup("missing")
	assert.False(t, ok)
}

func TestLoad_IntentsKeepRegistrationOrder(t *testing.T) {
	cat, err := load(
		domain.CommandDefinition{Name: "zeta", Kind: domain.KindSimple, Response: "z"},
		domain.CommandDefinition{Name: "alpha", Kind: domain.KindSimple, Response: "a"},
	)
	require.NoError(t, err)

	intents := cat.Intents()
	require.Len(t, intents, 2)
	assert.Equal(t, "zeta", intents[0].Name)
	assert.Equal(t, "alpha", intents[1].Name)
}

func TestLoad_DuplicateIntent(t *testing.T) {
	_, err := load(
		domain.CommandDefinition{Name: "greet", Kind: domain.KindSimple, Response: "hi"},
		domain.CommandDefinition{Name: "Greet", Kind: domain.KindSimple, Response: "ho"},
	)
	requireCatalogError(t, err, "duplicate intent name")
}

func TestLoad_MissingName(t *testing.T) {
	_, err := load(domain.CommandDefinition{Kind: domain.KindSimple, Response: "hi"})
	requireCatalogError(t, err, "intent name is required")
}

func TestLoad_UnknownKind(t *testing.T) {
	_, err := load(domain.CommandDefinition{Name: "x", Kind: "magic"})
	requireCatalogError(t, err, `unknown kind "magic"`)
}

func TestLoad_SimpleShape(t *testing.T) {
	t.Run("requires a response", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{Name: "x", Kind: domain.KindSimple})
		requireCatalogError(t, err, "simple command requires a response")
	})

	t.Run("rejects steps", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindSimple, Response: "hi",
			Steps: []domain.StepDefinition{{ID: "a", Prompt: "?"}},
		})
		requireCatalogError(t, err, "must not define steps")
	})
}

func TestLoad_StepShape(t *testing.T) {
	t.Run("requires steps", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{Name: "x", Kind: domain.KindConversation})
		requireCatalogError(t, err, "requires steps")
	})

	t.Run("requires step ids", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{{Prompt: "?"}},
		})
		requireCatalogError(t, err, "missing an id")
	})

	t.Run("rejects duplicate step ids", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{
				{ID: "a", Prompt: "?"},
				{ID: "a", Prompt: "??", IsFinal: true},
			},
		})
		requireCatalogError(t, err, "duplicate step id")
	})

	t.Run("non-api step requires a prompt", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{{ID: "a", IsFinal: true}},
		})
		requireCatalogError(t, err, "non-api step requires a prompt")
	})
}

func TestLoad_GotoTargets(t *testing.T) {
	t.Run("goto must target a known step", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{
				{ID: "a", Prompt: "?", Expect: []string{"yes"}, Goto: map[string]string{"yes": "ghost"}},
				{ID: "b", Prompt: "??", IsFinal: true},
			},
		})
		requireCatalogError(t, err, `targets unknown step "ghost"`)
	})

	t.Run("next must target a known step", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{
				{ID: "a", Prompt: "?", Next: "ghost"},
				{ID: "b", Prompt: "??", IsFinal: true},
			},
		})
		requireCatalogError(t, err, `next targets unknown step "ghost"`)
	})
}

func TestLoad_APIShape(t *testing.T) {
	t.Run("api_request requires an api step", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindAPIRequest,
			Steps: []domain.StepDefinition{{ID: "a", Prompt: "?", IsFinal: true}},
		})
		requireCatalogError(t, err, "requires at least one api step")
	})

	t.Run("conversation must not carry api steps", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{apiStep("call", true)},
		})
		requireCatalogError(t, err, "must not define api steps")
	})

	t.Run("api step requires method and url", func(t *testing.T) {
		step := apiStep("call", true)
		step.API.URL = ""
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindAPIRequest,
			Steps: []domain.StepDefinition{step},
		})
		requireCatalogError(t, err, "requires method and url")
	})

	t.Run("api step requires a response_format", func(t *testing.T) {
		step := apiStep("call", true)
		step.ResponseFormat = nil
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindAPIRequest,
			Steps: []domain.StepDefinition{step},
		})
		requireCatalogError(t, err, "requires a response_format")
	})

	t.Run("response_format requires both messages", func(t *testing.T) {
		step := apiStep("call", true)
		step.ResponseFormat.ErrorMessage = ""
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindAPIRequest,
			Steps: []domain.StepDefinition{step},
		})
		requireCatalogError(t, err, "requires success_message and error_message")
	})
}

func TestLoad_Reachability(t *testing.T) {
	t.Run("unreachable step", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{
				{ID: "a", Prompt: "?", Next: "c"},
				{ID: "orphan", Prompt: "??"},
				{ID: "c", Prompt: "???", IsFinal: true},
			},
		})
		requireCatalogError(t, err, "unreachable")
	})

	t.Run("forced cycle", func(t *testing.T) {
		_, err := load(domain.CommandDefinition{
			Name: "x", Kind: domain.KindConversation,
			Steps: []domain.StepDefinition{
				{ID: "a", Prompt: "?", Next: "b"},
				{ID: "b", Prompt: "??", Next: "a"},
			},
		})
		requireCatalogError(t, err, "forced cycle")
	})

	t.Run("user-chosen cycle with an exit is fine", func(t *testing.T) {
		// The confirmation/update loop: confirmation can branch back to a
		// field step, which walks forward to confirmation again, but "yes"
		// always leads to the final step.
		_, err := load(domain.CommandDefinition{
			Name: "insert_client", Kind: domain.KindAPIRequest,
			Steps: []domain.StepDefinition{
				{ID: "client_designation", Prompt: "Designation?", StoreResponse: true},
				{
					ID: "confirmation", Prompt: "{summary} Correct?",
					Expect: []string{"yes", "no"},
					Goto:   map[string]string{"yes": "api_call", "no": "field_to_update"},
				},
				{
					ID: "field_to_update", Prompt: "Which field?",
					Expect: []string{"1"},
					Goto:   map[string]string{"1": "client_designation"},
				},
				apiStep("api_call", true),
			},
		})
		assert.NoError(t, err)
	})
}
