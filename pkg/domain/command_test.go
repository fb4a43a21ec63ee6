package domain_test

import (
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphDef() *domain.CommandDefinition {
	return &domain.CommandDefinition{
		Name: "survey",
		Kind: domain.KindConversation,
		Steps: []domain.StepDefinition{
			{ID: "first", Prompt: "?"},
			{ID: "second", Prompt: "?", Next: "last"},
			{ID: "skipped", Prompt: "?"},
			{ID: "last", Prompt: "?", IsFinal: true},
		},
	}
}

func TestCommandDefinition_Step(t *testing.T) {
	def := graphDef()

	step, ok := def.Step("second")
	require.True(t, ok)
	assert.Equal(t, "second", step.ID)

	_, ok = def.Step("ghost")
	assert.False(t, ok)
}

func TestCommandDefinition_StepAfter(t *testing.T) {
	def := graphDef()

	t.Run("definition order", func(t *testing.T) {
		next, ok := def.StepAfter("first")
		require.True(t, ok)
		assert.Equal(t, "second", next.ID)
	})

	t.Run("next override", func(t *testing.T) {
		next, ok := def.StepAfter("second")
		require.True(t, ok)
		assert.Equal(t, "last", next.ID)
	})

	t.Run("no successor after the last step", func(t *testing.T) {
		_, ok := def.StepAfter("last")
		assert.False(t, ok)
	})

	t.Run("unknown step", func(t *testing.T) {
		_, ok := def.StepAfter("ghost")
		assert.False(t, ok)
	})
}

func TestCommandDefinition_FirstStep(t *testing.T) {
	assert.Equal(t, "first", graphDef().FirstStep().ID)

	simple := &domain.CommandDefinition{Name: "greet", Kind: domain.KindSimple, Response: "hi"}
	assert.Nil(t, simple.FirstStep())
}

func TestStepDefinition_Accepts(t *testing.T) {
	open := &domain.StepDefinition{ID: "free"}
	assert.True(t, open.Accepts("anything at all"))

	confirm := &domain.StepDefinition{ID: "confirm", Expect: []string{"Yes", " no "}}
	assert.True(t, confirm.Accepts("yes"))
	assert.True(t, confirm.Accepts("no"))
	assert.False(t, confirm.Accepts("maybe"))
}

func TestCommandKind_Valid(t *testing.T) {
	assert.True(t, domain.KindSimple.Valid())
	assert.True(t, domain.KindConversation.Valid())
	assert.True(t, domain.KindAPIRequest.Valid())
	assert.False(t, domain.CommandKind("magic").Valid())
}
