package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/parley/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDirSource_Commands(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "basics.json", `{
		"greet": {"kind": "simple", "samples": ["hello", "hi"], "response": "Hello!"},
		"bye":   {"kind": "simple", "response": "Goodbye!"}
	}`)
	writeFile(t, dir, "flows.yaml", `
survey:
  kind: conversation
  steps:
    - id: name
      prompt: "Your name?"
      store_response: true
    - id: done
      prompt: "Thanks, {name}!"
      is_final: true
`)
	writeFile(t, dir, "notes.txt", "ignored")

	defs, err := catalog.NewDirSource(dir).Commands(context.Background())
	require.NoError(t, err)

	// Files sorted by name, intents sorted by name within a file.
	require.Len(t, defs, 3)
	assert.Equal(t, "bye", defs[0].Name)
	assert.Equal(t, "greet", defs[1].Name)
	assert.Equal(t, "survey", defs[2].Name)

	assert.Equal(t, []string{"hello", "hi"}, defs[1].Samples)
	require.Len(t, defs[2].Steps, 2)
	assert.True(t, defs[2].Steps[0].StoreResponse)
	assert.True(t, defs[2].Steps[1].IsFinal)
}

func TestDirSource_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"greet": `)

	_, err := catalog.NewDirSource(dir).Commands(context.Background())
	require.Error(t, err)

	var cerr *catalog.Error
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Source, "broken.json")
}

func TestDirSource_MissingDirectory(t *testing.T) {
	_, err := catalog.NewDirSource(filepath.Join(t.TempDir(), "nope")).Commands(context.Background())
	assert.Error(t, err)
}

func TestDirSource_LoadsIntoCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "api.json", `{
		"list_clients": {
			"kind": "api_request",
			"steps": [
				{
					"id": "fetch_clients",
					"api": {"method": "GET", "url": "http://backend.test/api/clients"},
					"response_format": {
						"success_message": "Here are your clients:\n{client_list}",
						"error_message": "Sorry, I couldn't fetch the clients.",
						"format_rules": {
							"client_list": {"template": "{client_designation} ({client_code})", "join_with": "\n"}
						}
					},
					"is_final": true
				}
			]
		}
	}`)

	cat, err := catalog.Load(context.Background(), catalog.NewDirSource(dir))
	require.NoError(t, err)

	def, ok := cat.Lookup("list_clients")
	require.True(t, ok)
	step := def.FirstStep()
	require.NotNil(t, step.API)
	assert.Equal(t, "GET", step.API.Method)
	require.NotNil(t, step.ResponseFormat)
	assert.Equal(t, "\n", step.ResponseFormat.FormatRules["client_list"].JoinWith)
}
