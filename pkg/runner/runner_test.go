package runner_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/auth"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/runner"
	"github.com/aretw0/parley/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginURL = "http://backend.test/api/validate_credentials"

type okGateway struct{}

func (okGateway) Invoke(ctx context.Context, method, url string, payload map[string]any, headers map[string]string, token string) (*domain.APIResult, error) {
	return &domain.APIResult{Status: 200, Data: map[string]any{
		"success": true,
		"_token":  "tok-123",
	}}, nil
}

func newTestEngine(t *testing.T) *runtime.Engine {
	t.Helper()

	cat, err := catalog.Load(context.Background(), catalog.NewStaticSource(
		domain.CommandDefinition{
			Name:     "greet",
			Kind:     domain.KindSimple,
			Samples:  []string{"hello"},
			Response: "Hello! How can I help you today?",
		},
	))
	require.NoError(t, err)

	store := memory.NewStore()
	gw := okGateway{}
	return runtime.New(cat, session.NewManager(store), gw, auth.New(store, gw, loginURL))
}

func run(t *testing.T, engine *runtime.Engine, script string) string {
	t.Helper()
	var out bytes.Buffer
	r := &runner.Runner{
		Input:  strings.NewReader(script),
		Output: &out,
	}
	require.NoError(t, r.Run(context.Background(), engine, "42"))
	return out.String()
}

func TestRun_QuitAndEOF(t *testing.T) {
	engine := newTestEngine(t)

	out := run(t, engine, "/quit\n")
	assert.Contains(t, out, "Type /help for commands, /quit to leave.")

	// Plain EOF ends the loop without an error, too.
	out = run(t, engine, "")
	assert.Contains(t, out, "> ")
}

func TestRun_LoginAndChat(t *testing.T) {
	engine := newTestEngine(t)

	out := run(t, engine, "hello\n/login\nuser@example.com\nhunter2\nhello\n/quit\n")

	assert.Contains(t, out, "Please type /login to login before using the bot.")
	assert.Contains(t, out, "Please enter your username:")
	assert.Contains(t, out, "Please enter your password:")
	assert.Contains(t, out, "Login successful! You can now chat with me and use all available commands.")
	assert.Contains(t, out, "Hello! How can I help you today?")
}

func TestRun_Help(t *testing.T) {
	engine := newTestEngine(t)

	out := run(t, engine, "/help\n/quit\n")
	assert.Contains(t, out, "Commands: /help /reset /login /logout /quit")
	assert.Contains(t, out, `greet (e.g. "hello")`)
}

func TestRun_UnknownCommand(t *testing.T) {
	engine := newTestEngine(t)

	out := run(t, engine, "/frobnicate\n/quit\n")
	assert.Contains(t, out, "Unknown command /frobnicate. Type /help for commands.")
}

func TestRun_ResetAndLogout(t *testing.T) {
	engine := newTestEngine(t)

	out := run(t, engine, "/reset\n/logout\n/quit\n")
	assert.Contains(t, out, "No active conversation to reset.")
	assert.Contains(t, out, "You are not logged in.")
}

func TestRun_RendererApplied(t *testing.T) {
	engine := newTestEngine(t)
	var out bytes.Buffer
	r := &runner.Runner{
		Input:  strings.NewReader("/reset\n/quit\n"),
		Output: &out,
		Renderer: func(text string) (string, error) {
			return ">> " + text + " <<", nil
		},
	}
	require.NoError(t, r.Run(context.Background(), engine, "42"))
	assert.Contains(t, out.String(), ">> No active conversation to reset. <<")
}
