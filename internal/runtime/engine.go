// Package runtime drives conversations: it resolves inbound text to a
// catalog intent, walks the intent's step graph, and coordinates the
// session, template and gateway collaborators. All adapters (CLI, HTTP,
// MCP) funnel their turns through the Engine here.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/auth"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/match"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
	"github.com/aretw0/parley/pkg/template"
)

// DefaultRetryLimit bounds consecutive rejected answers on one step before
// the conversation is abandoned.
const DefaultRetryLimit = 3

// Observer receives turn-level signals for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	TurnHandled(intent string)
	IntentMissed()
	APICallFailed(intent, step string)
	SessionExpired()
}

type nopObserver struct{}

func (nopObserver) TurnHandled(string)        {}
func (nopObserver) IntentMissed()             {}
func (nopObserver) APICallFailed(_, _ string) {}
func (nopObserver) SessionExpired()           {}

// Engine is the conversation interpreter. One Engine serves all identities;
// per-identity state lives in the session manager's store and every turn
// runs under that identity's lock.
type Engine struct {
	catalog     *catalog.Catalog
	matcher     *match.Matcher
	sessions    *session.Manager
	auth        *auth.Authenticator
	gateway     ports.Gateway
	transcriber ports.Transcriber
	logger      *slog.Logger
	observer    Observer
	retryLimit  int
}

// Option configures the Engine.
type Option func(*Engine)

// WithMatcher overrides the default fuzzy matcher.
func WithMatcher(m *match.Matcher) Option {
	return func(e *Engine) {
		e.matcher = m
	}
}

// WithTranscriber enables voice turns.
func WithTranscriber(t ports.Transcriber) Option {
	return func(e *Engine) {
		e.transcriber = t
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver wires turn-level metrics.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithRetryLimit overrides the invalid-answer bound per step.
func WithRetryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retryLimit = n
		}
	}
}

// New assembles an Engine over a loaded catalog.
func New(cat *catalog.Catalog, sessions *session.Manager, gw ports.Gateway, authenticator *auth.Authenticator, opts ...Option) *Engine {
	e := &Engine{
		catalog:    cat,
		matcher:    match.New(),
		sessions:   sessions,
		auth:       authenticator,
		gateway:    gw,
		logger:     logging.NewNop(),
		observer:   nopObserver{},
		retryLimit: DefaultRetryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog exposes the loaded catalog for surfaces that list intents.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// HandleTurn processes one inbound text message for an identity and returns
// the bot's reply. The whole turn runs under the identity's lock, so two
// concurrent messages from the same identity are serialized.
func (e *Engine) HandleTurn(ctx context.Context, identity, text string) (*Reply, error) {
	var reply *Reply
	err := e.sessions.WithLock(ctx, identity, func(ctx context.Context) error {
		var err error
		reply, err = e.handleTurn(ctx, identity, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// HandleVoice transcribes an audio message and feeds the transcript through
// the normal text path, prefixing the reply with the transcript.
func (e *Engine) HandleVoice(ctx context.Context, identity string, audio []byte) (*Reply, error) {
	if e.transcriber == nil {
		return textReply(msgVoiceFailed), nil
	}
	transcript, err := e.transcriber.Transcribe(ctx, audio)
	if err != nil {
		e.logger.Warn("voice transcription failed", "identity", identity, "error", err)
		return textReply(msgVoiceFailed), nil
	}
	e.logger.Info("voice message transcribed", "identity", identity, "transcript", transcript)

	reply, err := e.HandleTurn(ctx, identity, transcript)
	if err != nil {
		return nil, err
	}
	reply.Text = fmt.Sprintf("🎤 Transcribed: %s\n\n%s", transcript, reply.Text)
	return reply, nil
}

// Reset abandons the identity's active conversation. Resetting twice in a
// row is not an error.
func (e *Engine) Reset(ctx context.Context, identity string) (*Reply, error) {
	var reply *Reply
	err := e.sessions.WithLock(ctx, identity, func(ctx context.Context) error {
		store := e.sessions.Store()
		if _, err := store.LoadConversation(ctx, identity); err != nil {
			if errors.Is(err, domain.ErrConversationNotFound) {
				reply = textReply(msgNothingToReset)
				return nil
			}
			return err
		}
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return err
		}
		e.logger.Info("conversation reset", "identity", identity)
		reply = textReply(msgReset)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Login validates credentials and opens a session for the identity.
func (e *Engine) Login(ctx context.Context, identity, username, password string) (*Reply, error) {
	var reply *Reply
	err := e.sessions.WithLock(ctx, identity, func(ctx context.Context) error {
		if e.auth.LoggedIn(ctx, identity) {
			reply = textReply(msgAlreadyLoggedIn)
			return nil
		}
		_, err := e.auth.Login(ctx, identity, username, password)
		switch {
		case err == nil:
			reply = textReply(msgLoginOK)
		case errors.Is(err, domain.ErrInvalidCredentials):
			reply = textReply(msgLoginRejected)
		default:
			e.logger.Error("login failed", "identity", identity, "error", err)
			reply = textReply(msgLoginUnreached)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Logout closes the identity's session. The active conversation, if any,
// is left in place; it will stall at the next api step until re-login.
func (e *Engine) Logout(ctx context.Context, identity string) (*Reply, error) {
	var reply *Reply
	err := e.sessions.WithLock(ctx, identity, func(ctx context.Context) error {
		err := e.auth.Logout(ctx, identity)
		if errors.Is(err, domain.ErrSessionNotFound) {
			reply = textReply(msgNotLoggedIn)
			return nil
		}
		if err != nil {
			return err
		}
		reply = textReply(msgLoggedOut)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (e *Engine) handleTurn(ctx context.Context, identity, text string) (*Reply, error) {
	if !e.auth.LoggedIn(ctx, identity) {
		return textReply(msgLoginRequired), nil
	}

	state, err := e.sessions.Store().LoadConversation(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return e.startTurn(ctx, identity, text)
		}
		return nil, err
	}
	return e.continueTurn(ctx, identity, state, text)
}

// startTurn resolves free text to an intent and either replies directly
// (simple commands) or opens a conversation at the intent's first step.
func (e *Engine) startTurn(ctx context.Context, identity, text string) (*Reply, error) {
	result, ok := e.matcher.Match(text, e.catalog)
	if !ok {
		e.observer.IntentMissed()
		e.logger.Info("no intent matched", "identity", identity, "text", text)
		return textReply(msgNotUnderstood), nil
	}

	def := result.Intent
	e.observer.TurnHandled(def.Name)
	e.logger.Info("intent matched", "identity", identity, "intent", def.Name, "score", result.Score)

	if def.Kind == domain.KindSimple {
		return textReply(def.Response), nil
	}

	state := domain.NewConversationState(def.Name, def.FirstStep().ID)
	return e.enterStep(ctx, identity, def, state, def.FirstStep(), "")
}

// continueTurn advances an active conversation by one step.
func (e *Engine) continueTurn(ctx context.Context, identity string, state *domain.ConversationState, text string) (*Reply, error) {
	store := e.sessions.Store()

	def, ok := e.catalog.Lookup(state.Intent)
	if !ok {
		// Catalog changed underneath a live conversation.
		e.logger.Warn("active conversation references unknown intent", "identity", identity, "intent", state.Intent)
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return nil, err
		}
		return textReply(msgLostInFlow), nil
	}
	step, ok := def.Step(state.CurrentStep)
	if !ok {
		e.logger.Warn("active conversation references unknown step", "identity", identity, "intent", state.Intent, "step", state.CurrentStep)
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return nil, err
		}
		return textReply(msgLostInFlow), nil
	}

	e.observer.TurnHandled(def.Name)

	input := match.Normalize(text)
	if !step.Accepts(input) {
		state.Retries++
		if state.Retries >= e.retryLimit {
			if err := store.DeleteConversation(ctx, identity); err != nil {
				return nil, err
			}
			e.logger.Info("conversation abandoned after repeated invalid answers", "identity", identity, "intent", def.Name, "step", step.ID)
			return textReply(msgRetriesSpent), nil
		}
		if err := store.SaveConversation(ctx, identity, state); err != nil {
			return nil, err
		}
		return &Reply{
			Text:    "Please choose one of: " + strings.Join(step.Expect, ", "),
			Options: step.Expect,
		}, nil
	}

	if step.StoreResponse {
		state.Store(step.ID, strings.TrimSpace(text))
	}
	echo := responseFor(step, input)

	var next *domain.StepDefinition
	if target, ok := gotoTarget(step, input); ok {
		next, _ = def.Step(target)
	} else if step.IsFinal {
		next = nil
	} else {
		next, _ = def.StepAfter(step.ID)
	}

	if next == nil {
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return nil, err
		}
		if echo != "" {
			return textReply(echo), nil
		}
		return textReply(msgLostInFlow), nil
	}
	return e.enterStep(ctx, identity, def, state, next, echo)
}

// enterStep activates a step: api steps execute immediately, prompt steps
// persist the advanced state and render their question. prefix, when
// non-empty, is echoed above the step's own output.
func (e *Engine) enterStep(ctx context.Context, identity string, def *domain.CommandDefinition, state *domain.ConversationState, step *domain.StepDefinition, prefix string) (*Reply, error) {
	if step.API != nil {
		return e.runAPIStep(ctx, identity, def, state, step, prefix)
	}

	store := e.sessions.Store()
	state.MoveTo(step.ID)
	if err := store.SaveConversation(ctx, identity, state); err != nil {
		return nil, err
	}

	prompt, err := e.renderPrompt(def, state, step)
	if err != nil {
		e.logger.Error("prompt template failed", "intent", def.Name, "step", step.ID, "error", err)
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return nil, err
		}
		return textReply(msgGenericFailure), nil
	}
	return &Reply{Text: joinParts(prefix, prompt), Options: step.Expect}, nil
}

// runAPIStep executes a step's outbound call. The conversation state is not
// advanced first: a login gate failure leaves the identity parked at the
// previous step so the call can be retried after /login.
func (e *Engine) runAPIStep(ctx context.Context, identity string, def *domain.CommandDefinition, state *domain.ConversationState, step *domain.StepDefinition, prefix string) (*Reply, error) {
	store := e.sessions.Store()

	token, err := e.auth.RequireSession(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotLoggedIn) {
			return textReply(msgNotLoggedIn), nil
		}
		return nil, err
	}

	payload, err := template.RenderPayload(step.API.Payload, state.Collected)
	if err != nil {
		e.logger.Error("payload template failed", "intent", def.Name, "step", step.ID, "error", err)
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return nil, err
		}
		return textReply(msgGenericFailure), nil
	}

	result, err := e.gateway.Invoke(ctx, step.API.Method, step.API.URL, payload, step.API.Headers, token)
	if err != nil {
		if errors.Is(err, domain.ErrCsrfExpired) {
			e.observer.SessionExpired()
			e.logger.Info("session expired during api step", "identity", identity, "intent", def.Name, "step", step.ID)
			if err := e.auth.Expire(ctx, identity); err != nil {
				return nil, err
			}
			if err := store.DeleteConversation(ctx, identity); err != nil {
				return nil, err
			}
			return textReply(msgSessionExpired), nil
		}

		e.observer.APICallFailed(def.Name, step.ID)
		e.logger.Error("api step failed", "identity", identity, "intent", def.Name, "step", step.ID, "error", err)
		if step.IsFinal {
			if err := store.DeleteConversation(ctx, identity); err != nil {
				return nil, err
			}
		}
		return textReply(step.ResponseFormat.ErrorMessage), nil
	}

	text, err := template.FormatResponse(result.Data, step.ResponseFormat)
	if err != nil {
		e.logger.Error("response formatting failed", "intent", def.Name, "step", step.ID, "error", err)
		text = step.ResponseFormat.ErrorMessage
	}

	if step.IsFinal {
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return nil, err
		}
		return textReply(joinParts(prefix, text)), nil
	}

	next, ok := def.StepAfter(step.ID)
	if !ok {
		if err := store.DeleteConversation(ctx, identity); err != nil {
			return nil, err
		}
		return textReply(joinParts(prefix, text)), nil
	}
	return e.enterStep(ctx, identity, def, state, next, joinParts(prefix, text))
}

// renderPrompt renders a step's prompt against the collected answers plus
// the synthesized {summary} entry.
func (e *Engine) renderPrompt(def *domain.CommandDefinition, state *domain.ConversationState, step *domain.StepDefinition) (string, error) {
	if step.Prompt == "" {
		return "", nil
	}
	tctx := make(map[string]any, len(state.Collected)+1)
	for key, value := range state.Collected {
		tctx[key] = value
	}
	tctx["summary"] = summaryOf(def, state)
	return template.Render(step.Prompt, tctx)
}

// summaryOf lists the collected answers one per line, in step definition
// order so the output is stable across turns.
func summaryOf(def *domain.CommandDefinition, state *domain.ConversationState) string {
	var b strings.Builder
	for i := range def.Steps {
		id := def.Steps[i].ID
		if value, ok := state.Collected[id]; ok {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(id)
			b.WriteString(": ")
			b.WriteString(value)
		}
	}
	return b.String()
}

// gotoTarget resolves the step's goto entry for a normalized input.
func gotoTarget(step *domain.StepDefinition, input string) (string, bool) {
	for key, target := range step.Goto {
		if match.Normalize(key) == input {
			return target, true
		}
	}
	return "", false
}

// responseFor resolves the step's echo text for a normalized input.
func responseFor(step *domain.StepDefinition, input string) string {
	for key, text := range step.Responses {
		if match.Normalize(key) == input {
			return text
		}
	}
	return ""
}

func joinParts(prefix, text string) string {
	if prefix == "" {
		return text
	}
	if text == "" {
		return prefix
	}
	return prefix + "\n\n" + text
}
