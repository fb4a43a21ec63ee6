package parley

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/auth"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/gateway"
	"github.com/aretw0/parley/pkg/match"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// Version is the library version, overridable at build time via ldflags.
var Version = "0.1.0"

// Reply is one outbound bot message.
type Reply = runtime.Reply

// Engine is the high-level entry point. It assembles the catalog, matcher,
// stores and gateway into a ready-to-use conversation interpreter.
type Engine struct {
	runtime  *runtime.Engine
	catalog  *catalog.Catalog
	sessions *session.Manager
	auth     *auth.Authenticator

	sources        []ports.CatalogSource
	store          ports.Store
	gw             ports.Gateway
	transcriber    ports.Transcriber
	locker         ports.DistributedLocker
	observer       runtime.Observer
	logger         *slog.Logger
	loginURL       string
	threshold      float64
	retryLimit     int
	gatewayTimeout time.Duration
}

// Option configures the Engine.
type Option func(*Engine)

// WithStore injects the persistence backend. Defaults to in-memory.
func WithStore(store ports.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithGateway injects a custom outbound API gateway.
func WithGateway(gw ports.Gateway) Option {
	return func(e *Engine) {
		e.gw = gw
	}
}

// WithCatalogSources overrides the default directory source.
func WithCatalogSources(sources ...ports.CatalogSource) Option {
	return func(e *Engine) {
		e.sources = sources
	}
}

// WithLoginURL points the login flow at the credential-validation endpoint.
func WithLoginURL(url string) Option {
	return func(e *Engine) {
		e.loginURL = url
	}
}

// WithTranscriber enables voice turns.
func WithTranscriber(t ports.Transcriber) Option {
	return func(e *Engine) {
		e.transcriber = t
	}
}

// WithLocker adds a distributed lock around per-identity turns, for
// multi-instance deployments sharing one store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithObserver wires turn-level metrics.
func WithObserver(o runtime.Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithLogger sets a structured logger for all components.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithThreshold overrides the fuzzy-match threshold.
func WithThreshold(t float64) Option {
	return func(e *Engine) {
		e.threshold = t
	}
}

// WithRetryLimit overrides the invalid-answer bound per step.
func WithRetryLimit(n int) Option {
	return func(e *Engine) {
		e.retryLimit = n
	}
}

// WithGatewayTimeout overrides the outbound call timeout of the default
// gateway. Ignored when WithGateway injects a custom one.
func WithGatewayTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.gatewayTimeout = d
	}
}

// New assembles an Engine. catalogDir is read by the default directory
// source; it may be empty when WithCatalogSources provides the commands.
func New(ctx context.Context, catalogDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		threshold:      match.DefaultThreshold,
		retryLimit:     runtime.DefaultRetryLimit,
		gatewayTimeout: gateway.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	if len(e.sources) == 0 {
		if catalogDir == "" {
			return nil, fmt.Errorf("catalogDir is required when no catalog source is provided")
		}
		e.sources = []ports.CatalogSource{catalog.NewDirSource(catalogDir)}
	}

	cat, err := catalog.Load(ctx, e.sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	e.catalog = cat

	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.gw == nil {
		e.gw = gateway.New(
			gateway.WithTimeout(e.gatewayTimeout),
			gateway.WithLogger(e.logger),
		)
	}

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	e.auth = auth.New(e.store, e.gw, e.loginURL, auth.WithLogger(e.logger))

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithMatcher(match.New(match.WithThreshold(e.threshold))),
		runtime.WithRetryLimit(e.retryLimit),
	}
	if e.transcriber != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTranscriber(e.transcriber))
	}
	if e.observer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithObserver(e.observer))
	}
	e.runtime = runtime.New(cat, e.sessions, e.gw, e.auth, runtimeOpts...)

	return e, nil
}

// HandleTurn processes one text message for an identity.
func (e *Engine) HandleTurn(ctx context.Context, identity, text string) (*Reply, error) {
	return e.runtime.HandleTurn(ctx, identity, text)
}

// HandleVoice transcribes an audio message and processes the transcript.
func (e *Engine) HandleVoice(ctx context.Context, identity string, audio []byte) (*Reply, error) {
	return e.runtime.HandleVoice(ctx, identity, audio)
}

// Reset abandons the identity's active conversation.
func (e *Engine) Reset(ctx context.Context, identity string) (*Reply, error) {
	return e.runtime.Reset(ctx, identity)
}

// Login opens a session for the identity.
func (e *Engine) Login(ctx context.Context, identity, username, password string) (*Reply, error) {
	return e.runtime.Login(ctx, identity, username, password)
}

// Logout closes the identity's session.
func (e *Engine) Logout(ctx context.Context, identity string) (*Reply, error) {
	return e.runtime.Logout(ctx, identity)
}

// Catalog exposes the loaded command catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Runtime exposes the underlying interpreter for transport adapters.
func (e *Engine) Runtime() *runtime.Engine {
	return e.runtime
}
