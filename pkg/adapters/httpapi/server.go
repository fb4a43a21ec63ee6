// Package httpapi exposes the engine over HTTP for chat frontends that are
// not running in the same process.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/runtime"
)

// maxVoicePayload bounds one voice upload.
const maxVoicePayload = 8 << 20

// MessageRequest is the body of a text turn.
type MessageRequest struct {
	Text string `json:"text"`
}

// LoginRequest is the body of a login call. Credentials pass through to the
// validation endpoint and are never stored.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ReplyResponse mirrors runtime.Reply on the wire.
type ReplyResponse struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// IntentInfo is one row of the intent listing.
type IntentInfo struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Samples []string `json:"samples,omitempty"`
}

// Server handles the chat routes.
type Server struct {
	engine  *runtime.Engine
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts a /metrics endpoint.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler builds the HTTP handler for the engine.
func NewHandler(engine *runtime.Engine, opts ...Option) http.Handler {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Route("/v1/chat/{identity}", func(r chi.Router) {
		r.Post("/message", s.handleMessage)
		r.Post("/voice", s.handleVoice)
		r.Post("/reset", s.handleReset)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
	})
	r.Get("/v1/intents", s.handleIntents)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("message: invalid request body", "error", err)
		return
	}
	if body.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	reply, err := s.engine.HandleTurn(r.Context(), identity, body.Text)
	if err != nil {
		s.fail(w, "message turn failed", identity, err)
		return
	}
	s.reply(w, reply.Text, reply.Options)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	audio, err := io.ReadAll(io.LimitReader(r.Body, maxVoicePayload))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(audio) == 0 {
		http.Error(w, "audio payload is required", http.StatusBadRequest)
		return
	}

	reply, err := s.engine.HandleVoice(r.Context(), identity, audio)
	if err != nil {
		s.fail(w, "voice turn failed", identity, err)
		return
	}
	s.reply(w, reply.Text, reply.Options)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	reply, err := s.engine.Reset(r.Context(), identity)
	if err != nil {
		s.fail(w, "reset failed", identity, err)
		return
	}
	s.reply(w, reply.Text, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	var body LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Username == "" || body.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	reply, err := s.engine.Login(r.Context(), identity, body.Username, body.Password)
	if err != nil {
		s.fail(w, "login failed", identity, err)
		return
	}
	s.reply(w, reply.Text, nil)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	reply, err := s.engine.Logout(r.Context(), identity)
	if err != nil {
		s.fail(w, "logout failed", identity, err)
		return
	}
	s.reply(w, reply.Text, nil)
}

func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	defs := s.engine.Catalog().Intents()
	infos := make([]IntentInfo, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, IntentInfo{
			Name:    def.Name,
			Kind:    string(def.Kind),
			Samples: def.Samples,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		s.logger.Error("intents response encode failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) reply(w http.ResponseWriter, text string, options []string) {
	w.Header().Set("Content-Type", "application/json")
	resp := ReplyResponse{Text: text, Options: options}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, msg, identity string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Error(msg, "identity", identity, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
