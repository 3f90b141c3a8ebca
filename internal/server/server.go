// Package server exposes the assistant over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/liminal/internal/contract"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/intelligence"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/notify"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/alexanderramin/liminal/internal/service"
	"go.uber.org/zap"
)

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

const (
	maxBodyBytes    = 1 << 20
	sessionTitleLen = 40
	shutdownTimeout = 5 * time.Second
)

type Deps struct {
	Assistant *intelligence.Assistant
	Scorer    *intelligence.Scorer
	Chats     service.ChatService
	Hub       *notify.Hub
	// DefaultUser answers requests without a UserHeader. Empty rejects them.
	DefaultUser string
	// IdleTTL and MaxConversations bound the conversation registry; zero
	// values use one hour and 1000.
	IdleTTL          time.Duration
	MaxConversations int
}

type Option func(*Server)

// WithClock sets the clock used for registry idle times.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server owns the conversation registry. Conversations are keyed by user and
// session so a session id never crosses users.
type Server struct {
	deps  Deps
	log   *zap.Logger
	now   func() time.Time
	convs *registry
}

func New(deps Deps, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{deps: deps, log: log.Named("server"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.convs = newRegistry(deps.IdleTTL, deps.MaxConversations, s.now)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/suggestion", s.handleSuggestion)
	mux.HandleFunc("POST /api/suggestion/{id}/feedback", s.handleFeedback)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown failed", zap.Error(err))
		}
		if s.deps.Hub != nil {
			s.deps.Hub.Close()
		}
	}()

	s.log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req contract.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, contract.ErrInvalidRequest, "invalid JSON body")
		return
	}
	if cerr := req.Validate(); cerr != nil {
		writeError(w, http.StatusBadRequest, cerr.Code, cerr.Message)
		return
	}

	ctx := r.Context()
	conv, fresh, err := s.conversation(ctx, userID, req)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, contract.ErrSessionNotFound, "unknown session "+req.SessionID)
		return
	}
	if err != nil {
		s.log.Error("resolving session failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, contract.ErrInternalError, "could not open the chat session")
		return
	}

	msgs := toLLMMessages(req.Messages)
	if fresh && len(msgs) == 1 && req.SessionID != "" {
		msgs = append(s.storedHistory(ctx, conv.SessionID), msgs...)
	}

	resp, err := s.deps.Assistant.Handle(ctx, conv, msgs)
	switch {
	case errors.Is(err, intelligence.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, contract.ErrServiceUnavailable,
			"The assistant is temporarily unavailable. Please try again in a moment.")
	case err != nil:
		s.log.Error("chat turn failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, contract.ErrInternalError, "something went wrong")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	suggestion, err := s.deps.Scorer.SuggestNext(r.Context(), userID)
	if err != nil {
		s.log.Error("suggestion failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, contract.ErrInternalError, "could not pick a task")
		return
	}
	if suggestion == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, contract.ErrInvalidRequest, "invalid JSON body")
		return
	}
	fb, ok := domain.ParseSuggestionFeedback(req.Feedback)
	if !ok {
		writeError(w, http.StatusBadRequest, contract.ErrInvalidRequest, "feedback must be accepted, dismissed or snoozed")
		return
	}

	err := s.deps.Scorer.RecordFeedback(r.Context(), userID, r.PathValue("id"), fb)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, contract.ErrInvalidRequest, "unknown task")
	case err != nil:
		s.log.Error("recording feedback failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, contract.ErrInternalError, "could not record feedback")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		var ok bool
		if userID, ok = s.userID(w, r); !ok {
			return
		}
	}
	s.deps.Hub.ServeWS(w, r, userID)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if id := strings.TrimSpace(r.Header.Get(UserHeader)); id != "" {
		return id, true
	}
	if s.deps.DefaultUser != "" {
		return s.deps.DefaultUser, true
	}
	writeError(w, http.StatusBadRequest, contract.ErrInvalidRequest, "missing "+UserHeader+" header")
	return "", false
}

// conversation returns the live conversation for the request, starting a
// session when none was named. fresh reports that the registry had no entry.
func (s *Server) conversation(ctx context.Context, userID string, req contract.ChatRequest) (*intelligence.Conversation, bool, error) {
	if req.SessionID != "" {
		if conv := s.lookup(userID, req.SessionID); conv != nil {
			return conv, false, nil
		}
		if _, err := s.deps.Chats.GetSession(ctx, userID, req.SessionID); err != nil {
			return nil, false, err
		}
		conv, fresh := s.register(intelligence.NewConversation(userID, req.SessionID))
		return conv, fresh, nil
	}

	text, _ := req.LastUserMessage()
	session, err := s.deps.Chats.StartSession(ctx, userID, sessionTitle(text))
	if err != nil {
		return nil, false, fmt.Errorf("starting session: %w", err)
	}
	conv, _ := s.register(intelligence.NewConversation(userID, session.ID))
	return conv, false, nil
}

func (s *Server) lookup(userID, sessionID string) *intelligence.Conversation {
	return s.convs.get(userID, sessionID)
}

// register stores conv unless another request got there first.
func (s *Server) register(conv *intelligence.Conversation) (*intelligence.Conversation, bool) {
	return s.convs.put(conv)
}

// storedHistory reloads a session's transcript for a conversation the
// registry has not seen since startup.
func (s *Server) storedHistory(ctx context.Context, sessionID string) []llm.Message {
	stored, err := s.deps.Chats.History(ctx, sessionID, intelligence.HistoryLimit)
	if err != nil {
		s.log.Warn("loading chat history failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	out := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return out
}

func sessionTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > sessionTitleLen {
		return string(r[:sessionTitleLen]) + "…"
	}
	if text == "" {
		return "New chat"
	}
	return text
}

func toLLMMessages(msgs []contract.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "assistant":
			out = append(out, llm.Assistant(m.Content))
		case "system":
			out = append(out, llm.System(m.Content))
		default:
			out = append(out, llm.User(m.Content))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code contract.ChatErrorCode, msg string) {
	writeJSON(w, status, &contract.ChatError{Code: code, Message: msg})
}
