// Package gateway is the HTTP surface embedded content pages talk to. A page
// registers its launch once, then streams its two renderer signals; the
// gateway owns one engine per session and the engines do the rest.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edtrack/exercise-xapi/internal/config"
	"github.com/edtrack/exercise-xapi/internal/engine"
	"github.com/edtrack/exercise-xapi/internal/launch"
	"github.com/edtrack/exercise-xapi/internal/outbox"
	"github.com/edtrack/exercise-xapi/internal/session"
	"github.com/edtrack/exercise-xapi/internal/transport"
	"github.com/edtrack/exercise-xapi/internal/widget"
)

// SenderFactory builds the statement sender for one resolved session. The
// default wires the plain fire-and-forget transport; serve wiring swaps in an
// outbox-backed sender when a journal is configured.
type SenderFactory func(cfg launch.Config) transport.Sender

// Completed sessions linger briefly for in-flight events; idle sessions expire
// with their tokens. Eviction runs on every session create, so a long-running
// gateway does not accumulate dead engines.
const (
	sessionIdleTTL  = 12 * time.Hour
	completedLinger = time.Minute
)

type sessionEntry struct {
	eng      *engine.Engine
	lastSeen time.Time
}

type Server struct {
	cfg      config.Config
	auth     *AuthService
	resolver *launch.Resolver
	log      *zap.Logger
	sender   SenderFactory

	idleTTL time.Duration
	linger  time.Duration

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewServer(cfg config.Config, log *zap.Logger, outboxStore *outbox.Store) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.JWTSecret == "" || cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn("session token secret is the development default, set SESSION_HMAC_SECRET")
	}
	s := &Server{
		cfg:      cfg,
		auth:     NewAuthService(cfg.JWTSecret),
		resolver: launch.NewResolver(),
		log:      log,
		idleTTL:  sessionIdleTTL,
		linger:   completedLinger,
		sessions: map[string]*sessionEntry{},
	}
	s.sender = func(lc launch.Config) transport.Sender {
		client := transport.New(lc.Endpoint, lc.AuthToken, log, nil)
		if outboxStore != nil {
			return outbox.NewSender(outboxStore, client, lc.Endpoint, lc.AuthToken, log)
		}
		return client
	}
	return s
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/sessions", s.handleCreateSession)
	r.Group(func(pr chi.Router) {
		pr.Use(SessionTokenMiddleware(s.auth))
		pr.Post("/sessions/{sessionID}/item", s.handleItemChanged)
		pr.Post("/sessions/{sessionID}/answer", s.handleAnswerChecked)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(AdminBasicAuth(s.cfg.AdminUser, s.cfg.AdminPassHash))
		ar.Get("/admin/sessions", s.handleListSessions)
	})
	return r
}

// ===== handlers =====

type createSessionReq struct {
	// Query is the content page's launch query string, verbatim.
	Query string `json:"query"`
	// DescriptorURL locates the xapiobject.json placed next to the content.
	DescriptorURL string `json:"descriptor_url"`
}

type createSessionResp struct {
	Enabled   bool   `json:"enabled"`
	SessionID string `json:"session_id,omitempty"`
	Token     string `json:"token,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	params, err := launch.ParseQuery(req.Query)
	if err != nil {
		http.Error(w, "bad launch query", http.StatusBadRequest)
		return
	}
	lc, err := s.resolver.Resolve(r.Context(), params, req.DescriptorURL)
	if err != nil {
		// A disabled launch is not an error to the page: the exercise runs,
		// telemetry stays off.
		if errors.Is(err, launch.ErrDisabled) {
			s.log.Info("session launch without telemetry", zap.Error(err))
			writeJSON(w, createSessionResp{Enabled: false})
			return
		}
		http.Error(w, "resolve launch", http.StatusBadGateway)
		return
	}
	if s.cfg.EndpointOverride != "" {
		lc.Endpoint = s.cfg.EndpointOverride
	}
	if lc.Registration == "" {
		lc.Registration = uuid.NewString()
	}

	id := uuid.NewString()
	eng := engine.New(lc, s.sender(lc), engine.Options{
		PassingGrade: s.cfg.PassingGrade,
		Logger:       s.log.With(zap.String("session", id)),
	})

	s.mu.Lock()
	s.evictStaleLocked()
	s.sessions[id] = &sessionEntry{eng: eng, lastSeen: time.Now()}
	s.mu.Unlock()

	token, err := s.auth.IssueToken(id)
	if err != nil {
		http.Error(w, "issue token", http.StatusInternalServerError)
		return
	}

	eng.Start(context.WithoutCancel(r.Context()))
	s.log.Info("session started", zap.String("session", id), zap.String("activity", lc.Activity.ID))
	writeJSON(w, createSessionResp{Enabled: true, SessionID: id, Token: token})
}

type itemChangedReq struct {
	Item             widget.Item `json:"item"`
	QuestionIndex    int         `json:"question_index"`
	MaxQuestionIndex int         `json:"max_question_index"`
}

func (s *Server) handleItemChanged(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	var req itemChangedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	eng.OnItemChanged(req.Item, req.QuestionIndex, req.MaxQuestionIndex)
	w.WriteHeader(http.StatusNoContent)
}

type answerCheckedReq struct {
	Outcome session.Outcome            `json:"outcome"`
	Input   map[string]json.RawMessage `json:"input"`
}

func (s *Server) handleAnswerChecked(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	var req answerCheckedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	// Telemetry problems never surface to the learner; a failed encode is
	// logged and the page carries on.
	if err := eng.OnAnswerChecked(context.WithoutCancel(r.Context()), req.Outcome, req.Input); err != nil {
		s.log.Error("answer event dropped", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make(map[string]engine.Stats, len(s.sessions))
	for id, e := range s.sessions {
		out[id] = e.eng.Snapshot()
	}
	s.mu.RUnlock()
	writeJSON(w, out)
}

func (s *Server) session(id string) (*engine.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.eng, true
}

func (s *Server) evictStaleLocked() {
	now := time.Now()
	for id, e := range s.sessions {
		idle := now.Sub(e.lastSeen)
		if (e.eng.Completed() && idle >= s.linger) || idle >= s.idleTTL {
			delete(s.sessions, id)
			s.log.Info("session evicted", zap.String("session", id))
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
