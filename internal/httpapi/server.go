// Package httpapi exposes quiz sessions, the question index and the
// difficulty optimizer over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/p-n-ai/pai-quiz/internal/index"
	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/session"
	"github.com/p-n-ai/pai-quiz/internal/store"
)

const (
	apiPrefix    = "/api/v1"
	checkTimeout = 2 * time.Second
)

// Check reports whether a backing service is reachable.
type Check func(ctx context.Context) error

// Config holds the server's dependencies. Store, Hub and Checks are optional.
type Config struct {
	Sessions    *session.Manager
	Index       *index.Tree
	Store       store.QuestionStore
	Optimizer   *optimizer.Optimizer
	Hub         *session.Hub
	CORSOrigins []string
	Checks      map[string]Check
}

// Server serves the quiz API.
type Server struct {
	sessions  *session.Manager
	index     *index.Tree
	store     store.QuestionStore
	optimizer *optimizer.Optimizer
	hub       *session.Hub
	origins   []string
	checks    map[string]Check
}

// New creates a server.
func New(cfg Config) *Server {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		sessions:  cfg.Sessions,
		index:     cfg.Index,
		store:     cfg.Store,
		optimizer: cfg.Optimizer,
		hub:       cfg.Hub,
		origins:   origins,
		checks:    cfg.Checks,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	v1 := r.PathPrefix(apiPrefix).Subrouter()

	v1.HandleFunc("/quizzes", s.createQuiz).Methods(http.MethodPost)
	v1.HandleFunc("/quizzes/{id}/next", s.nextQuestion).Methods(http.MethodGet)
	v1.HandleFunc("/quizzes/{id}/answers", s.submitAnswer).Methods(http.MethodPost)
	v1.HandleFunc("/quizzes/{id}/stats", s.quizStats).Methods(http.MethodGet)
	v1.HandleFunc("/quizzes/{id}/status", s.quizStatus).Methods(http.MethodGet)
	v1.HandleFunc("/quizzes/{id}/recommendation", s.quizRecommendation).Methods(http.MethodGet)
	v1.HandleFunc("/quizzes/{id}/report.xlsx", s.quizReport).Methods(http.MethodGet)
	v1.HandleFunc("/quizzes/{id}/events", s.quizEvents).Methods(http.MethodGet)
	v1.HandleFunc("/quizzes/{id}", s.endQuiz).Methods(http.MethodDelete)

	v1.HandleFunc("/questions/tree", s.questionTree).Methods(http.MethodGet)
	v1.HandleFunc("/questions/search", s.searchQuestions).Methods(http.MethodGet)
	v1.HandleFunc("/questions", s.addQuestion).Methods(http.MethodPost)
	v1.HandleFunc("/questions/{id}", s.deleteQuestion).Methods(http.MethodDelete)

	v1.HandleFunc("/difficulty/next", s.difficultyNext).Methods(http.MethodPost)
	v1.HandleFunc("/difficulty/sequence", s.difficultySequence).Methods(http.MethodPost)
	v1.HandleFunc("/difficulty/analyze", s.difficultyAnalyze).Methods(http.MethodPost)
	v1.HandleFunc("/difficulty/recommend", s.difficultyRecommend).Methods(http.MethodPost)

	return s.cors(r)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if len(s.checks) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	if slices.Contains(s.origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(s.origins, origin) {
		return origin
	}
	return ""
}

// originPatterns converts the CORS origins into host patterns for the
// WebSocket handshake.
func (s *Server) originPatterns() []string {
	var out []string
	for _, o := range s.origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	return out
}
