package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/quizforge/quizforge/internal/ai"
	"github.com/quizforge/quizforge/internal/material"
	"github.com/quizforge/quizforge/internal/platform/cache"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/session"
)

// server bundles the handler dependencies.
type server struct {
	store     *material.Store
	generator *quiz.Generator
	router    *ai.Router
	sessions  session.Store
	cookies   *sessions.CookieStore
	cache     *cache.Cache
	logger    *slog.Logger
}

// newMux creates the HTTP router.
func (s *server) newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/subjects", s.handleSubjects)
	mux.HandleFunc("GET /api/subjects/{subject}/topics", s.handleTopics)
	mux.HandleFunc("POST /api/quiz", s.handleQuiz)
	mux.HandleFunc("POST /api/quiz/stream", s.handleQuizStream)
	mux.HandleFunc("POST /api/session/reset", s.handleSessionReset)
	return mux
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if err := s.cache.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"cache":  err.Error(),
			})
			return
		}
	}
	if s.router != nil {
		if err := s.router.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"model":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects := s.store.Subjects()
	names := make([]string, 0, len(subjects))
	for _, sub := range subjects {
		names = append(names, sub.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": names})
}

func (s *server) handleTopics(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	topics, err := s.store.Topics(subject)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subject": subject, "topics": topics})
}

func (s *server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quiz.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject is required"})
		return
	}

	sid, err := s.sessionID(w, r)
	if err != nil {
		s.logger.Error("session resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session failure"})
		return
	}

	seen := s.sessions.Seen(r.Context(), sid)
	batch, err := s.generator.Generate(r.Context(), req, seen)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("quiz generated",
		"session", sid, "subject", req.Subject,
		"requested", batch.Requested, "produced", len(batch.Questions))
	writeJSON(w, http.StatusOK, batch)
}

// handleQuizStream emits one NDJSON line per accepted question as generation
// progresses, so the client can render questions before the run finishes.
func (s *server) handleQuizStream(w http.ResponseWriter, r *http.Request) {
	var req quiz.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject is required"})
		return
	}

	sid, err := s.sessionID(w, r)
	if err != nil {
		s.logger.Error("session resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session failure"})
		return
	}

	seen := s.sessions.Seen(r.Context(), sid)
	ch, err := s.generator.GenerateStream(r.Context(), req, seen)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	produced := 0
	for q := range ch {
		if err := enc.Encode(q); err != nil {
			s.logger.Warn("stream write failed", "session", sid, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		produced++
	}
	s.logger.Info("quiz streamed", "session", sid, "subject", req.Subject, "produced", produced)
}

func (s *server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	sid, err := s.sessionID(w, r)
	if err != nil {
		s.logger.Error("session resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "session failure"})
		return
	}
	if err := s.sessions.Reset(r.Context(), sid); err != nil {
		s.logger.Error("session reset failed", "session", sid, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failure"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// writeError maps pipeline errors to HTTP responses.
func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, material.ErrCorpusUnavailable):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, quiz.ErrUnknownTopic):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}
