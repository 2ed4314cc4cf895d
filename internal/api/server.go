package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/caliper/internal/pipeline"
	"github.com/MikeSquared-Agency/caliper/internal/store"
)

// Publisher fans a completed analysis out to the event bus. Optional.
type Publisher interface {
	AnalysisCompleted(ctx context.Context, report *pipeline.Report) error
}

// Notifier alerts a human channel about urgent analyses. Optional.
type Notifier interface {
	UrgentAnalysis(ctx context.Context, report *pipeline.Report) error
}

type Server struct {
	router    *chi.Mux
	port      int
	pipeline  *pipeline.Pipeline
	store     *store.Store
	publisher Publisher
	notifier  Notifier
	logger    *slog.Logger
}

func NewServer(port int, p *pipeline.Pipeline, db *store.Store, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		pipeline: p,
		store:    db,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/caliper/status", s.status)
	router.Post("/api/v1/analyze", s.analyze)
	router.Get("/api/v1/analyses", s.listAnalyses)
	router.Get("/api/v1/analyses/{filename}", s.getAnalysis)

	return s
}

// SetPublisher attaches an optional event publisher.
func (s *Server) SetPublisher(p Publisher) { s.publisher = p }

// SetNotifier attaches an optional urgent-call notifier.
func (s *Server) SetNotifier(n Notifier) { s.notifier = n }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "caliper",
		"status":    "ready",
		"persisted": s.store != nil,
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var in pipeline.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if in.Content == "" {
		writeError(w, http.StatusBadRequest, "missing required field: content")
		return
	}

	report, err := s.pipeline.Analyze(r.Context(), in)
	if err != nil {
		if errors.Is(err, pipeline.ErrTranscriptTooShort) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	if s.store != nil && report.Filename != "" {
		if err := s.store.UpsertAnalysis(r.Context(), report); err != nil {
			// Persistence is best-effort on the request path; the caller
			// still gets the report.
			s.logger.Error("persist analysis failed", "filename", report.Filename, "error", err)
		}
	}
	s.fanOut(r.Context(), report)

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) fanOut(ctx context.Context, report *pipeline.Report) {
	if s.publisher != nil {
		if err := s.publisher.AnalysisCompleted(ctx, report); err != nil {
			s.logger.Error("publish analysis event failed", "error", err)
		}
	}
	if s.notifier != nil && report.CoachingUrgency.Level == "urgent" {
		if err := s.notifier.UrgentAnalysis(ctx, report); err != nil {
			s.logger.Error("urgent notification failed", "error", err)
		}
	}
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	rows, err := s.store.ListAnalyses(r.Context())
	if err != nil {
		s.logger.Error("list analyses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "analyses": rows})
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	filename := chi.URLParam(r, "filename")
	row, err := s.store.GetAnalysis(r.Context(), filename)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no analysis for %q", filename))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
