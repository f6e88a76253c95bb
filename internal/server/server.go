// Package server exposes canonical organizations and reconcile runs over a
// read-only JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ketankauntia/gsoc-orgs/internal/config"
	"github.com/ketankauntia/gsoc-orgs/internal/model"
	"github.com/ketankauntia/gsoc-orgs/internal/store"
)

const maxLimit = 500

// Server serves the HTTP API.
type Server struct {
	store store.Store
	cfg   config.ServerConfig
}

// New creates a Server.
func New(st store.Store, cfg config.ServerConfig) *Server {
	return &Server{store: st, cfg: cfg}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/organizations", s.listOrganizations)
		r.Get("/organizations/{slug}", s.getOrganization)
		r.Get("/organizations/{slug}/projects", s.listProjects)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
	})
	return r
}

// ListenAndServe serves on the configured port until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type organizationList struct {
	Organizations []model.Organization `json:"organizations"`
	Count         int                  `json:"count"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := intParam(q.Get("year"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	limit, offset, err := page(q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orgs, err := s.store.ListCanonical(r.Context(), store.OrgFilter{
		Year:   year,
		Query:  q.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if orgs == nil {
		orgs = []model.Organization{}
	}
	writeJSON(w, http.StatusOK, organizationList{Organizations: orgs, Count: len(orgs), Limit: limit, Offset: offset})
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := s.store.GetCanonical(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.storeError(w, r, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	year, err := intParam(r.URL.Query().Get("year"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	if _, err := s.store.GetCanonical(r.Context(), slug); err != nil {
		s.storeError(w, r, err, "organization not found")
		return
	}
	projects, err := s.store.ListProjects(r.Context(), store.ProjectFilter{OrgSlug: slug, Year: year})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects, "count": len(projects)})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := page(q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func page(limitRaw, offsetRaw string) (int, int, error) {
	limit, err := intParam(limitRaw, 100)
	if err != nil || limit <= 0 {
		return 0, 0, eris.New("invalid limit")
	}
	limit = min(limit, maxLimit)
	offset, err := intParam(offsetRaw, 0)
	if err != nil || offset < 0 {
		return 0, 0, eris.New("invalid offset")
	}
	return limit, offset, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
