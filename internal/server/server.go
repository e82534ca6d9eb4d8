package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/canalize/canalize/internal/auth"
	"github.com/canalize/canalize/internal/cache"
	"github.com/canalize/canalize/internal/config"
	"github.com/canalize/canalize/internal/fetcher"
	"github.com/canalize/canalize/internal/models"
	"github.com/canalize/canalize/internal/safeurl"
	"github.com/canalize/canalize/internal/service"
	"github.com/canalize/canalize/internal/store"
)

const maxPlaylistNameLen = 255

// Server holds dependencies for the HTTP API.
type Server struct {
	store    store.Store
	cfg      *config.Config
	importer *service.Importer
	redis    *cache.Redis // nil when REDIS_URL is not set
	mux      *http.ServeMux
}

// New creates a Server and registers routes.
// redis may be nil if caching/locking is not configured.
func New(s store.Store, cfg *config.Config, importer *service.Importer, redis *cache.Redis) *Server {
	srv := &Server{store: s, cfg: cfg, importer: importer, redis: redis, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Playlists
	s.mux.HandleFunc("POST /playlist/import", s.withPrincipal(s.handleImportPlaylist))
	s.mux.HandleFunc("GET /playlist", s.withPrincipal(s.handleListPlaylists))
	s.mux.HandleFunc("GET /playlist/{id}/categories", s.withPrincipal(s.handleListCategories))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withLogging(s),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("database: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleImportPlaylist(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	if !principal.IsAdmin() {
		writeErr(w, http.StatusForbidden, fmt.Errorf("import requires the admin role"))
		return
	}

	var req service.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.URL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url must be a valid http or https URL"))
		return
	}
	if len(req.Name) > maxPlaylistNameLen {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("name must be at most %d characters", maxPlaylistNameLen))
		return
	}

	// With Redis available, a same-tenant re-submit of the same URL is
	// rejected while the first import is still running.
	if s.redis != nil {
		unlock, err := cache.TryLock(r.Context(), s.redis, cache.ImportLockKey(principal.TenantID, req.URL), s.cfg.Playlist.Timeout+time.Minute)
		if err != nil {
			if errors.Is(err, cache.ErrLocked) {
				writeErr(w, http.StatusConflict, fmt.Errorf("an import of this playlist is already running"))
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		defer unlock()
	}

	result, err := s.importer.Import(r.Context(), req, principal)
	if err != nil {
		writeErr(w, statusForImportError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	playlists, err := s.store.ListPlaylists(r.Context(), principal.TenantID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	playlistID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	categories, err := s.store.ListCategories(r.Context(), playlistID, principal.TenantID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// statusForImportError maps pipeline failures onto HTTP statuses:
// caller mistakes are 400, blocked destinations are 403, anything
// unexpected (including transaction failures) is 500.
func statusForImportError(err error) int {
	switch {
	case errors.Is(err, safeurl.ErrForbiddenHost):
		return http.StatusForbidden
	case errors.Is(err, safeurl.ErrInvalidURL),
		errors.Is(err, safeurl.ErrUnresolvableHost),
		errors.Is(err, fetcher.ErrBadRedirect),
		errors.Is(err, fetcher.ErrTooManyRedirects),
		errors.Is(err, fetcher.ErrEmptyResponse),
		errors.Is(err, fetcher.ErrTooLarge),
		errors.Is(err, service.ErrEmptyPlaylist),
		errors.Is(err, service.ErrPlaylistTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// --- middleware ---

// withPrincipal rejects requests without gateway identity headers and
// stores the principal in the request context.
func (s *Server) withPrincipal(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := auth.FromRequest(r)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r.WithContext(auth.NewContext(r.Context(), principal)))
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler and logs each request with method, path,
// status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		log.Printf("%-7s %3d %s %s", r.Method, sw.status, formatDuration(time.Since(start)), r.URL.Path)
	})
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as int64.
func parseID(r *http.Request, param string) (int64, error) {
	v := r.PathValue(param)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}
