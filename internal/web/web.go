package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"moncal/internal/auth"
	"moncal/internal/capture"
	"moncal/internal/config"
	"moncal/internal/ics"
	appLog "moncal/internal/log"
	"moncal/internal/store"
)

// maxJSONBody bounds request bodies of the JSON endpoints.
const maxJSONBody = 1 << 20

// Server provides the calendar editor HTTP API and the rendered views.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	raster  capture.Rasterizer
	fetcher *ics.Fetcher
	loc     *time.Location
	debug   bool
	mux     *http.ServeMux

	// now is replaceable in tests.
	now func() time.Time
}

// NewServer constructs a new Server. raster renders /api/export.png.
func NewServer(cfg *config.Config, st *store.Store, raster capture.Rasterizer, debug bool) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		raster:  raster,
		fetcher: ics.NewFetcher(nil),
		loc:     cfg.Location(),
		debug:   debug,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.debug {
		h = requestLogger(h)
	}
	if s.cfg.AuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen, "user", s.cfg.BasicAuth.Username)
		return auth.Middleware(s.cfg.BasicAuth.Username, s.cfg.BasicAuth.PasswordHash, h)
	}
	appLog.Warn("HTTP basic auth disabled; editor is unprotected", "listen", "http://"+s.cfg.Listen)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// state and navigation
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("PUT /api/month", s.handleSetMonth)
	s.mux.HandleFunc("POST /api/month/prev", s.handlePrevMonth)
	s.mux.HandleFunc("POST /api/month/next", s.handleNextMonth)

	// events
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("PUT /api/events", s.handleSetEvents)
	s.mux.HandleFunc("PATCH /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	// event types
	s.mux.HandleFunc("POST /api/event-types", s.handleAddEventType)
	s.mux.HandleFunc("PATCH /api/event-types/{id}", s.handleUpdateEventType)
	s.mux.HandleFunc("DELETE /api/event-types/{id}", s.handleDeleteEventType)

	// memo and presentation
	s.mux.HandleFunc("PUT /api/memo", s.handleSetMemo)
	s.mux.HandleFunc("PATCH /api/settings/text", s.handleTextSettings)
	s.mux.HandleFunc("PUT /api/settings/size", s.handleCalendarSize)
	s.mux.HandleFunc("PUT /api/settings/header-color", s.handleHeaderColor)

	// import / export
	s.mux.HandleFunc("POST /api/import", s.handleImport)
	s.mux.HandleFunc("POST /api/import/url", s.handleImportURL)
	s.mux.HandleFunc("GET /api/template.xlsx", s.handleTemplate)
	s.mux.HandleFunc("GET /api/export.png", s.handleExportPNG)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// decodeJSON reads a bounded JSON body into v. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		appLog.Debug("invalid JSON body", "path", r.URL.Path, "err", err.Error())
		writeError(w, http.StatusBadRequest, "잘못된 요청 형식입니다.")
		return false
	}
	return true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeValidation reports form validation problems, one message per field.
func writeValidation(w http.ResponseWriter, errs []string) {
	type validationResp struct {
		Error  string   `json:"error"`
		Errors []string `json:"errors"`
	}
	writeJSON(w, http.StatusBadRequest, validationResp{Error: errs[0], Errors: errs})
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
