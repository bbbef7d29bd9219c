package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dasmlab/parlance/pkg/api"
	"github.com/dasmlab/parlance/pkg/monitor"
	"github.com/dasmlab/parlance/pkg/prefs"
	"github.com/dasmlab/parlance/pkg/service"
	"github.com/dasmlab/parlance/pkg/translate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes = 1 << 20
	// DefaultEventInterval is how often the monitor event stream polls for changes.
	DefaultEventInterval = time.Second
)

// Options configure an HTTPServer.
type Options struct {
	// Addr is the listen address, e.g. "0.0.0.0:8000".
	Addr string
	// CORSOrigins lists origins allowed to call the API with credentials.
	// "*" allows any origin.
	CORSOrigins []string
	// Gatherer serves /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// EventInterval overrides DefaultEventInterval.
	EventInterval time.Duration
}

// HTTPServer exposes translation, detection, monitor and preference endpoints.
type HTTPServer struct {
	service *service.TranslationService
	monitor *monitor.Store
	logger  *logrus.Logger
	opts    Options
	srv     *http.Server
}

// NewHTTPServer creates a new HTTP server for svc.
func NewHTTPServer(svc *service.TranslationService, logger *logrus.Logger, opts Options) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.EventInterval <= 0 {
		opts.EventInterval = DefaultEventInterval
	}

	s := &HTTPServer{
		service: svc,
		monitor: svc.Monitor,
		logger:  logger,
		opts:    opts,
	}
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with CORS and request logging applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Translation API
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /detect", s.handleDetect)
	mux.HandleFunc("POST /translate", s.handleTranslate)
	mux.HandleFunc("GET /languages", s.handleLanguages)

	// Monitor snapshot and SSE stream
	mux.HandleFunc("GET /api/monitor", s.handleMonitor)
	mux.HandleFunc("GET /api/monitor/events", s.handleMonitorEvents)

	// Preferred language cookie
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handleSetPreferences)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	return s.withLogging(s.withCORS(mux))
}

// Start starts the HTTP server and blocks until it stops.
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"addr":     s.opts.Addr,
		"provider": s.service.Provider,
	}).Info("Starting HTTP server")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	provider := string(s.service.Provider)
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:   "ok",
		Provider: provider,
		Message:  fmt.Sprintf("Translation API is running with %s provider", provider),
	})
}

func (s *HTTPServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req api.DetectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "text must not be empty")
		return
	}
	if !s.checkProvider(w, req.Provider) {
		return
	}

	lang, err := s.service.DetectLanguage(r.Context(), req.Text)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Language detection failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.DetectResponse{DetectedLanguage: lang, Text: req.Text})
}

func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req api.TranslateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "text must not be empty")
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "target must not be empty")
		return
	}
	if !s.checkProvider(w, req.Provider) {
		return
	}

	resp, err := s.service.Translate(r.Context(), req)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Translation failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.LanguagesResponse{Languages: translate.Languages()})
}

// checkProvider rejects requests naming a provider other than the one this
// process was started with.
func (s *HTTPServer) checkProvider(w http.ResponseWriter, requested string) bool {
	if requested == "" {
		return true
	}
	p, err := translate.ParseProviderType(requested)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	if p != s.service.Provider {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("provider %q is not enabled (active: %s)", requested, s.service.Provider))
		return false
	}
	return true
}

func (s *HTTPServer) handleMonitor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Snapshot())
}

// handleMonitorEvents streams the monitor state as Server-Sent Events. The
// current state is sent at once, then again whenever it changes.
func (s *HTTPServer) handleMonitorEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(s.opts.EventInterval)
	defer ticker.Stop()

	state := s.monitor.Snapshot()
	if err := s.sendSSEEvent(w, flusher, "monitor", state); err != nil {
		return
	}
	lastRevision := state.Revision

	for {
		select {
		case <-r.Context().Done():
			// Client disconnected
			return
		case <-ticker.C:
			if s.monitor.Revision() == lastRevision {
				continue
			}
			state := s.monitor.Snapshot()
			if err := s.sendSSEEvent(w, flusher, "monitor", state); err != nil {
				return
			}
			lastRevision = state.Revision
		}
	}
}

// sendSSEEvent writes one event in "event: <type>\ndata: <json>\n\n" form.
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal SSE event")
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (s *HTTPServer) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	store, err := prefs.Load(r, prefs.CookiePersister{W: w})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to persist preference")
	}
	writeJSON(w, http.StatusOK, api.PreferenceResponse{PreferredLanguage: store.PreferredLanguage()})
}

func (s *HTTPServer) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var req api.PreferenceRequest
	if !s.decode(w, r, &req) {
		return
	}

	// Start from the current value without re-sending it; only the new
	// value is written as a cookie.
	store := prefs.New(prefs.InitialLanguage(r), prefs.CookiePersister{W: w})
	if err := store.SetPreferredLanguage(req.PreferredLanguage); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.logger.WithFields(logrus.Fields{
		"preferred_language": store.PreferredLanguage(),
	}).Debug("Preferred language updated")
	writeJSON(w, http.StatusOK, api.PreferenceResponse{PreferredLanguage: store.PreferredLanguage()})
}

// handleHealth provides a health check endpoint. It reports the provider's
// readiness without failing the probe, since a missing credential only
// affects translation requests.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":   "healthy",
		"provider": string(s.service.Provider),
	}
	if err := s.service.CheckHealth(r.Context()); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.logger.WithError(err).Debug("Rejecting malformed request body")
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, api.ErrorResponse{Detail: detail})
}

func (s *HTTPServer) originAllowed(origin string) bool {
	return slices.Contains(s.opts.CORSOrigins, "*") || slices.Contains(s.opts.CORSOrigins, origin)
}

// withCORS allows credentialed requests from the configured origins with any
// method and header.
func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !s.originAllowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", r.Header.Get("Access-Control-Request-Method"))
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps the event stream working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *HTTPServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("HTTP request handled")
	})
}
