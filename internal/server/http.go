package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/interview-service/internal/analysis"
	"github.com/skypro1111/interview-service/internal/config"
	"github.com/skypro1111/interview-service/internal/metrics"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/store"
)

// Importer analyzes and stores an imported plain-text transcript
type Importer interface {
	ImportText(ctx context.Context, text string, language session.Language) (*session.Session, error)
}

// AudioFiles resolves recording names to files on disk
type AudioFiles interface {
	Path(name string) (string, error)
}

// AnalysisStats reports analysis client statistics
type AnalysisStats interface {
	GetStats() analysis.ClientStats
}

// Services are the collaborators behind the API. Importer, Audio and
// Analysis may be nil; the matching endpoints then report 503.
type Services struct {
	Store    *store.Store
	Importer Importer
	Audio    AudioFiles
	Analysis AnalysisStats
}

// HTTPServer provides the HTTP API
type HTTPServer struct {
	server   *http.Server
	handler  http.Handler
	logger   *slog.Logger
	config   *config.Config
	services Services
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, services Services, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		services:  services,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)
	h.handler = mux

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: appConfig.Analysis.GetTimeoutDuration() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the routed handler
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("GET /config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("GET /stats", h.withMetrics("/stats", h.handleStats))

	// Sessions
	mux.HandleFunc("GET /sessions", h.withMetrics("/sessions", h.handleListSessions))
	mux.HandleFunc("POST /sessions/import", h.withMetrics("/sessions/import", h.handleImport))
	mux.HandleFunc("GET /sessions/{id}", h.withMetrics("/sessions/{id}", h.handleGetSession))
	mux.HandleFunc("DELETE /sessions/{id}", h.withMetrics("/sessions/{id}", h.handleDeleteSession))
	mux.HandleFunc("GET /sessions/{id}/export", h.withMetrics("/sessions/{id}/export", h.handleExport))
	mux.HandleFunc("GET /sessions/{id}/segments/{n}/spans", h.withMetrics("/sessions/{id}/segments/{n}/spans", h.handleSpans))

	// Codes and annotations
	mux.HandleFunc("POST /sessions/{id}/codes", h.withMetrics("/sessions/{id}/codes", h.handleCreateCode))
	mux.HandleFunc("PATCH /sessions/{id}/codes/{codeId}", h.withMetrics("/sessions/{id}/codes/{codeId}", h.handleRenameCode))
	mux.HandleFunc("DELETE /sessions/{id}/codes/{codeId}", h.withMetrics("/sessions/{id}/codes/{codeId}", h.handleDeleteCode))
	mux.HandleFunc("POST /sessions/{id}/annotations", h.withMetrics("/sessions/{id}/annotations", h.handleApplyCode))
	mux.HandleFunc("DELETE /sessions/{id}/annotations/{annId}", h.withMetrics("/sessions/{id}/annotations/{annId}", h.handleRemoveAnnotation))

	// Settings
	mux.HandleFunc("GET /settings", h.withMetrics("/settings", h.handleGetSettings))
	mux.HandleFunc("PUT /settings", h.withMetrics("/settings", h.handlePutSettings))

	// Recorded audio
	mux.HandleFunc("GET /audio/{name}", h.withMetrics("/audio/{name}", h.handleAudio))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("GET /{$}", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)

	components := map[string]interface{}{
		"store": map[string]interface{}{
			"status":   "running",
			"sessions": h.services.Store.Count(),
		},
	}

	if h.services.Analysis != nil {
		stats := h.services.Analysis.GetStats()
		components["analysis"] = map[string]interface{}{
			"status":          "running",
			"total_requests":  stats.TotalRequests,
			"success_rate":    stats.SuccessRate,
			"active_requests": stats.ActiveRequests,
		}
	} else {
		components["analysis"] = map[string]interface{}{"status": "disabled"}
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "interview-service",
			"version": "1.0.0",
		},
		"components": components,
	}

	writeJSON(w, http.StatusOK, health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	// API keys are omitted
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":    h.config.HTTP.Port,
			"address": h.config.HTTP.Address,
		},
		"live": map[string]interface{}{
			"model":                h.config.Live.Model,
			"endpoint":             h.config.Live.Endpoint,
			"capture_sample_rate":  h.config.Live.CaptureSampleRate,
			"playback_sample_rate": h.config.Live.PlaybackSampleRate,
			"frame_size":           h.config.Live.FrameSize,
			"idle_timeout":         h.config.Live.IdleTimeout,
			"api_key_set":          h.config.Live.APIKey != "",
		},
		"device": map[string]interface{}{
			"capture_command":  h.config.Device.CaptureCommand,
			"playback_command": h.config.Device.PlaybackCommand,
		},
		"analysis": map[string]interface{}{
			"endpoint":       h.config.Analysis.Endpoint,
			"model":          h.config.Analysis.Model,
			"timeout":        h.config.Analysis.Timeout,
			"max_concurrent": h.config.Analysis.MaxConcurrent,
			"api_key_set":    h.config.Analysis.APIKey != "",
		},
		"storage": map[string]interface{}{
			"database_path":  h.config.Storage.DatabasePath,
			"recordings_dir": h.config.Storage.RecordingsDir,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	byType := map[session.Type]int{}
	degraded := 0
	annotations := 0
	for _, s := range h.services.Store.List(store.Filter{}) {
		byType[s.Type]++
		annotations += len(s.Annotations)
		if s.Degraded {
			degraded++
		}
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]interface{}{
			"total":       h.services.Store.Count(),
			"by_type":     byType,
			"degraded":    degraded,
			"annotations": annotations,
		},
	}
	if h.services.Analysis != nil {
		stats["analysis"] = h.services.Analysis.GetStats()
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	apiDoc := map[string]interface{}{
		"service": "Interview Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                                  "API documentation",
			"GET /health":                            "Service health check",
			"GET /config":                            "Get service configuration",
			"GET /stats":                             "Get session statistics",
			"GET /metrics":                           "Prometheus metrics",
			"GET /sessions":                          "List sessions (?type=&q=&from=&to=)",
			"POST /sessions/import":                  "Import a plain-text transcript",
			"GET /sessions/{id}":                     "Get a session",
			"DELETE /sessions/{id}":                  "Delete a session and its audio",
			"GET /sessions/{id}/export":              "Export a session (?format=json|text)",
			"GET /sessions/{id}/segments/{n}/spans":  "Render spans for a transcript segment",
			"POST /sessions/{id}/codes":              "Create a code",
			"PATCH /sessions/{id}/codes/{codeId}":    "Rename a code",
			"DELETE /sessions/{id}/codes/{codeId}":   "Delete a code",
			"POST /sessions/{id}/annotations":        "Apply a code to a selection",
			"DELETE /sessions/{id}/annotations/{id}": "Remove an annotation",
			"GET /settings":                          "Get interview settings",
			"PUT /settings":                          "Replace interview settings",
			"GET /audio/{name}":                      "Download a session recording",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, apiDoc)
}
