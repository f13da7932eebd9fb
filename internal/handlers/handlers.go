package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"georecon/internal/cache"
	"georecon/internal/types"
)

// ReconRunner runs one full reconnaissance cycle for a target
type ReconRunner interface {
	Run(ctx context.Context, target string) (*types.Report, error)
}

// PipelineFunc adapts a plain function to ReconRunner
type PipelineFunc func(ctx context.Context, target string) (*types.Report, error)

// Run implements ReconRunner
func (f PipelineFunc) Run(ctx context.Context, target string) (*types.Report, error) {
	return f(ctx, target)
}

// APIHandler exposes the reconnaissance pipeline over HTTP
type APIHandler struct {
	runner ReconRunner
	cache  *cache.ReportCache
	logger *logrus.Logger
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
}

// NewAPIHandler creates a new API handler. cache may be nil to disable
// report caching.
func NewAPIHandler(runner ReconRunner, reportCache *cache.ReportCache, logger *logrus.Logger) *APIHandler {
	return &APIHandler{
		runner: runner,
		cache:  reportCache,
		logger: logger,
	}
}

// sendJSONError sends a standardized JSON error response
func (h *APIHandler) sendJSONError(w http.ResponseWriter, statusCode int, errorMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   errorMsg,
		Timestamp: time.Now().Format(time.RFC3339),
		Status:    statusCode,
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// logStructuredRequest logs the request with structured data
func (h *APIHandler) logStructuredRequest(r *http.Request, status int, duration time.Duration, responseSize int64) {
	h.logger.WithFields(logrus.Fields{
		"method":        r.Method,
		"path":          r.URL.Path,
		"query":         r.URL.RawQuery,
		"status":        status,
		"duration_ms":   duration.Milliseconds(),
		"user_agent":    r.UserAgent(),
		"response_size": responseSize,
		"remote_addr":   r.RemoteAddr,
	}).Info("request_processed")
}

// middleware wraps handlers with logging and security headers
func (h *APIHandler) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(wrapped, r)

		h.logStructuredRequest(r, wrapped.statusCode, time.Since(startTime), wrapped.size)
	}
}

// responseWriter wraps http.ResponseWriter to capture status and body size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

// selfKey is the cache key for a self-targeted run
const selfKey = "self"

// ReportHandler runs the pipeline (or serves a cached report) and returns
// the result as JSON. An optional ?target=<ip> parameter points the IP
// lookup at an explicit host.
func (h *APIHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target != "" && net.ParseIP(target) == nil {
		h.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid target IP: %s", target))
		return
	}

	key := target
	if key == "" {
		key = selfKey
	}

	if h.cache != nil {
		if cached, found := h.cache.Get(key); found {
			h.writeReport(w, cached)
			return
		}
	}

	rep, err := h.runner.Run(r.Context(), target)
	if err != nil {
		h.sendJSONError(w, http.StatusInternalServerError, fmt.Sprintf("recon run failed: %v", err))
		return
	}

	if h.cache != nil {
		h.cache.Set(key, rep)
	}

	h.writeReport(w, rep)
}

func (h *APIHandler) writeReport(w http.ResponseWriter, rep *types.Report) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		h.logger.Errorf("Failed to encode report: %v", err)
	}
}

// HealthHandler handles health check requests
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// StatsHandler handles cache statistics requests
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{"enabled": false}
	if h.cache != nil {
		stats = h.cache.GetStats()
		stats["enabled"] = true
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

// SetupRoutes configures all HTTP routes
func (h *APIHandler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", h.middleware(h.ReportHandler)).Methods("GET")
	router.HandleFunc("/report", h.middleware(h.ReportHandler)).Methods("GET")
	router.HandleFunc("/health", h.middleware(h.HealthHandler)).Methods("GET")
	router.HandleFunc("/stats", h.middleware(h.StatsHandler)).Methods("GET")

	return router
}
