// Package api exposes the simulation's HTTP control surface: reset,
// tick-rate control, read-only body/craft/prediction views, and the
// transfer request/schedule/cancel lifecycle (spec.md §6). Route
// registration, middleware chain and graceful-shutdown shape are
// grounded on internal/api.NewServer from the teacher, generalized from
// a single read-only propagate endpoint to the full control surface a
// live simulation needs.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/orbitsim/internal/auth"
	"github.com/star/orbitsim/internal/health"
	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/simcore"
	"github.com/star/orbitsim/internal/stream"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server backed by runner.
func NewServer(addr string, runner *simcore.Runner, logger *slog.Logger, authCfg auth.Config, streamCfg stream.Config) *Server {
	h := &handlers{runner: runner, logger: logger}
	streamHandler := stream.NewHandler(runner, streamCfg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/stream/world", streamHandler.HandleWorld)
	mux.HandleFunc("GET /api/v1/stream/transfer/{craft_id}", streamHandler.HandleTransfer)

	mux.HandleFunc("POST /api/v1/reset", h.handleReset)
	mux.HandleFunc("POST /api/v1/speed", h.handleSetSpeed)
	mux.HandleFunc("POST /api/v1/pause", h.handlePause)
	mux.HandleFunc("POST /api/v1/resume", h.handleResume)
	mux.HandleFunc("GET /api/v1/bodies", h.handleBodies)
	mux.HandleFunc("GET /api/v1/crafts", h.handleCrafts)
	mux.HandleFunc("GET /api/v1/prediction", h.handlePrediction)
	mux.HandleFunc("POST /api/v1/crafts/{craft_id}/launch", h.handleLaunch)
	mux.HandleFunc("POST /api/v1/crafts/{craft_id}/transfer", h.handleRequestTransfer)
	mux.HandleFunc("GET /api/v1/crafts/{craft_id}/transfer", h.handleGetTransfer)
	mux.HandleFunc("POST /api/v1/crafts/{craft_id}/transfer/schedule", h.handleScheduleTransfer)
	mux.HandleFunc("POST /api/v1/crafts/{craft_id}/transfer/cancel", h.handleCancelTransfer)

	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
