// Package stream implements Server-Sent Events (SSE) streaming of world
// frames. Clients connect via GET /api/v1/stream/world and receive a
// continuous sequence of body/craft position snapshots at a client-
// requested cadence.
//
// SSE message format:
//
//	data: {"type":"world_frame","speed":1,"paused":false,"bodies":[...],"crafts":[...]}\n\n
//
// First message on every connection is metadata:
//
//	data: {"type":"metadata","body_count":3,"craft_count":1}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// proxy/client timeout on an otherwise idle connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/httputil"
	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/simcore"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	DefaultIntervalMs  int           // Default frame push interval in ms (default: 100).
}

// Handler manages SSE streaming connections over a simulation runner.
type Handler struct {
	runner  *simcore.Runner
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(runner *simcore.Runner, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		runner:  runner,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandleWorld serves the SSE world-frame stream.
// GET /api/v1/stream/world?interval_ms=100
func (h *Handler) HandleWorld(w http.ResponseWriter, r *http.Request) {
	intervalMs := h.config.DefaultIntervalMs
	if v := r.URL.Query().Get("interval_ms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 20 || n > 5000 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid interval_ms parameter, must be 20-5000"})
			return
		}
		intervalMs = n
	}

	ip := httputil.ClientIP(r, false)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"interval_ms", intervalMs,
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{w: w, flusher: flusher, rc: rc, ip: ip, logger: h.logger}

	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	var meta metadataMessage
	h.runner.Do(func(world *simcore.World) {
		meta = metadataMessage{
			Type:       "metadata",
			BodyCount:  len(world.Bodies()),
			CraftCount: len(world.Crafts()),
		}
	})
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			frame := h.buildFrame()
			data, err := json.Marshal(frame)
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("stream marshal error", "remote_ip", ip, "error", err)
				continue
			}
			if err := c.sendRaw(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildFrame reads a consistent body/craft snapshot off the runner's
// owning goroutine and shapes it into the wire message.
func (h *Handler) buildFrame() worldFrameMessage {
	var msg worldFrameMessage
	h.runner.Do(func(world *simcore.World) {
		msg.Type = "world_frame"
		msg.Speed = world.Speed()
		msg.Paused = world.Paused()

		bodies := world.Bodies()
		msg.Bodies = make([]bodyPayload, len(bodies))
		for i, b := range bodies {
			msg.Bodies[i] = bodyPayload{ID: b.ID, P: [2]float64{b.Current.Pos.X, b.Current.Pos.Y}}
		}

		crafts := world.Crafts()
		msg.Crafts = make([]craftPayload, len(crafts))
		for i, cv := range crafts {
			cp := craftPayload{ID: cv.ID, Kind: "orbiting"}
			switch cv.State.Kind {
			case craft.KindOrbiting:
				if parent := cv.State.Orbit.Parent; parent >= 0 && parent < len(bodies) {
					cp.P = [2]float64{bodies[parent].Current.Pos.X, bodies[parent].Current.Pos.Y}
				}
			case craft.KindFree:
				cp.Kind = "free"
				cp.P = [2]float64{cv.State.Free.Pos.X, cv.State.Free.Pos.Y}
			}
			msg.Crafts[i] = cp
		}
	})
	return msg
}

// SSE message payload types.

type metadataMessage struct {
	Type       string `json:"type"`
	BodyCount  int    `json:"body_count"`
	CraftCount int    `json:"craft_count"`
}

type worldFrameMessage struct {
	Type   string         `json:"type"`
	Speed  int            `json:"speed"`
	Paused bool           `json:"paused"`
	Bodies []bodyPayload  `json:"bodies"`
	Crafts []craftPayload `json:"crafts"`
}

type bodyPayload struct {
	ID int        `json:"id"`
	P  [2]float64 `json:"p"`
}

type craftPayload struct {
	ID   int        `json:"id"`
	Kind string     `json:"kind"`
	P    [2]float64 `json:"p"`
}
