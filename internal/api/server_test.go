package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/star/orbitsim/internal/auth"
	"github.com/star/orbitsim/internal/simcore"
	"github.com/star/orbitsim/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	logger := testLogger()
	world := simcore.New(simcore.DefaultConfig(), logger)
	world.Reset(simcore.SolTerraEmber())
	runner := simcore.NewRunner(world, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go runner.Run(ctx)

	streamCfg := stream.Config{MaxConcurrentPerIP: 10, KeepaliveInterval: 30 * time.Second, DefaultIntervalMs: 100}
	srv := NewServer(":0", runner, logger, auth.Config{}, streamCfg)
	return srv, cancel
}

// TestHandleBodiesReturnsSeededPreset verifies the bodies endpoint
// reflects the reset preset's body count.
func TestHandleBodiesReturnsSeededPreset(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/bodies", nil)
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var bodies []bodyView
	if err := json.Unmarshal(w.Body.Bytes(), &bodies); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(bodies) != 3 {
		t.Fatalf("len(bodies) = %d, want 3", len(bodies))
	}
}

// TestHandleRequestTransferRejectsSameSourceAndDest verifies the
// contract-error mapping to HTTP 422.
func TestHandleRequestTransferRejectsSameSourceAndDest(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	payload, _ := json.Marshal(map[string]int{"dest_body_id": 1})
	req := httptest.NewRequest("POST", "/api/v1/crafts/0/transfer", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

// TestHandleRequestTransferAcceptsDistinctDest verifies a valid request
// starts a search and returns 202.
func TestHandleRequestTransferAcceptsDistinctDest(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	payload, _ := json.Marshal(map[string]int{"dest_body_id": 2})
	req := httptest.NewRequest("POST", "/api/v1/crafts/0/transfer", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
}

// TestHandleGetTransferReturns404WithoutAnActiveSearch verifies the
// not-found path for a craft with no transfer handle.
func TestHandleGetTransferReturns404WithoutAnActiveSearch(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/crafts/0/transfer", nil)
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestHandleSpeedRejectsInvalidMultiplier verifies the speed endpoint
// validates against the clock's allowed multiplier set.
func TestHandleSpeedRejectsInvalidMultiplier(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	payload, _ := json.Marshal(map[string]int{"multiplier": 3})
	req := httptest.NewRequest("POST", "/api/v1/speed", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
