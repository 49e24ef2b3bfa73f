package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/star/orbitsim/internal/simcore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
		DefaultIntervalMs:  50,
	}
}

// TestWorldFrameMessageJSON verifies the world-frame payload shape.
func TestWorldFrameMessageJSON(t *testing.T) {
	msg := worldFrameMessage{
		Type:   "world_frame",
		Speed:  2,
		Paused: false,
		Bodies: []bodyPayload{{ID: 0, P: [2]float64{1, 2}}},
		Crafts: []craftPayload{{ID: 0, Kind: "orbiting", P: [2]float64{1, 2}}},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed["type"] != "world_frame" {
		t.Errorf("type = %v, want world_frame", parsed["type"])
	}
	if parsed["speed"].(float64) != 2 {
		t.Errorf("speed = %v, want 2", parsed["speed"])
	}

	bodies, ok := parsed["bodies"].([]any)
	if !ok || len(bodies) != 1 {
		t.Fatalf("bodies = %v, want 1-element array", parsed["bodies"])
	}
}

// TestMetadataMessageJSON verifies the metadata message format.
func TestMetadataMessageJSON(t *testing.T) {
	msg := metadataMessage{Type: "metadata", BodyCount: 3, CraftCount: 1}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed["body_count"].(float64) != 3 {
		t.Errorf("body_count = %v, want 3", parsed["body_count"])
	}
	if parsed["craft_count"].(float64) != 1 {
		t.Errorf("craft_count = %v, want 1", parsed["craft_count"])
	}
}

// TestHandleWorldSendsMetadataThenFrames exercises the full handler
// against a live World and checks the SSE wire format.
func TestHandleWorldSendsMetadataThenFrames(t *testing.T) {
	world := simcore.New(simcore.DefaultConfig(), testLogger())
	world.Reset(simcore.SolTerraEmber())
	runner := simcore.NewRunner(world, time.Millisecond, testLogger())

	runCtx, stopRunner := context.WithCancel(context.Background())
	defer stopRunner()
	go runner.Run(runCtx)

	handler := NewHandler(runner, testConfig(), testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/world?interval_ms=20", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	ctx, cancel := context.WithTimeout(req.Context(), 200*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.HandleWorld(w, req)

	resp := w.Result()
	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}

	body := w.Body.String()
	scanner := bufio.NewScanner(strings.NewReader(body))
	var foundMetadata, foundFrame bool
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Errorf("invalid JSON in SSE data line: %v", err)
			continue
		}
		switch msg["type"] {
		case "metadata":
			foundMetadata = true
			if msg["body_count"].(float64) != 3 {
				t.Errorf("body_count = %v, want 3", msg["body_count"])
			}
		case "world_frame":
			foundFrame = true
		}
	}

	if !foundMetadata {
		t.Error("did not receive metadata message")
	}
	if !foundFrame {
		t.Error("did not receive at least one world_frame message")
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.acquire("10.0.0.1") {
			t.Fatalf("acquire %d should succeed", i+1)
		}
	}

	if limiter.acquire("10.0.0.1") {
		t.Error("acquire beyond limit should fail")
	}

	if !limiter.acquire("10.0.0.2") {
		t.Error("different IP should not be rate limited")
	}

	limiter.release("10.0.0.1")
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	if c := limiter.count("10.0.0.1"); c != 3 {
		t.Errorf("count = %d, want 3", c)
	}
	if c := limiter.count("10.0.0.2"); c != 1 {
		t.Errorf("count = %d, want 1", c)
	}
}

// TestRateLimitingConcurrent verifies rate limiter thread safety.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies 429 response when limit exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	world := simcore.New(simcore.DefaultConfig(), testLogger())
	world.Reset(simcore.SolTerraEmber())
	runner := simcore.NewRunner(world, time.Millisecond, testLogger())

	runCtx, stopRunner := context.WithCancel(context.Background())
	defer stopRunner()
	go runner.Run(runCtx)

	cfg := testConfig()
	cfg.MaxConcurrentPerIP = 1
	handler := NewHandler(runner, cfg, testLogger())

	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/stream/world", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		go func() {
			time.Sleep(50 * time.Millisecond)
			close(ready)
			time.Sleep(200 * time.Millisecond)
			cancel()
		}()

		handler.HandleWorld(w, req)
	}()

	<-ready

	req := httptest.NewRequest("GET", "/api/v1/stream/world", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	handler.HandleWorld(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	<-done
}

// TestInvalidQueryParams verifies error responses for a bad interval_ms value.
func TestInvalidQueryParams(t *testing.T) {
	world := simcore.New(simcore.DefaultConfig(), testLogger())
	world.Reset(simcore.SolTerraEmber())
	runner := simcore.NewRunner(world, time.Millisecond, testLogger())

	runCtx, stopRunner := context.WithCancel(context.Background())
	defer stopRunner()
	go runner.Run(runCtx)

	handler := NewHandler(runner, testConfig(), testLogger())

	tests := []struct {
		name  string
		query string
	}{
		{"too small", "?interval_ms=1"},
		{"too large", "?interval_ms=99999"},
		{"non-numeric", "?interval_ms=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/world"+tt.query, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			handler.HandleWorld(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// TestKeepaliveFormat verifies keep-alive is an SSE comment.
func TestKeepaliveFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	c := &client{w: rec, flusher: rec, rc: http.NewResponseController(rec), logger: testLogger()}
	if err := c.sendKeepalive(); err != nil {
		t.Fatalf("sendKeepalive: %v", err)
	}
	expected := rec.Body.String()
	if len(expected) != 3 {
		t.Errorf("keepalive length = %d, want 3", len(expected))
	}
	if expected[0] != ':' {
		t.Error("keepalive should start with ':'")
	}
}
