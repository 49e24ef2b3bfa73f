package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/star/orbitsim/internal/simcore"
)

func newTestWSServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	world := simcore.New(simcore.DefaultConfig(), testLogger())
	world.Reset(simcore.SolTerraEmber())
	runner := simcore.NewRunner(world, time.Millisecond, testLogger())

	runCtx, stopRunner := context.WithCancel(context.Background())
	go runner.Run(runCtx)

	handler := NewHandler(runner, testConfig(), testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /transfer/{craft_id}", handler.HandleTransfer)

	srv := httptest.NewServer(mux)

	stop := make(chan struct{})
	go func() {
		<-stop
	}()
	cancel := func() { stopRunner(); close(stop); srv.Close() }
	return srv, cancel
}

// TestTransferStreamPushesNoneStateWithoutAnActiveSearch verifies the
// handler reports state "none" for a craft with no transfer handle.
func TestTransferStreamPushesNoneStateWithoutAnActiveSearch(t *testing.T) {
	srv, cancel := newTestWSServer(t)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/transfer/0"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg transferStateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}

	if msg.Type != "transfer_state" {
		t.Errorf("type = %q, want transfer_state", msg.Type)
	}
	if msg.State != "none" {
		t.Errorf("state = %q, want none", msg.State)
	}
}
