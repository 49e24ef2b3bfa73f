package stream

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/star/orbitsim/internal/httputil"
	"github.com/star/orbitsim/internal/metrics"
	"github.com/star/orbitsim/internal/simcore"
)

// upgrader mirrors the teacher's permissive-origin SSE posture: this
// service has no cookie-based session to protect, so cross-origin
// WebSocket connections are allowed the same way cross-origin SSE
// requests are.
var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// transferStateMessage is pushed to the client on connect and whenever
// the handle's state or best plan changes.
type transferStateMessage struct {
	Type         string  `json:"type"`
	State        string  `json:"state"`
	SourceBodyID int     `json:"source_body_id"`
	DestBodyID   int     `json:"dest_body_id"`
	LaunchFrame  int     `json:"launch_frame,omitempty"`
	ArrivalFrame int     `json:"arrival_frame,omitempty"`
	Score        float64 `json:"score,omitempty"`
}

// controlMessage is a client-sent frame requesting schedule or cancel.
type controlMessage struct {
	Action string `json:"action"` // "schedule" or "cancel"
}

// HandleTransfer upgrades GET /api/v1/stream/transfer/{craft_id} to a
// WebSocket and pushes TransferHandle state transitions, accepting
// schedule/cancel control frames from the client on the same
// connection — a bidirectional channel fits this lifecycle better than
// SSE because the caller can both observe and drive it.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	craftID, err := strconv.Atoi(r.PathValue("craft_id"))
	if err != nil {
		http.Error(w, "invalid craft_id", http.StatusBadRequest)
		return
	}

	ip := httputil.ClientIP(r, false)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.IncWSErrors("upgrade")
		h.logger.Warn("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	metrics.IncWSConnections("connect")
	h.logger.Info("transfer stream connected", "remote_ip", ip, "craft_id", craftID)

	incoming := make(chan controlMessage, 4)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg controlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case incoming <- msg:
			default:
			}
		}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var last transferStateMessage
	for {
		select {
		case <-closed:
			return

		case msg := <-incoming:
			h.applyControl(craftID, msg)

		case <-ticker.C:
			cur := h.readTransferState(craftID)
			if cur == last {
				continue
			}
			last = cur
			if err := conn.WriteJSON(cur); err != nil {
				metrics.IncWSErrors("write")
				return
			}
		}
	}
}

func (h *Handler) readTransferState(craftID int) transferStateMessage {
	var msg transferStateMessage
	h.runner.Do(func(world *simcore.World) {
		handle, ok := world.TransferHandleFor(craftID)
		if !ok {
			msg = transferStateMessage{Type: "transfer_state", State: "none"}
			return
		}
		msg = transferStateMessage{
			Type:         "transfer_state",
			State:        handle.State().String(),
			SourceBodyID: handle.SourceBodyID,
			DestBodyID:   handle.DestBodyID,
		}
		if plan, ok := world.BestPlanFor(craftID); ok {
			msg.LaunchFrame = plan.LaunchFrame
			msg.ArrivalFrame = plan.ArrivalFrame
			msg.Score = plan.Score
		}
	})
	return msg
}

func (h *Handler) applyControl(craftID int, msg controlMessage) {
	h.runner.Do(func(world *simcore.World) {
		handle, ok := world.TransferHandleFor(craftID)
		if !ok {
			return
		}
		switch msg.Action {
		case "schedule":
			if err := world.ScheduleTransfer(handle); err != nil {
				h.logger.Debug("ws schedule failed", "craft_id", craftID, "error", err)
			}
		case "cancel":
			world.CancelTransfer(handle)
		}
	})
}
