package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/simcore"
)

// handlers groups the route implementations behind a single World
// runner, exactly the way the teacher's handler methods all close over
// one shared dependency struct rather than free functions.
type handlers struct {
	runner *simcore.Runner
	logger *slog.Logger
}

func craftIDFromPath(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("craft_id"))
}

func (h *handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preset string `json:"preset"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	preset := simcore.SolTerraEmber()
	if body.Preset != "" && body.Preset != preset.Name {
		writeError(w, http.StatusBadRequest, "unknown preset: "+body.Preset)
		return
	}

	h.runner.Do(func(world *simcore.World) {
		world.Reset(preset)
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *handlers) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Multiplier int `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var ok bool
	h.runner.Do(func(world *simcore.World) {
		ok = world.SetSpeed(body.Multiplier)
	})
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid speed multiplier")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"multiplier": body.Multiplier})
}

func (h *handlers) handlePause(w http.ResponseWriter, r *http.Request) {
	h.runner.Do(func(world *simcore.World) { world.Pause() })
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (h *handlers) handleResume(w http.ResponseWriter, r *http.Request) {
	h.runner.Do(func(world *simcore.World) { world.Resume() })
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

type bodyView struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Mass   float64 `json:"mass"`
	Radius float64 `json:"radius"`
	PosX   float64 `json:"pos_x"`
	PosY   float64 `json:"pos_y"`
	VelX   float64 `json:"vel_x"`
	VelY   float64 `json:"vel_y"`
}

func (h *handlers) handleBodies(w http.ResponseWriter, r *http.Request) {
	var out []bodyView
	h.runner.Do(func(world *simcore.World) {
		bodies := world.Bodies()
		out = make([]bodyView, len(bodies))
		for i, b := range bodies {
			out[i] = bodyView{
				ID: b.ID, Name: b.Name, Mass: b.Mass, Radius: b.Radius,
				PosX: b.Current.Pos.X, PosY: b.Current.Pos.Y,
				VelX: b.Current.Vel.X, VelY: b.Current.Vel.Y,
			}
		}
	})
	writeJSON(w, http.StatusOK, out)
}

type craftView struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	ParentBody  int     `json:"parent_body,omitempty"`
	Altitude    float64 `json:"altitude,omitempty"`
	Angle       float64 `json:"angle,omitempty"`
	PosX        float64 `json:"pos_x,omitempty"`
	PosY        float64 `json:"pos_y,omitempty"`
	VelX        float64 `json:"vel_x,omitempty"`
	VelY        float64 `json:"vel_y,omitempty"`
	IsAccel     bool    `json:"is_accelerating,omitempty"`
	Destination *int    `json:"destination,omitempty"`
}

func (h *handlers) handleCrafts(w http.ResponseWriter, r *http.Request) {
	var out []craftView
	h.runner.Do(func(world *simcore.World) {
		views := world.Crafts()
		out = make([]craftView, len(views))
		for i, cv := range views {
			cview := craftView{ID: cv.ID, Name: cv.Name}
			switch cv.State.Kind {
			case craft.KindOrbiting:
				cview.Kind = "orbiting"
				cview.ParentBody = cv.State.Orbit.Parent
				cview.Altitude = cv.State.Orbit.Altitude
				cview.Angle = cv.State.Orbit.Angle
			case craft.KindFree:
				cview.Kind = "free"
				cview.PosX = cv.State.Free.Pos.X
				cview.PosY = cv.State.Free.Pos.Y
				cview.VelX = cv.State.Free.Vel.X
				cview.VelY = cv.State.Free.Vel.Y
				cview.IsAccel = cv.State.Free.IsAccel
				cview.Destination = cv.State.Free.Destination
			}
			out[i] = cview
		}
	})
	writeJSON(w, http.StatusOK, out)
}

type predictionFrameView struct {
	Bodies [][2]float64 `json:"bodies"`
}

func (h *handlers) handlePrediction(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("frames"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid frames query parameter")
			return
		}
		n = parsed
	}

	var out []predictionFrameView
	h.runner.Do(func(world *simcore.World) {
		frames := world.Prediction(n)
		out = make([]predictionFrameView, len(frames))
		for i, f := range frames {
			positions := make([][2]float64, len(f.Bodies))
			for j, s := range f.Bodies {
				positions[j] = [2]float64{s.Pos.X, s.Pos.Y}
			}
			out[i] = predictionFrameView{Bodies: positions}
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) handleLaunch(w http.ResponseWriter, r *http.Request) {
	craftID, parseErr := craftIDFromPath(r)
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "invalid craft_id")
		return
	}

	var err error
	h.runner.Do(func(world *simcore.World) {
		err = world.Launch(craftID)
	})
	if err != nil {
		writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "launched"})
}

func (h *handlers) handleRequestTransfer(w http.ResponseWriter, r *http.Request) {
	craftID, parseErr := craftIDFromPath(r)
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "invalid craft_id")
		return
	}

	var body struct {
		DestBodyID int `json:"dest_body_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	h.runner.Do(func(world *simcore.World) {
		_, err = world.RequestTransfer(craftID, body.DestBodyID)
	})
	if err != nil {
		writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "searching"})
}

type transferView struct {
	State        string  `json:"state"`
	SourceBodyID int     `json:"source_body_id"`
	DestBodyID   int     `json:"dest_body_id"`
	LaunchFrame  int     `json:"launch_frame,omitempty"`
	ArrivalFrame int     `json:"arrival_frame,omitempty"`
	Score        float64 `json:"score,omitempty"`
}

func (h *handlers) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	craftID, parseErr := craftIDFromPath(r)
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "invalid craft_id")
		return
	}

	var view transferView
	var found bool
	h.runner.Do(func(world *simcore.World) {
		handle, ok := world.TransferHandleFor(craftID)
		if !ok {
			return
		}
		found = true
		view = transferView{
			State:        handle.State().String(),
			SourceBodyID: handle.SourceBodyID,
			DestBodyID:   handle.DestBodyID,
		}
		if plan, ok := world.BestPlanFor(craftID); ok {
			view.LaunchFrame = plan.LaunchFrame
			view.ArrivalFrame = plan.ArrivalFrame
			view.Score = plan.Score
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "no transfer in progress for this craft")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) handleScheduleTransfer(w http.ResponseWriter, r *http.Request) {
	craftID, parseErr := craftIDFromPath(r)
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "invalid craft_id")
		return
	}

	var err error
	var found bool
	h.runner.Do(func(world *simcore.World) {
		handle, ok := world.TransferHandleFor(craftID)
		if !ok {
			return
		}
		found = true
		err = world.ScheduleTransfer(handle)
	})
	if !found {
		writeError(w, http.StatusNotFound, "no transfer in progress for this craft")
		return
	}
	if err != nil {
		writeContractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

func (h *handlers) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	craftID, parseErr := craftIDFromPath(r)
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "invalid craft_id")
		return
	}

	var found bool
	h.runner.Do(func(world *simcore.World) {
		handle, ok := world.TransferHandleFor(craftID)
		if !ok {
			return
		}
		found = true
		world.CancelTransfer(handle)
	})
	if !found {
		writeError(w, http.StatusNotFound, "no transfer in progress for this craft")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// writeContractError maps the simcore contract-error sentinels to HTTP
// status codes (spec.md §7).
func writeContractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simcore.ErrInvalidBodyID),
		errors.Is(err, simcore.ErrInvalidCraftID),
		errors.Is(err, simcore.ErrSameSourceAndDest),
		errors.Is(err, simcore.ErrCraftNotOrbiting),
		errors.Is(err, simcore.ErrNoPlanReady):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
