// Package simcore wires the integrator, prediction buffer, craft state
// machine, transfer planner and plan registry into the single opaque
// simulation handle described by spec.md §6. It is the only package
// that owns concurrency at the world level: the main loop here is
// single-threaded and cooperative, exactly as spec.md §5 requires,
// delegating only the transfer search to planner.Planner's worker pool.
package simcore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/star/orbitsim/internal/body"
	"github.com/star/orbitsim/internal/clock"
	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/nbody"
	"github.com/star/orbitsim/internal/predictor"
	"github.com/star/orbitsim/internal/registry"
)

// Config controls resource sizing that doesn't belong in a scenario
// preset: buffer horizon/catchup and the number of workers each
// transfer search gets.
type Config struct {
	Predictor       predictor.Config
	PlannerWorkers  int
}

// DefaultConfig mirrors spec.md's reference tunables.
func DefaultConfig() Config {
	return Config{
		Predictor:      predictor.DefaultConfig(),
		PlannerWorkers: 4,
	}
}

// World is the simulation handle: reset/tick/speed controls plus
// read-only views for a renderer and the transfer-request entry point
// (spec.md §6).
type World struct {
	logger *slog.Logger

	predictorCfg    predictor.Config
	plannerWorkers  int

	buffer *predictor.Buffer
	clk    *clock.Clock
	reg    *registry.Registry

	bodies []body.Body
	crafts []*craftRuntime

	preset Preset
}

// New creates an empty World; call Reset with a preset before ticking.
func New(cfg Config, logger *slog.Logger) *World {
	return &World{
		logger:         logger,
		predictorCfg:   cfg.Predictor,
		plannerWorkers: cfg.PlannerWorkers,
		clk:            clock.New(),
		reg:            registry.New(logger),
	}
}

// Reset discards all buffers and plans and loads a named preset
// (spec.md §6 reset).
func (w *World) Reset(p Preset) {
	for _, cr := range w.crafts {
		if cr.transfer != nil {
			cr.transfer.pl.Close()
		}
	}

	w.preset = p
	w.bodies = make([]body.Body, len(p.Bodies))
	for i, bp := range p.Bodies {
		w.bodies[i] = body.Body{ID: i, Name: bp.Name, Mass: bp.Mass, Radius: bp.Radius}
		w.bodies[i].Set(nbody.State{Pos: nbody.Vec2{X: bp.PosX, Y: bp.PosY}, Vel: nbody.Vec2{X: bp.VelX, Y: bp.VelY}})
	}

	w.buffer = predictor.New(w.predictorCfg, p.masses(), w.logger)
	w.buffer.Initialize(p.initialStates())

	w.reg.Reset()
	w.clk.Reset()

	w.crafts = make([]*craftRuntime, len(p.Crafts))
	for i, cp := range p.Crafts {
		parentIdx := p.bodyIndexByName(cp.Parent)
		if parentIdx < 0 {
			w.logger.Warn("preset craft references unknown parent body", "craft", cp.Name, "parent", cp.Parent)
			parentIdx = 0
		}
		w.crafts[i] = &craftRuntime{
			id:   i,
			name: cp.Name,
			state: craft.State{
				Kind: craft.KindOrbiting,
				Orbit: craft.Orbiting{
					Parent:     parentIdx,
					Altitude:   cp.Altitude,
					Angle:      cp.Angle,
					OrbitalDir: cp.OrbitalDir,
				},
			},
		}
	}

	w.logger.Info("world reset", "preset", p.Name, "bodies", len(w.bodies), "crafts", len(w.crafts))
}

// Tick advances the simulation by wall time: the clock converts
// real_dt into zero or more fixed integrator steps, each of which pops
// the prediction buffer's head, advances every craft, and reconciles
// the plan registry (spec.md §4.6, §2 data flow). The transfer
// planner(s) are then given a chance to dispatch/drain regardless of
// whether a buffer shift happened this call.
func (w *World) Tick(ctx context.Context, realDtSeconds float64) {
	steps := w.clk.Advance(realDtSeconds)
	for i := 0; i < steps; i++ {
		w.shiftOnce()
	}
	w.advanceTransfers(ctx)
}

// shiftOnce performs exactly one fixed-step world advance.
func (w *World) shiftOnce() {
	popped := w.buffer.Shift()
	if len(popped.Bodies) == 0 {
		return
	}
	for i := range w.bodies {
		w.bodies[i].Set(popped.Bodies[i])
	}

	for _, cr := range w.crafts {
		w.advanceCraftOnShift(cr)
	}

	for _, cr := range w.crafts {
		if h := cr.transfer; h != nil && h.state != TransferScheduled && h.state != TransferNone {
			h.shiftsSinceSnapshot++
			h.pl.OnShift()
		}
	}

	if fired := w.reg.OnShift(); fired != nil {
		w.launchScheduled(*fired)
	}
}

// launchScheduled finds the craft whose transfer handle matches a plan
// that just reached its launch trigger and fires it.
func (w *World) launchScheduled(p registry.Plan) {
	for _, cr := range w.crafts {
		h := cr.transfer
		if h == nil || h.state != TransferScheduled {
			continue
		}
		if h.SourceBodyID != p.SourceBody || h.DestBodyID != p.DestBody {
			continue
		}
		w.launchFromPlan(cr, p)
		return
	}
	w.logger.Warn("scheduled plan fired with no matching craft", "source", p.SourceBody, "dest", p.DestBody)
}

// SetSpeed changes the integer speed multiplier.
func (w *World) SetSpeed(m int) bool { return w.clk.SetSpeed(m) }

// Pause freezes simulation advance without discarding buffer state.
func (w *World) Pause() { w.clk.Pause() }

// Resume un-freezes the clock.
func (w *World) Resume() { w.clk.Resume() }

// Paused reports whether the clock is currently frozen.
func (w *World) Paused() bool { return w.clk.Paused() }

// Speed returns the current multiplier.
func (w *World) Speed() int { return w.clk.Speed() }

// Bodies returns a read-only snapshot of every body's current state.
func (w *World) Bodies() []body.Body {
	out := make([]body.Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

// CraftView is a read-only projection of one craft for the renderer.
type CraftView struct {
	ID    int
	Name  string
	State craft.State
}

// Crafts returns a read-only snapshot of every craft's current state.
func (w *World) Crafts() []CraftView {
	out := make([]CraftView, len(w.crafts))
	for i, cr := range w.crafts {
		out[i] = CraftView{ID: cr.id, Name: cr.name, State: cr.state}
	}
	return out
}

// Prediction returns a read-only view of the prediction buffer's
// current frames, up to n frames (or the full buffer if n <= 0).
func (w *World) Prediction(n int) []predictor.Frame {
	length := w.buffer.Length()
	if n > 0 && n < length {
		length = n
	}
	out := make([]predictor.Frame, length)
	for i := 0; i < length; i++ {
		out[i] = w.buffer.Frame(i)
	}
	return out
}

// TransferHandleFor returns the craft's active transfer handle, if any.
func (w *World) TransferHandleFor(craftID int) (*TransferHandle, bool) {
	cr, ok := w.craftByID(craftID)
	if !ok || cr.transfer == nil {
		return nil, false
	}
	return cr.transfer, true
}

// BestPlanFor returns the earliest acceptable plan for a craft's active
// transfer handle, if any.
func (w *World) BestPlanFor(craftID int) (registry.Plan, bool) {
	h, ok := w.TransferHandleFor(craftID)
	if !ok {
		return registry.Plan{}, false
	}
	return h.BestPlan(w.reg)
}

// RequestTransfer enters planning for a craft (spec.md §6).
func (w *World) RequestTransfer(craftID, destBodyID int) (*TransferHandle, error) {
	return w.requestTransfer(craftID, destBodyID)
}

// ScheduleTransfer arms the handle's current best plan.
func (w *World) ScheduleTransfer(h *TransferHandle) error {
	return w.schedule(h)
}

// CancelTransfer tears down a handle's search.
func (w *World) CancelTransfer(h *TransferHandle) {
	w.cancel(h)
}

// Launch transitions an Orbiting craft with no destination into free
// flight (an internal operation; not part of spec.md §6's minimal
// external surface but useful for direct craft control and testing).
func (w *World) Launch(craftID int) error {
	cr, ok := w.craftByID(craftID)
	if !ok {
		return ErrInvalidCraftID
	}
	if cr.state.Kind != craft.KindOrbiting {
		return ErrCraftNotOrbiting
	}
	w.launch(cr)
	return nil
}

// String renders a short human-readable summary, used by the CLI.
func (w *World) String() string {
	return fmt.Sprintf("World{preset=%s bodies=%d crafts=%d speed=%d}", w.preset.Name, len(w.bodies), len(w.crafts), w.clk.Speed())
}
