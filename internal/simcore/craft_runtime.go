package simcore

import (
	"github.com/star/orbitsim/internal/body"
	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/nbody"
	"github.com/star/orbitsim/internal/registry"
)

// craftRuntime is one craft's live state plus its trajectory buffer and
// any active transfer search. Index in World.crafts is the craft's
// public id.
type craftRuntime struct {
	id       int
	name     string
	state    craft.State
	traj     *craft.TrajectoryBuffer
	transfer *TransferHandle
}

// craftByID returns the runtime for a craft id, or false if out of
// range.
func (w *World) craftByID(id int) (*craftRuntime, bool) {
	if id < 0 || id >= len(w.crafts) {
		return nil, false
	}
	return w.crafts[id], true
}

// bodyAtBufferFrame builds a body.Body view with Current set from the
// predictor buffer's frame i, for use by craft.StepHints/Launch/Capture
// which need a body.Body rather than a raw nbody.State.
func (w *World) bodyAtBufferFrame(i, bodyID int) body.Body {
	b := w.bodies[bodyID]
	b.Set(w.buffer.Frame(i).Bodies[bodyID])
	return b
}

// advanceCraftOnShift runs one fixed-step advance for a single craft in
// response to a prediction buffer shift (spec.md §4.3).
func (w *World) advanceCraftOnShift(cr *craftRuntime) {
	switch cr.state.Kind {
	case craft.KindOrbiting:
		parent := w.bodies[cr.state.Orbit.Parent]
		cr.state.Orbit = craft.AdvanceOrbit(cr.state.Orbit, parent, nbody.DtFixed, 1)

	case craft.KindFree:
		free := &cr.state.Free
		if cr.traj.Empty() {
			if free.Destination != nil {
				dest := w.bodies[*free.Destination]
				w.finishTransfer(cr, dest)
				return
			}
			w.extendFreeTrajectory(cr)
			if cr.traj.Empty() {
				return
			}
		}
		frame := cr.traj.PopHead()
		free.Pos, free.Vel = frame.Pos, frame.Vel
		free.IsAccel = frame.IsAccelerating
		free.FlightFrame++
	}
}

// finishTransfer transitions a Free craft whose trajectory buffer has
// just emptied into Orbiting around its destination, and tears down the
// now-complete transfer handle (spec.md §4.3 capture, §6 Scheduled→None).
func (w *World) finishTransfer(cr *craftRuntime, dest body.Body) {
	cr.state = craft.Capture(cr.state.Free, dest)
	cr.traj = craft.NewTrajectoryBuffer(nil)
	if h := cr.transfer; h != nil {
		h.pl.Close()
		h.state = TransferNone
	}
	cr.transfer = nil
	w.logger.Info("transfer complete, craft captured", "craft_id", cr.id, "dest_body", dest.ID)
}

// extendFreeTrajectory extends a non-transfer Free craft's trajectory
// buffer at the tail to match the prediction buffer's current length
// (spec.md §4.3 "Free craft without a destination extends its
// trajectory buffer at the tail"). Grounded on predictor.Buffer's own
// extendTail, adapted to advance a massless craft instead of the
// massive bodies.
func (w *World) extendFreeTrajectory(cr *craftRuntime) {
	need := w.buffer.Length() - cr.traj.Len()
	if need <= 0 {
		return
	}

	scratch := cr.state.Free
	if tail, ok := cr.traj.PeekTail(); ok {
		scratch.Pos, scratch.Vel, scratch.IsAccel = tail.Pos, tail.Vel, tail.IsAccelerating
	}

	startIdx := w.buffer.Length() - need
	frames := make([]craft.Frame, 0, need)
	for i := startIdx; i < w.buffer.Length(); i++ {
		launchBody := w.bodyAtBufferFrame(i, scratch.LaunchBody)
		hints := craft.StepHints(&scratch, launchBody)
		bodies := w.buffer.Frame(i).Bodies
		next := nbody.CraftStep(nbody.State{Pos: scratch.Pos, Vel: scratch.Vel}, bodies, w.buffer.Masses(), hints, nbody.DtFixed)
		scratch.Pos, scratch.Vel = next.Pos, next.Vel
		scratch.FlightFrame++
		frames = append(frames, craft.Frame{Pos: next.Pos, Vel: next.Vel, IsAccelerating: scratch.IsAccel})
	}
	cr.traj.Extend(frames)
}

// launch transitions an Orbiting craft with no destination straight to
// Free flight, generating its trajectory in-line on the next shift.
func (w *World) launch(cr *craftRuntime) {
	orbit := cr.state.Orbit
	parent := w.bodies[orbit.Parent]
	cr.state = craft.Launch(orbit, parent, nil, nil)
	cr.traj = craft.NewTrajectoryBuffer(nil)
}

// launchFromPlan transitions an Orbiting craft to Free using a
// registry-scheduled transfer plan's pre-computed trajectory (spec.md
// §4.5 schedule: "invoke craft.launch(plan) atomically").
func (w *World) launchFromPlan(cr *craftRuntime, p registry.Plan) {
	orbit := cr.state.Orbit
	orbit.OrbitalDir = p.OrbitalDir
	parent := w.bodies[orbit.Parent]
	dest := p.DestBody

	cr.state = craft.Launch(orbit, parent, p.Correction(), &dest)
	cr.traj = craft.NewTrajectoryBuffer(append([]craft.Frame(nil), p.Trajectory...))
	w.logger.Info("transfer launch triggered", "craft_id", cr.id, "source_body", p.SourceBody, "dest_body", p.DestBody, "score", p.Score)
}
