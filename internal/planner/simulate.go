package planner

import (
	"math"

	"github.com/star/orbitsim/internal/body"
	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/nbody"
	"github.com/star/orbitsim/internal/predictor"
)

// LaunchTemplate describes the orbiting craft a candidate search
// launches from: its parent body, altitude, and angle at snapshot frame
// 0 (the current tick). Candidate launch frames advance this angle
// forward by the parent's orbital angular rate.
type LaunchTemplate struct {
	SourceBodyID int
	Altitude     float64
	AngleAtNow   float64
}

// bodyPosAt returns body id's state at snapshot frame i (i==-1 means
// "now", before the snapshot's first frame — callers must not request
// that here since launch frames are always > 0 per MinLaunchLeadFrames).
func bodyPosAt(snap predictor.Snapshot, i, id int) nbody.State {
	if i < 0 {
		i = 0
	}
	if i >= snap.Len() {
		i = snap.Len() - 1
	}
	return snap.Frames[i].Bodies[id]
}

// bodyAt builds a body.Body view with Current set to its snapshot state
// at frame i, for use by craft.Launch/StepHints/Capture which need a
// body.Body rather than a raw nbody.State.
func bodyAt(snap predictor.Snapshot, i, id int, radius float64) body.Body {
	b := body.Body{ID: id, Mass: snap.Masses[id], Radius: radius}
	b.Set(bodyPosAt(snap, i, id))
	return b
}

// SimulateBase simulates a candidate launch forward through the rest of
// the snapshot under gravity plus escape boost (no correction burn),
// returning the trajectory, the frame index (trajectory-relative) of
// closest approach to the destination, and the base score (spec.md
// §4.4 steps 1-3).
func SimulateBase(snap predictor.Snapshot, tmpl LaunchTemplate, sourceRadius, destRadius float64, destBodyID int, launchFrame int, orbitalDir float64) (Trajectory, int, float64) {
	parentNow := bodyAt(snap, launchFrame-1, tmpl.SourceBodyID, sourceRadius)
	r := sourceRadius + tmpl.Altitude
	omega := nbody.OrbitalSpeed(parentNow.Mass, r) / r
	angle := math.Mod(tmpl.AngleAtNow+omega*float64(launchFrame)*snap.Dt, 2*math.Pi)

	orb := craft.Orbiting{Parent: tmpl.SourceBodyID, Altitude: tmpl.Altitude, Angle: angle, OrbitalDir: orbitalDir}
	st := craft.Launch(orb, parentNow, nil, &destBodyID)

	var frames []craft.Frame
	idealDist := destRadius + craft.CraftOrbitalAlt
	bestDist := math.Inf(1)
	bestIdx := 0

	free := st.Free
	for i := launchFrame; i < snap.Len(); i++ {
		launchBodyNow := bodyAt(snap, i, tmpl.SourceBodyID, sourceRadius)
		hints := craft.StepHints(&free, launchBodyNow)
		next := nbody.CraftStep(nbody.State{Pos: free.Pos, Vel: free.Vel}, snap.Frames[i].Bodies, snap.Masses, hints, snap.Dt)
		free.Pos, free.Vel = next.Pos, next.Vel
		free.FlightFrame++

		if !next.IsFinite() {
			return Trajectory{Frames: frames}, bestIdx, math.Inf(1)
		}

		frames = append(frames, craft.Frame{Pos: free.Pos, Vel: free.Vel, IsAccelerating: free.IsAccel})

		destPos := snap.Frames[i].Bodies[destBodyID].Pos
		dist := free.Pos.Sub(destPos).Len()
		errAbs := math.Abs(dist - idealDist)
		if errAbs < bestDist {
			bestDist = errAbs
			bestIdx = len(frames) - 1
		}
	}

	return Trajectory{Frames: frames}, bestIdx, bestDist
}

// CorrectedScore computes the mean altitude error over the 20 frames
// starting at insertionFrame (spec.md §4.4 "Corrected score").
func CorrectedScore(traj Trajectory, insertionFrame int, destBodyID int, destRadius float64, snap predictor.Snapshot, launchFrame int) float64 {
	const window = 20
	idealDist := destRadius + craft.CraftOrbitalAlt

	end := insertionFrame + window
	if end > len(traj.Frames) {
		end = len(traj.Frames)
	}
	if end <= insertionFrame {
		return math.Inf(1)
	}

	var sum float64
	count := 0
	for k := insertionFrame; k < end; k++ {
		snapIdx := launchFrame + k
		if snapIdx >= snap.Len() {
			break
		}
		destPos := snap.Frames[snapIdx].Bodies[destBodyID].Pos
		dist := traj.Frames[k].Pos.Sub(destPos).Len()
		sum += math.Abs(dist - idealDist)
		count++
	}
	if count == 0 {
		return math.Inf(1)
	}
	return sum / float64(count)
}
