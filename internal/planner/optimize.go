package planner

import (
	"math"

	"github.com/star/orbitsim/internal/craft"
	"github.com/star/orbitsim/internal/nbody"
	"github.com/star/orbitsim/internal/predictor"
)

// OptimizeCorrection runs coordinate descent on a correction burn's
// (angle, duration), starting retrograde at correction_start =
// floor(insertionFrame*2/3) (spec.md §4.4 step 4). It re-simulates the
// full candidate trajectory on every trial since a correction burn
// changes the craft's path downstream of the burn.
func OptimizeCorrection(snap predictor.Snapshot, tmpl LaunchTemplate, sourceRadius, destRadius float64, destBodyID, launchFrame int, orbitalDir float64, insertionFrame int) (*craft.CorrectionBurn, Trajectory, int, float64) {
	correctionStart := (insertionFrame * 2) / 3

	baseTraj, _, _ := SimulateBase(snap, tmpl, sourceRadius, destRadius, destBodyID, launchFrame, orbitalDir)
	if correctionStart >= len(baseTraj.Frames) {
		return nil, baseTraj, insertionFrame, math.Inf(1)
	}
	vAtStart := baseTraj.Frames[correctionStart].Vel
	retrograde := math.Pi + math.Atan2(vAtStart.Y, vAtStart.X)

	burn := &craft.CorrectionBurn{Angle: retrograde, Duration: 1, StartFrame: correctionStart}
	maxDuration := MaxCorrectionDurationFrames()

	traj, ins, score := simulateWithCorrection(snap, tmpl, sourceRadius, destRadius, destBodyID, launchFrame, orbitalDir, burn)
	bestScore := CorrectedScore(traj, ins, destBodyID, destRadius, snap, launchFrame)

	for iter := 0; iter < MaxIterations; iter++ {
		improved := false

		for _, dAngle := range []float64{CorrectionAngleStepRad, -CorrectionAngleStepRad} {
			cand := *burn
			cand.Angle += dAngle
			t, i, s := simulateWithCorrection(snap, tmpl, sourceRadius, destRadius, destBodyID, launchFrame, orbitalDir, &cand)
			cs := CorrectedScore(t, i, destBodyID, destRadius, snap, launchFrame)
			if cs < bestScore {
				bestScore = cs
				*burn = cand
				traj, ins, score = t, i, s
				improved = true
			}
		}

		for _, dDur := range []int{1, -1} {
			nd := burn.Duration + dDur
			if nd < 0 || nd > maxDuration {
				continue
			}
			cand := *burn
			cand.Duration = nd
			t, i, s := simulateWithCorrection(snap, tmpl, sourceRadius, destRadius, destBodyID, launchFrame, orbitalDir, &cand)
			cs := CorrectedScore(t, i, destBodyID, destRadius, snap, launchFrame)
			if cs < bestScore {
				bestScore = cs
				*burn = cand
				traj, ins, score = t, i, s
				improved = true
			}
		}

		if !improved {
			break
		}
	}

	_ = score
	return burn, traj, ins, bestScore
}

// simulateWithCorrection is SimulateBase extended to apply a correction
// burn during the active window. It re-derives the trajectory from
// scratch rather than patching SimulateBase's output because the burn
// changes velocity and therefore every subsequent position.
func simulateWithCorrection(snap predictor.Snapshot, tmpl LaunchTemplate, sourceRadius, destRadius float64, destBodyID, launchFrame int, orbitalDir float64, burn *craft.CorrectionBurn) (Trajectory, int, float64) {
	parentNow := bodyAt(snap, launchFrame-1, tmpl.SourceBodyID, sourceRadius)
	r := sourceRadius + tmpl.Altitude
	omega := nbody.OrbitalSpeed(parentNow.Mass, r) / r
	angle := math.Mod(tmpl.AngleAtNow+omega*float64(launchFrame)*snap.Dt, 2*math.Pi)

	orb := craft.Orbiting{Parent: tmpl.SourceBodyID, Altitude: tmpl.Altitude, Angle: angle, OrbitalDir: orbitalDir}
	st := craft.Launch(orb, parentNow, burn, &destBodyID)

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
