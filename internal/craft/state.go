package craft

import (
	"math"

	"github.com/star/orbitsim/internal/body"
	"github.com/star/orbitsim/internal/nbody"
)

// OrbitPosition returns an Orbiting craft's absolute position: the
// parent body's current position plus (radius+altitude) at the given
// angle (spec.md §4.3).
func OrbitPosition(o Orbiting, parent body.Body) nbody.Vec2 {
	r := parent.Radius + o.Altitude
	return parent.Current.Pos.Add(nbody.Vec2{X: r * math.Cos(o.Angle), Y: r * math.Sin(o.Angle)})
}

// AdvanceOrbit wraps an Orbiting craft's angle forward by one fixed
// step, matching the parent's current orbital speed at that altitude.
func AdvanceOrbit(o Orbiting, parent body.Body, dt, speed float64) Orbiting {
	r := parent.Radius + o.Altitude
	omega := nbody.OrbitalSpeed(parent.Mass, r) / r
	angle := o.Angle + omega*dt*speed
	angle = math.Mod(angle, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	o.Angle = angle
	return o
}

// tangent returns the unit vector perpendicular to the radial direction
// from parent to pos, oriented by dir (+1 or -1).
func tangent(parent, pos nbody.Vec2, dir float64) nbody.Vec2 {
	r := pos.Sub(parent)
	dist := r.Len()
	if dist == 0 {
		dist = 1
	}
	// Perpendicular to the radial vector, rotated by dir's sign.
	return nbody.Vec2{X: -dir * r.Y / dist, Y: dir * r.X / dist}
}

// Launch transitions an Orbiting craft to Free, computing the launch
// position/velocity from the current orbit tangent and setting the
// escape-velocity cutoff and boost state (spec.md §4.3).
//
// The returned Free state carries correction/destination from a
// pre-computed transfer plan when non-nil; the caller is responsible
// for attaching the matching TrajectoryBuffer (the plan's simulated
// trajectory, or one generated in-line against the current prediction
// buffer) — Launch itself only computes the physical launch state.
func Launch(o Orbiting, parent body.Body, correction *CorrectionBurn, destination *int) State {
	pos := OrbitPosition(o, parent)
	r := parent.Radius + o.Altitude
	orbitalSpeed := nbody.OrbitalSpeed(parent.Mass, r)
	tan := tangent(parent.Current.Pos, pos, o.OrbitalDir)
	vel := parent.Current.Vel.Add(tan.Scale(orbitalSpeed))

	free := Free{
		Pos:         pos,
		Vel:         vel,
		IsAccel:     true,
		EscVel:      nbody.EscapeVelocity(parent.Mass, r),
		LaunchBody:  parent.ID,
		FlightFrame: 0,
		Correction:  correction,
		Destination: destination,
		OrbitalDir:  o.OrbitalDir,
	}
	return State{Kind: KindFree, Free: free}
}

// escapeCutoff is the factor applied to the ideal 2x-escape-velocity
// target per spec.md §9's "Open Questions": the source uses 1.1x the
// sqrt(2GM/r) escape velocity as the normative boost-termination cutoff.
const escapeCutoff = 1.1

// StepHints computes the thrust hints for one CraftStep call given the
// craft's current Free state, and clears IsAccel once the relative
// speed to the launch body reaches escapeCutoff*EscVel.
func StepHints(f *Free, launchBody body.Body) nbody.CraftHints {
	relVel := f.Vel.Sub(launchBody.Current.Vel)
	if f.IsAccel && relVel.Len() >= escapeCutoff*f.EscVel {
		f.IsAccel = false
	}

	hints := nbody.CraftHints{}
	if f.IsAccel {
		hints.Accelerating = true
		hints.BoostDir = tangent(launchBody.Current.Pos, f.Pos, f.OrbitalDir)
	}
	if f.Correction.Active(f.FlightFrame) {
		hints.Correcting = true
		hints.CorrectionDir = nbody.Vec2{X: math.Cos(f.Correction.Angle), Y: math.Sin(f.Correction.Angle)}
	}
	return hints
}

// Capture transitions a Free craft (whose trajectory buffer has just
// emptied and which has a destination set) into Orbiting around that
// destination. Idempotent: calling it again with the same destination
// state and zero elapsed ticks reproduces the same position exactly
// (spec.md §8).
func Capture(f Free, dest body.Body) State {
	rel := f.Pos.Sub(dest.Current.Pos)
	angle := math.Atan2(rel.Y, rel.X)

	o := Orbiting{
		Parent:     dest.ID,
		Altitude:   CraftOrbitalAlt,
		Angle:      angle,
		OrbitalDir: f.OrbitalDir,
	}
	return State{Kind: KindOrbiting, Orbit: o}
}

// Speed returns the orbital speed a craft settles into at the given
// parent/altitude — used by callers (e.g. tests) to verify the capture
// invariant "|speed - sqrt(G*m/r)| < 0.1" from spec.md §8 scenario 5.
func Speed(parent body.Body, altitude float64) float64 {
	return nbody.OrbitalSpeed(parent.Mass, parent.Radius+altitude)
}
